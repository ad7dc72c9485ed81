// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package scan

import (
	"net"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/device"
)

// fakeEntry is one synthetic scan record.
type fakeEntry struct {
	essid     string
	addr      net.HardwareAddr
	strength  int8
	freq      float64
	encrypted bool
}

// fakeScanResults is the fixed network list test devices see.
var fakeScanResults = []fakeEntry{
	{"green", net.HardwareAddr{0x70, 0x37, 0x03, 0x70, 0x37, 0x03}, 75, 3.1416, false},
	{"bay", net.HardwareAddr{0x12, 0x34, 0x56, 0x78, 0x90, 0xab}, 13, 4.1416, true},
	{"packers", net.HardwareAddr{0xcd, 0xef, 0x12, 0x34, 0x56, 0x78}, 100, 5.1415, false},
	{"rule", net.HardwareAddr{0x90, 0xab, 0xcd, 0xef, 0x12, 0x34}, 50, 6.1415, true},
}

// fakeAPList fabricates the access point list for a test device and emits
// the same deltas a real scan would.
func (r *Reconciler) fakeAPList(d *device.Device) {
	oldList := d.APList()
	visible := ap.NewList(ap.ListDeviceScan)
	now := r.clock.Now()

	for _, entry := range fakeScanResults {
		rec := ap.New()
		rec.SetESSID(entry.essid)
		rec.SetEncrypted(entry.encrypted)
		rec.SetBSSID(entry.addr)
		rec.SetStrength(entry.strength)
		rec.SetFreq(entry.freq)
		rec.SetTimestamp(now)

		// Merge keys and trust from the allowed networks.
		if allowed := d.Allowed().GetByESSID(entry.essid); allowed != nil {
			rec.SetTimestamp(allowed.Timestamp())
			if key, kt := allowed.KeySource(); key != "" {
				rec.SetKeySource(key, kt)
			}
			if allowed.Trusted() {
				rec.SetTrusted(true)
			}
		}

		visible.Append(rec)
	}

	d.SetAPList(visible)
	d.UpdateBestAP()
	r.publishDiff(d, oldList, visible)
}
