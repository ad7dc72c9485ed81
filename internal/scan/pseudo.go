// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package scan

import (
	"bytes"
	"net"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/device"
	"grimm.is/linkmgr/internal/netutil"
)

// pseudoScan brute-forces the allowed list on cards that cannot scan: try
// each network in turn and see whether the card associates.
func (r *Reconciler) pseudoScan(d *device.Device) {
	ctl := d.Control()
	_ = ctl.SetESSID("")

	for _, candidate := range d.Allowed().APs() {
		d.EnsureUp()

		// Certain cards (orinoco) let the ESSID change but stay associated
		// with the previous base station when the new one is unreachable,
		// so an unchanged address after the switch means no association.
		savedAddr, _ := ctl.AssociatedBSSID()

		if key := candidate.HashedKey(); key != "" {
			_ = ctl.SetEncryptionKey(key, ap.AuthSharedKey)
		} else {
			_ = ctl.SetEncryptionKey("", ap.AuthNone)
		}
		_ = ctl.SetESSID(candidate.ESSID())

		r.clock.Sleep(d.AssociationPause())

		curAddr, err := ctl.AssociatedBSSID()
		if err != nil {
			continue
		}
		valid := netutil.ValidBSSID(curAddr)
		if valid && sameAddr(savedAddr, curAddr) {
			valid = false
		}

		if valid {
			r.logger.Info("Pseudo-scan found network", "iface", d.Iface(), "essid", candidate.ESSID())
			d.SetBestAP(candidate)
			return
		}
	}
}

func sameAddr(a, b net.HardwareAddr) bool {
	return len(a) == len(b) && bytes.Equal(a, b)
}
