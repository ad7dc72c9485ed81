// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package device

import (
	"math"
	"sync"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/events"
	"grimm.is/linkmgr/internal/radio"
)

// Wireless is the sub-state carried only by wireless devices.
type Wireless struct {
	mu sync.Mutex

	scanCapable bool
	rangeInfo   radio.RangeInfo

	strength   int8
	noise      uint8
	maxQuality uint8
	sampler    *radio.StrengthSampler

	// apList is the device-visible list; s1 is the newest snapshot.
	apList *ap.List
	s1     *ap.List
	s2     *ap.List
	s3     *ap.List

	bestMu sync.Mutex
	bestAP *ap.AccessPoint
	frozen bool

	// scanMu serialises full scans against activation radio churn; it is
	// only ever try-locked, a held lock means "skip this tick".
	scanMu sync.Mutex

	nowScanning bool

	keyMu          sync.Mutex
	keyCond        *sync.Cond
	userKeyArrived bool
}

func newWireless() *Wireless {
	w := &Wireless{
		sampler:  radio.NewStrengthSampler(),
		strength: -1,
		apList:   ap.NewList(ap.ListDeviceScan),
	}
	w.keyCond = sync.NewCond(&w.keyMu)
	return w
}

// wakeKeyWaiters unblocks anything waiting on a user key, for cancellation.
func (w *Wireless) wakeKeyWaiters() {
	w.keyMu.Lock()
	w.keyCond.Broadcast()
	w.keyMu.Unlock()
}

// ScanCapable reports whether the driver accepted a trial scan.
func (d *Device) ScanCapable() bool {
	return d.wireless != nil && d.wireless.scanCapable
}

// RangeInfo returns the radio's capability record.
func (d *Device) RangeInfo() radio.RangeInfo {
	if d.wireless == nil {
		return radio.RangeInfo{}
	}
	return d.wireless.rangeInfo
}

// TryLockScan acquires the scan lock without blocking.
func (d *Device) TryLockScan() bool {
	if d.wireless == nil {
		return false
	}
	return d.wireless.scanMu.TryLock()
}

// UnlockScan releases the scan lock.
func (d *Device) UnlockScan() {
	d.wireless.scanMu.Unlock()
}

// NowScanning reports whether the device is waiting for a usable access
// point.  This is set while the activation worker polls for a best AP, not
// during the radio scan itself.
func (d *Device) NowScanning() bool {
	if d.wireless == nil {
		return false
	}
	d.wireless.mu.Lock()
	defer d.wireless.mu.Unlock()
	return d.wireless.nowScanning
}

// SetNowScanning flags the waiting-for-AP state.
func (d *Device) SetNowScanning(scanning bool) {
	if d.wireless == nil {
		return
	}
	d.wireless.mu.Lock()
	d.wireless.nowScanning = scanning
	d.wireless.mu.Unlock()
}

// APList returns the device-visible access point list.
func (d *Device) APList() *ap.List {
	if d.wireless == nil {
		return nil
	}
	d.wireless.mu.Lock()
	defer d.wireless.mu.Unlock()
	return d.wireless.apList
}

// SetAPList replaces the device-visible list.
func (d *Device) SetAPList(l *ap.List) {
	d.wireless.mu.Lock()
	d.wireless.apList = l
	d.wireless.mu.Unlock()
}

// ShiftScanSnapshots rotates the snapshot ring with the newest scan and
// returns the record shifted out (the fourth-oldest scan).
func (d *Device) ShiftScanSnapshots(newest *ap.List) (s3Out *ap.List) {
	w := d.wireless
	w.mu.Lock()
	defer w.mu.Unlock()

	s3Out = w.s3
	w.s3 = w.s2
	w.s2 = w.s1
	w.s1 = newest
	return s3Out
}

// ScanSnapshots returns the ring newest-first.
func (d *Device) ScanSnapshots() (s1, s2, s3 *ap.List) {
	w := d.wireless
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.s1, w.s2, w.s3
}

// BestAP returns the current best access point, or nil.
func (d *Device) BestAP() *ap.AccessPoint {
	if d.wireless == nil {
		return nil
	}
	d.wireless.bestMu.Lock()
	defer d.wireless.bestMu.Unlock()
	return d.wireless.bestAP
}

// SetBestAP replaces the best access point and clears the freeze.
func (d *Device) SetBestAP(a *ap.AccessPoint) {
	d.wireless.bestMu.Lock()
	d.wireless.bestAP = a
	d.wireless.frozen = false
	d.wireless.bestMu.Unlock()
}

// FreezeBestAP pins the current selection; scans must not replace it while
// it stays visible or is user-created.
func (d *Device) FreezeBestAP() {
	d.wireless.bestMu.Lock()
	d.wireless.frozen = true
	d.wireless.bestMu.Unlock()
}

// UnfreezeBestAP releases a pinned selection.
func (d *Device) UnfreezeBestAP() {
	d.wireless.bestMu.Lock()
	d.wireless.frozen = false
	d.wireless.bestMu.Unlock()
}

// BestAPFrozen reports whether the selection is pinned.
func (d *Device) BestAPFrozen() bool {
	if d.wireless == nil {
		return false
	}
	d.wireless.bestMu.Lock()
	defer d.wireless.bestMu.Unlock()
	return d.wireless.frozen
}

// UpdateBestAP recomputes the preferred access point from the visible,
// allowed and invalid lists.  A frozen selection survives while it stays
// visible (and valid) or is user-created.  When no candidate remains the
// radio is left up but unconfigured so scanning continues.
func (d *Device) UpdateBestAP() {
	if d.wireless == nil {
		return
	}
	visible := d.APList()
	if visible == nil {
		return
	}

	if d.BestAPFrozen() {
		if best := d.BestAP(); best != nil {
			essid := best.ESSID()
			stillVisible := d.deps.Invalid.GetByESSID(essid) == nil && visible.GetByESSID(essid) != nil
			if stillVisible || best.UserCreated() {
				return
			}
		}
		d.UnfreezeBestAP()
	}

	var bestTrusted, bestUntrusted *ap.AccessPoint
	trustedStamp, untrustedStamp := int64(math.MinInt64), int64(math.MinInt64)

	for _, scanAP := range visible.APs() {
		essid := scanAP.ESSID()

		// Access points in the invalid list cannot be used.
		if d.deps.Invalid.GetByESSID(essid) != nil {
			continue
		}

		allowed := d.deps.Allowed.GetByESSID(essid)
		if allowed == nil {
			continue
		}

		stamp := allowed.Timestamp().Unix()
		if allowed.Trusted() && stamp > trustedStamp {
			trustedStamp = stamp
			bestTrusted = scanAP
			copyKeyMaterial(scanAP, allowed)
		} else if !allowed.Trusted() && stamp > untrustedStamp {
			untrustedStamp = stamp
			bestUntrusted = scanAP
			copyKeyMaterial(scanAP, allowed)
		}
	}

	best := bestTrusted
	if best == nil {
		best = bestUntrusted
	}

	d.SetBestAP(best)
	if best == nil {
		// Nothing usable: clear the radio config but keep the interface
		// up so scanning continues.
		_ = d.deps.Control.SetESSID(" ")
		_ = d.deps.Control.SetEncryptionKey("", ap.AuthNone)
		d.EnsureUp()
	}
}

// copyKeyMaterial merges the allowed entry's key onto a scanned record.
func copyKeyMaterial(dst, src *ap.AccessPoint) {
	if key, kt := src.KeySource(); key != "" {
		dst.SetKeySource(key, kt)
	}
}

// WaitUserKey blocks until a user key reply arrives or the activation is
// cancelled.  Returns false on cancellation.
func (d *Device) WaitUserKey() bool {
	w := d.wireless
	w.keyMu.Lock()
	defer w.keyMu.Unlock()

	for !w.userKeyArrived && !d.ShouldCancelActivation() {
		w.keyCond.Wait()
	}
	return w.userKeyArrived
}

// ResetUserKeyWait arms the key-wait before a prompt is sent.
func (d *Device) ResetUserKeyWait() {
	w := d.wireless
	w.keyMu.Lock()
	w.userKeyArrived = false
	w.keyMu.Unlock()
}

// SetUserKeyForNetwork handles a front-end key reply.  The cancel sentinel
// marks the access point invalid and recomputes the best selection;
// otherwise the key is stored on the best AP when the network matches.
func (d *Device) SetUserKeyForNetwork(network, key string, keyType ap.KeyType) {
	if d.wireless == nil {
		return
	}

	if key == events.CancelKeySentinel {
		if visible := d.APList().GetByESSID(network); visible != nil {
			invalid := ap.NewFromAP(visible)
			invalid.SetInvalid(true)
			d.deps.Invalid.Append(invalid)
		}
		d.UpdateBestAP()
	} else if best := d.BestAP(); best != nil {
		if best.ESSID() == network {
			best.SetKeySource(key, keyType)
		}
	}

	w := d.wireless
	w.keyMu.Lock()
	w.userKeyArrived = true
	w.keyCond.Broadcast()
	w.keyMu.Unlock()
}
