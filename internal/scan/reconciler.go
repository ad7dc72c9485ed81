// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package scan merges consecutive radio scans into a stable view of the
// networks a device can see, folds in allowed-network metadata, and emits
// appear/disappear deltas.
package scan

import (
	"sync"
	"time"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/clock"
	"grimm.is/linkmgr/internal/device"
	"grimm.is/linkmgr/internal/events"
	"grimm.is/linkmgr/internal/logging"
	"grimm.is/linkmgr/internal/metrics"
	"grimm.is/linkmgr/internal/radio"
)

// hiddenESSID is the sentinel some drivers (ipw2x00) report for cloaking
// access points.
const hiddenESSID = "<hidden>"

// Reconciler drives periodic scans across all wireless devices.
type Reconciler struct {
	logger   *logging.Logger
	clock    clock.Clock
	registry *device.Registry
	interval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewReconciler creates a reconciler ticking at the given interval.
func NewReconciler(registry *device.Registry, interval time.Duration, clk clock.Clock) *Reconciler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Reconciler{
		logger:   logging.WithComponent("scan"),
		clock:    clk,
		registry: registry,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scan loop.
func (r *Reconciler) Start() {
	r.logger.Info("Starting scan reconciler", "interval", r.interval)
	r.wg.Add(1)
	go r.loop()
}

// Stop halts the loop and waits for it.
func (r *Reconciler) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.logger.Info("Scan reconciler stopped")
}

func (r *Reconciler) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, d := range r.registry.All() {
				if d.IsWireless() {
					r.ScanDevice(d)
				}
			}
		case <-r.stopCh:
			return
		}
	}
}

// ScanDevice runs one scan/reconcile cycle for a device.  A held scan lock
// means an activation or another scan is busy with the radio; the tick is
// skipped rather than queued.
func (r *Reconciler) ScanDevice(d *device.Device) {
	if !d.IsWireless() {
		return
	}

	// Test devices get fabricated data, scan-incapable cards brute-force
	// the allowed list instead.
	if d.IsTestDevice() {
		r.fakeAPList(d)
		return
	}
	if !d.ScanCapable() {
		r.pseudoScan(d)
		return
	}

	if !d.TryLockScan() {
		r.logger.Debug("Scan in progress, skipping tick", "iface", d.Iface())
		return
	}
	defer d.UnlockScan()

	d.EnsureUp()
	r.clock.Sleep(time.Second)

	ctl := d.Control()

	// The card must be in infrastructure mode during the scan or the
	// result list is incomplete; whatever was configured is put back after.
	origMode, _ := ctl.Mode()
	origFreq, _ := ctl.Frequency()
	origRate, _ := ctl.Bitrate()

	_ = ctl.SetMode(ap.ModeInfrastructure)

	results, err := ctl.Scan()
	if err != nil {
		// The card may not have finished compiling its list; give it half
		// an association pause and ask once more.
		r.clock.Sleep(d.AssociationPause() / 2)
		results, err = ctl.Scan()
	}

	if origMode != ap.ModeUnknown {
		_ = ctl.SetMode(origMode)
	}
	_ = ctl.SetFrequency(origFreq)
	_ = ctl.SetBitrate(origRate)

	if err != nil {
		metrics.ScanFailures.WithLabelValues(d.Iface()).Inc()
		r.logger.WithError(err).Debug("Scan produced no results", "iface", d.Iface())
		return
	}

	r.processResults(d, results)
	metrics.ScansRun.WithLabelValues(d.Iface()).Inc()
}

// processResults folds one scan's raw records into the device state.
func (r *Reconciler) processResults(d *device.Device, results []radio.ScanResult) {
	newest := ap.NewList(ap.ListDeviceScan)
	haveBlank := false
	now := r.clock.Now()
	ri := d.RangeInfo()

	for _, res := range results {
		// A record is only usable with an ESSID or a base station address.
		if !res.HasESSID && !res.HasBSSID {
			continue
		}

		rec := ap.New()

		switch {
		case !res.HasESSID, res.ESSID == "", res.ESSID == hiddenESSID:
			haveBlank = true
		default:
			rec.SetESSID(res.ESSID)
		}

		// Without key flags the safe assumption is encrypted.
		rec.SetEncrypted(!(res.HasKeyFlags && res.KeyDisabled))

		if res.HasBSSID {
			rec.SetBSSID(res.BSSID)
		}
		if res.HasMode {
			rec.SetMode(res.Mode)
		} else {
			rec.SetMode(ap.ModeInfrastructure)
		}
		if res.HasFreq {
			rec.SetFreq(res.Freq)
		}
		rec.SetStrength(radio.QualityToPercent(res.Quality, ri.MaxQuality))
		rec.SetTimestamp(now)

		// Records with a blank ESSID and no base station address are
		// dropped here; everything else lands in the newest snapshot.
		if rec.ESSID() == "" && !rec.HasBSSID() {
			continue
		}
		newest.Append(rec)
	}

	oldList := d.APList()
	s4 := d.ShiftScanSnapshots(newest)
	s1, s2, s3 := d.ScanSnapshots()

	// Two-scan window: cards don't return the same list every scan even
	// when nothing moved.
	visible := ap.Combine(s1, s2)

	if haveBlank {
		ap.CopyESSIDsByAddress(visible, oldList)
		ap.CopyESSIDsByAddress(visible, d.Allowed())
	}

	ap.CopyProperties(visible, d.Allowed())

	// Keep artificial access points alive while the card is associated
	// with them; some drivers never report cloaked networks in scans.
	if oldList != nil {
		if essid, err := d.Control().ESSID(); err == nil && essid != "" {
			for _, artificial := range oldList.APs() {
				if artificial.Artificial() && artificial.ESSID() == essid {
					visible.Append(artificial)
				}
			}
		}
	}

	d.SetAPList(visible)
	metrics.VisibleAPs.WithLabelValues(d.Iface()).Set(float64(visible.Len()))

	d.UpdateBestAP()

	// Events diff against a four-scan horizon so flapping networks don't
	// spam appear/disappear pairs.
	horizon := ap.Combine(s3, s4)
	r.publishDiff(d, horizon, visible)
}

// publishDiff emits appeared/disappeared events for the delta between two
// views.
func (r *Reconciler) publishDiff(d *device.Device, old, cur *ap.List) {
	hub := d.Hub()
	if hub == nil {
		return
	}

	added, removed := ap.Diff(old, cur)
	for _, a := range added {
		hub.Publish(events.Event{
			Type: events.EventWirelessNetworkAppeared,
			Data: networkData(d, a),
		})
	}
	for _, a := range removed {
		hub.Publish(events.Event{
			Type: events.EventWirelessNetworkGone,
			Data: networkData(d, a),
		})
	}
}

func networkData(d *device.Device, a *ap.AccessPoint) events.NetworkData {
	data := events.NetworkData{
		DevicePath:  d.Path(),
		Iface:       d.Iface(),
		ESSID:       a.ESSID(),
		NetworkPath: d.PathForAP(a),
	}
	if b := a.BSSID(); b != nil {
		data.BSSID = b.String()
	}
	return data
}
