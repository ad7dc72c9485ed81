// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package activation drives a device from "candidate selected" to "usable
// default route with an address".  Each activation runs on its own worker
// goroutine and is cooperatively cancellable at every suspension point.
package activation

import (
	"github.com/google/uuid"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/device"
	"grimm.is/linkmgr/internal/dhcp"
	"grimm.is/linkmgr/internal/errors"
	"grimm.is/linkmgr/internal/events"
	"grimm.is/linkmgr/internal/hal"
	"grimm.is/linkmgr/internal/logging"
	"grimm.is/linkmgr/internal/metrics"
)

// Engine owns activation workers and their collaborators.
type Engine struct {
	dhcp   dhcp.Client
	logger *logging.Logger

	// startingUp is true during initial process boot; a wired device that
	// already has an address then completes without touching the kernel.
	startingUp bool

	// OnFinish, when set, is invoked by the worker with the activation
	// outcome after the final events are published.
	OnFinish func(d *device.Device, success bool)
}

// NewEngine creates an activation engine.
func NewEngine(dhcpClient dhcp.Client) *Engine {
	return &Engine{
		dhcp:       dhcpClient,
		logger:     logging.WithComponent("activation"),
		startingUp: true,
	}
}

// SetStartingUp toggles the boot special case; the daemon clears it once
// initial device discovery is done.
func (e *Engine) SetStartingUp(startingUp bool) {
	e.startingUp = startingUp
}

// request is one in-flight activation.
type request struct {
	id    string
	dev   *device.Device
	phase Phase
	lease *dhcp.Lease
}

func (r *request) setPhase(p Phase) {
	r.phase = p
	metrics.ActivationPhase.WithLabelValues(r.dev.Iface()).Set(float64(p))
}

// Begin starts an activation worker for the device.  It is a no-op when an
// activation is already running; unsupported drivers are rejected.
func (e *Engine) Begin(d *device.Device) error {
	if d.IsActivating() {
		return nil
	}
	if d.DriverSupport() == hal.DriverUnsupported {
		return errors.Errorf(errors.KindNoDriverSupport, "cannot activate %s: driver is unsupported", d.Iface())
	}

	d.SetActivating(true)
	d.ClearCancel()
	if d.IsWireless() {
		d.SetNowScanning(false)
	}

	// Plays nicer with the system when the daemon starts after a network
	// is already set up: a configured wired device is simply adopted.
	if e.startingUp && d.IsWired() && d.IP4Address() != nil {
		d.SetActivating(false)
		e.finish(d, true)
		return nil
	}

	req := &request{id: uuid.NewString(), dev: d}
	req.setPhase(PhasePrepare)

	metrics.ActivationAttempts.WithLabelValues(d.Iface()).Inc()
	d.Hub().Publish(events.Event{
		Type: events.EventDeviceStatusChanged,
		Data: events.DeviceStatusData{DevicePath: d.Path(), Iface: d.Iface(), Status: events.StatusActivating},
	})

	d.SetWorkerAlive(true)
	go e.worker(req)
	return nil
}

// Cancel stops the device's activation and blocks until the worker has
// unwound.  A second cancel is a no-op that still waits.
func (e *Engine) Cancel(d *device.Device) {
	if d.WorkerAlive() {
		e.dhcp.Cease(d.Iface())
	}
	d.CancelActivation()
}

// worker drives one activation to completion.
func (e *Engine) worker(req *request) {
	d := req.dev
	log := e.logger.WithFields("iface", d.Iface(), "request", req.id)
	log.Debug("Activation worker started")

	defer func() {
		metrics.ActivationPhase.WithLabelValues(d.Iface()).Set(float64(PhaseDone))
		e.dhcp.Free(d.Iface())
		d.SetActivating(false)
		d.ClearCancel()
		d.SetWorkerAlive(false)
		log.Debug("Activation worker ending")
	}()

	d.EnsureUp()

	var success bool
	switch {
	case d.IsWireless():
		best := d.BestAP()
		if best != nil && best.UserCreated() {
			log.Info("Creating wireless network", "essid", essidOrNone(best))
			success = e.activateAdHoc(req, best)
			log.Info("Wireless network creation finished", "essid", essidOrNone(best), "success", success)
		} else {
			success = e.activateWireless(req)
		}
	case d.IsWired():
		req.setPhase(PhaseConfigureIP)
		success = e.configureIP(req, false)
	}

	if e.handleCancel(req) {
		return
	}

	if !success {
		log.Info("Activation failed", "essid", deviceESSID(d))
		req.setPhase(PhaseFailed)
		metrics.ActivationResults.WithLabelValues(d.Iface(), "failure").Inc()
		d.SetActivating(false)
		d.ClearCancel()
		if e.OnFinish != nil {
			e.OnFinish(d, false)
		}
		return
	}

	d.SetActivating(false)
	d.ClearCancel()
	metrics.ActivationResults.WithLabelValues(d.Iface(), "success").Inc()
	log.Info("Device activated", "essid", deviceESSID(d))
	e.finish(d, true)

	// Static devices need no lease maintenance; everything else stays in
	// the running loop until the lease is released or a cancel arrives.
	if !d.UseDHCP() || req.lease == nil {
		return
	}
	req.setPhase(PhaseRunning)
	e.runLeaseLoop(req)
}

// finish publishes the final state of a successful activation.
func (e *Engine) finish(d *device.Device, success bool) {
	if success {
		d.UpdateIP4Address()
		d.Hub().Publish(events.Event{
			Type: events.EventDeviceStatusChanged,
			Data: events.DeviceStatusData{DevicePath: d.Path(), Iface: d.Iface(), Status: events.StatusNowActive},
		})
	}
	if e.OnFinish != nil {
		e.OnFinish(d, success)
	}
}

// handleCancel checks the cancel flag and unwinds the worker if set: the
// radio is left clean and the activation flags reset.
func (e *Engine) handleCancel(req *request) bool {
	d := req.dev
	if !d.ShouldCancelActivation() {
		return false
	}

	e.logger.Debug("Activation cancelled", "iface", d.Iface())
	req.setPhase(PhaseCancelled)
	metrics.ActivationResults.WithLabelValues(d.Iface(), "cancelled").Inc()

	if d.IsWireless() {
		ctl := d.Control()
		_ = ctl.SetESSID("")
		_ = ctl.SetEncryptionKey("", ap.AuthNone)
		_ = ctl.SetMode(ap.ModeInfrastructure)
	}

	d.SetActivating(false)
	d.ClearCancel()
	return true
}

func essidOrNone(a *ap.AccessPoint) string {
	if a == nil || a.ESSID() == "" {
		return "(none)"
	}
	return a.ESSID()
}

func deviceESSID(d *device.Device) string {
	if best := d.BestAP(); best != nil {
		return essidOrNone(best)
	}
	return "(none)"
}
