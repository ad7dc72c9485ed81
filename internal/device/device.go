// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package device models one managed network interface: its identity, link
// and address state, wireless sub-state, and best access point selection.
package device

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/clock"
	"grimm.is/linkmgr/internal/config"
	"grimm.is/linkmgr/internal/errors"
	"grimm.is/linkmgr/internal/events"
	"grimm.is/linkmgr/internal/hal"
	"grimm.is/linkmgr/internal/logging"
	"grimm.is/linkmgr/internal/netutil"
	"grimm.is/linkmgr/internal/radio"
	"grimm.is/linkmgr/internal/system"
)

// Kind is the device's hardware class.
type Kind int

const (
	KindUnknown Kind = iota
	KindWired
	KindWireless
)

func (k Kind) String() string {
	switch k {
	case KindWired:
		return "wired"
	case KindWireless:
		return "wireless"
	default:
		return "unknown"
	}
}

// Deps are the collaborators injected into every device.  The Allowed and
// Invalid lists are process-wide and shared across devices.
type Deps struct {
	Control radio.Control
	Store   hal.Store
	Helpers system.Helpers
	Hub     *events.Hub
	Clock   clock.Clock
	Allowed *ap.List
	Invalid *ap.List

	// DevicesRoot prefixes device and network object paths.
	DevicesRoot string
	// EnableTestDevices permits synthetic device creation.
	EnableTestDevices bool
}

// Device is one managed network interface.
type Device struct {
	udi        string
	iface      string
	kind       Kind
	support    hal.DriverSupport
	testDevice bool

	deps   Deps
	logger *logging.Logger

	mu         sync.Mutex
	linkActive bool
	ip4        net.IP
	hwAddr     net.HardwareAddr
	cfg        config.Device

	wireless *Wireless

	// Activation communication flags, owned by the device and driven by
	// the activation worker.  activating covers the phase up to DONE;
	// workerAlive covers the whole worker lifetime including the lease
	// maintenance loop.
	activating  atomic.Bool
	workerAlive atomic.Bool
	quit        atomic.Bool
}

// New creates a device for an interface.  Real hardware is probed for its
// kind; test devices carry the declared kind and must be enabled by
// configuration.
func New(iface, udi string, testDevice bool, testKind Kind, deps Deps) (*Device, error) {
	if iface == "" {
		return nil, errors.New(errors.KindInvalidArgument, "device requires an interface name")
	}
	if testDevice && testKind == KindUnknown {
		return nil, errors.New(errors.KindInvalidArgument, "test devices must declare a kind")
	}
	if testDevice && !deps.EnableTestDevices {
		return nil, errors.New(errors.KindInvalidArgument,
			"attempt to create a test device, but test devices are not enabled")
	}
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}

	d := &Device{
		udi:        udi,
		iface:      iface,
		testDevice: testDevice,
		deps:       deps,
		logger:     logging.WithComponent("device").WithFields("iface", iface),
	}

	if testDevice {
		d.kind = testKind
	} else if deps.Control.SupportsWirelessExtensions() {
		d.kind = KindWireless
	} else {
		d.kind = KindWired
	}

	if testDevice {
		d.support = hal.DriverFullySupported
	} else {
		d.support = deps.Store.DriverSupport(iface)
	}

	// The device has to be up before link status and radio capabilities
	// can be read.
	d.EnsureUp()

	if d.kind == KindWireless {
		w := newWireless()
		w.scanCapable = deps.Control.SupportsScan()
		_ = deps.Control.SetMode(ap.ModeInfrastructure)
		if ri, err := deps.Control.Range(); err == nil {
			w.rangeInfo = ri
		}
		d.wireless = w
	}

	if d.support != hal.DriverUnsupported {
		d.UpdateLinkActive(true)
		d.UpdateIP4Address()
		d.UpdateHWAddress()
	}

	return d, nil
}

func (d *Device) UDI() string { return d.udi }
func (d *Device) Iface() string { return d.iface }
func (d *Device) Kind() Kind { return d.kind }
func (d *Device) IsWireless() bool { return d.kind == KindWireless }
func (d *Device) IsWired() bool { return d.kind == KindWired }
func (d *Device) IsTestDevice() bool { return d.testDevice }
func (d *Device) Control() radio.Control { return d.deps.Control }
func (d *Device) Hub() *events.Hub { return d.deps.Hub }
func (d *Device) Clock() clock.Clock { return d.deps.Clock }
func (d *Device) Helpers() system.Helpers { return d.deps.Helpers }
func (d *Device) Allowed() *ap.List { return d.deps.Allowed }
func (d *Device) Invalid() *ap.List { return d.deps.Invalid }

// DriverSupport returns the driver classification set at creation.
func (d *Device) DriverSupport() hal.DriverSupport { return d.support }

// Config returns the device's static/DHCP configuration record.
func (d *Device) Config() config.Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// SetConfig installs the device's configuration record.
func (d *Device) SetConfig(cfg config.Device) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

// UseDHCP reports whether the device is configured for DHCP.  Devices with
// no configuration record default to DHCP.
func (d *Device) UseDHCP() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Name == "" || d.cfg.DHCP
}

// Path returns the device's stable object path.
func (d *Device) Path() string {
	return fmt.Sprintf("%s/%s", d.deps.DevicesRoot, d.iface)
}

// PathForAP returns the object path for an access point in this device's
// list.  Access points without an ESSID have no path.
func (d *Device) PathForAP(a *ap.AccessPoint) string {
	if a == nil || a.ESSID() == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/Networks/%s", d.deps.DevicesRoot, d.iface, a.ESSID())
}

// LinkActive reports the current link flag.
func (d *Device) LinkActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.linkActive
}

// SetLinkActive sets the link flag directly.  Test devices have their link
// state driven this way.
func (d *Device) SetLinkActive(link bool) {
	d.mu.Lock()
	d.linkActive = link
	d.mu.Unlock()
}

// UpdateLinkActive re-reads the link state from the hardware.  For wired
// devices checkMII selects the MII register probe over the property store;
// the registers are authoritative right after card insertion, before the
// property store has caught up.
func (d *Device) UpdateLinkActive(checkMII bool) {
	var link bool
	switch d.kind {
	case KindWireless:
		link = d.wirelessLinkActive()
		d.UpdateSignalStrength()
	case KindWired:
		link = d.wiredLinkActive(checkMII)
	default:
		link = d.LinkActive()
	}

	if link != d.LinkActive() {
		d.SetLinkActive(link)
	}
}

// wiredLinkActive reads link state from the property store, or from the
// MII registers when asked.
func (d *Device) wiredLinkActive(checkMII bool) bool {
	if d.testDevice {
		return d.LinkActive()
	}
	if checkMII {
		link, err := d.deps.Control.MIILink()
		if err != nil {
			d.logger.WithError(err).Debug("MII probe failed")
			return false
		}
		return link
	}
	udi := "class/net/" + d.iface
	if d.deps.Store.Exists(udi, "carrier") {
		return d.deps.Store.GetBool(udi, "carrier")
	}
	return false
}

// IP4Address returns the cached IPv4 address, or nil.
func (d *Device) IP4Address() net.IP {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ip4
}

// UpdateIP4Address re-reads the interface address and publishes a change
// event when it moved.
func (d *Device) UpdateIP4Address() {
	addr, err := d.deps.Control.IP4Address()
	if err != nil {
		return
	}

	d.mu.Lock()
	changed := (addr == nil) != (d.ip4 == nil) || (addr != nil && !addr.Equal(d.ip4))
	d.ip4 = addr
	d.mu.Unlock()

	if changed && d.deps.Hub != nil {
		text := ""
		if addr != nil {
			text = addr.String()
		}
		d.deps.Hub.Publish(events.Event{
			Type: events.EventDeviceIP4AddressChanged,
			Data: events.IP4AddressData{DevicePath: d.Path(), Iface: d.iface, Address: text},
		})
	}
}

// ClearIP4Address drops the cached address without touching the kernel.
func (d *Device) ClearIP4Address() {
	d.mu.Lock()
	d.ip4 = nil
	d.mu.Unlock()
}

// UpdateIP6Address is a stub; IPv6 configuration is not modelled.
func (d *Device) UpdateIP6Address() {}

// HardwareAddr returns the cached hardware address.
func (d *Device) HardwareAddr() net.HardwareAddr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hwAddr
}

// UpdateHWAddress re-reads the interface hardware address.
func (d *Device) UpdateHWAddress() {
	hw, err := d.deps.Control.HardwareAddr()
	if err != nil {
		return
	}
	d.mu.Lock()
	d.hwAddr = hw
	d.mu.Unlock()
}

// EnsureUp brings the interface up only when it is not already up.
func (d *Device) EnsureUp() {
	if d.support == hal.DriverUnsupported {
		return
	}
	up, err := d.deps.Control.IsUp()
	if err == nil && up {
		return
	}
	if err := d.deps.Control.BringUp(); err != nil {
		d.logger.WithError(err).Warn("Could not bring device up")
	}
}

// BringDown takes the interface down.
func (d *Device) BringDown() {
	if d.support == hal.DriverUnsupported {
		return
	}
	if err := d.deps.Control.BringDown(); err != nil {
		d.logger.WithError(err).Warn("Could not bring device down")
	}
}

// IsUp reports the interface admin state.
func (d *Device) IsUp() bool {
	up, err := d.deps.Control.IsUp()
	return err == nil && up
}

// IsActivating reports whether an activation worker is running.
func (d *Device) IsActivating() bool { return d.activating.Load() }

// SetActivating is driven by the activation worker at its start and end.
func (d *Device) SetActivating(activating bool) {
	d.activating.Store(activating)
	if !activating && d.wireless != nil {
		d.wireless.wakeKeyWaiters()
	}
}

// WorkerAlive reports whether an activation worker goroutine exists for
// the device, including one parked in the lease maintenance loop.
func (d *Device) WorkerAlive() bool { return d.workerAlive.Load() }

// SetWorkerAlive brackets the worker goroutine's lifetime.
func (d *Device) SetWorkerAlive(alive bool) { d.workerAlive.Store(alive) }

// ShouldCancelActivation reports whether the worker was told to stop.
func (d *Device) ShouldCancelActivation() bool { return d.quit.Load() }

// ClearCancel resets the cancel flag, at worker start and exit.
func (d *Device) ClearCancel() { d.quit.Store(false) }

// CancelActivation signals the activation worker to stop and waits until
// it has terminated.  Idempotent; a second cancel still blocks until the
// worker is gone.
func (d *Device) CancelActivation() {
	if !d.WorkerAlive() {
		return
	}
	d.logger.Debug("Cancelling activation")
	d.quit.Store(true)
	if d.wireless != nil {
		d.wireless.wakeKeyWaiters()
	}
	for d.WorkerAlive() {
		d.deps.Clock.Sleep(500 * time.Millisecond)
	}
	d.logger.Debug("Activation cancelled")
}

// Deactivate tears the device down: any running activation is cancelled,
// routes and addresses are flushed, and the radio is left clean.  The
// status event is suppressed for devices that were just added.
func (d *Device) Deactivate(justAdded bool) {
	d.CancelActivation()

	if d.support == hal.DriverUnsupported {
		return
	}

	if !d.testDevice && d.deps.Helpers != nil {
		_ = d.deps.Helpers.FlushRoutes(d.iface)
		_ = d.deps.Helpers.FlushAddresses(d.iface)
	}
	d.ClearIP4Address()

	if !justAdded && d.deps.Hub != nil {
		d.deps.Hub.Publish(events.Event{
			Type: events.EventDeviceStatusChanged,
			Data: events.DeviceStatusData{DevicePath: d.Path(), Iface: d.iface, Status: events.StatusNoLongerActive},
		})
	}

	// Don't leave the card associated.
	if d.IsWireless() {
		_ = d.deps.Control.SetESSID("")
		_ = d.deps.Control.SetEncryptionKey("", ap.AuthNone)
		_ = d.deps.Control.SetMode(ap.ModeInfrastructure)
	}
}

// AssociationPause returns how long to wait for the card to associate.
func (d *Device) AssociationPause() time.Duration {
	if d.wireless == nil {
		return 5 * time.Second
	}
	return d.wireless.rangeInfo.AssociationPause()
}

// wirelessIsAssociated reports whether the card has associated with a base
// station.  Some drivers short-circuit via the protocol name; for the rest
// a valid associated address is the best available indicator.
func (d *Device) wirelessIsAssociated() bool {
	if d.testDevice {
		return d.LinkActive()
	}

	// Some cards (ipw2x00) report the literal "unassociated" as their
	// protocol name, which settles the question without an address check.
	if d.deps.Control.WirelessName() == "unassociated" {
		return false
	}

	// For everything else the best indicator of a link is whether the
	// card reports a valid associated base station address.
	addr, err := d.deps.Control.AssociatedBSSID()
	if err != nil {
		return false
	}
	return netutil.ValidBSSID(addr)
}

// wirelessLinkActive decides wireless link state: the card must be
// associated, there must be a best access point, and the radio must not
// need an AP switch.
func (d *Device) wirelessLinkActive() bool {
	if d.testDevice {
		return d.LinkActive()
	}
	if !d.wirelessIsAssociated() {
		return false
	}

	best := d.BestAP()
	if best == nil {
		return false
	}
	return !d.NeedAPSwitch()
}

// NeedAPSwitch reports whether the radio's ESSID differs from the best
// access point's, meaning a stale association.
func (d *Device) NeedAPSwitch() bool {
	if d.wireless == nil {
		return false
	}
	cur, err := d.deps.Control.ESSID()
	if err != nil {
		return true
	}

	best := d.BestAP()
	want := ""
	if best != nil {
		want = best.ESSID()
	}
	return cur != want
}

// UpdateSignalStrength samples the radio and smooths the reading.
func (d *Device) UpdateSignalStrength() {
	if d.wireless == nil {
		return
	}

	stats, err := d.deps.Control.SignalStats()
	if err != nil {
		stats = radio.SignalStats{Percent: -1}
	}

	d.wireless.mu.Lock()
	d.wireless.noise = stats.Noise
	d.wireless.maxQuality = stats.MaxQuality
	d.wireless.strength = d.wireless.sampler.Update(stats.Percent)
	d.wireless.mu.Unlock()
}

// SignalStrength returns the smoothed strength percent, -1 when unknown.
func (d *Device) SignalStrength() int8 {
	if d.wireless == nil {
		return -1
	}
	d.wireless.mu.Lock()
	defer d.wireless.mu.Unlock()
	return d.wireless.strength
}
