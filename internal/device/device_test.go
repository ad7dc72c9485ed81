// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/clock"
	"grimm.is/linkmgr/internal/config"
	"grimm.is/linkmgr/internal/events"
	"grimm.is/linkmgr/internal/hal"
	"grimm.is/linkmgr/internal/radio"
)

// fakeHelpers records system helper calls.
type fakeHelpers struct {
	calls []string
}

func (h *fakeHelpers) DeleteDefaultRoute() error {
	h.calls = append(h.calls, "delete_default_route")
	return nil
}
func (h *fakeHelpers) FlushRoutes(string) error {
	h.calls = append(h.calls, "flush_routes")
	return nil
}
func (h *fakeHelpers) FlushAddresses(string) error {
	h.calls = append(h.calls, "flush_addresses")
	return nil
}
func (h *fakeHelpers) FlushARPCache() error {
	h.calls = append(h.calls, "flush_arp")
	return nil
}
func (h *fakeHelpers) RestartMDNSResponder() error {
	h.calls = append(h.calls, "restart_mdns")
	return nil
}
func (h *fakeHelpers) SetupStaticIPv4(string, config.Device) error {
	h.calls = append(h.calls, "setup_static")
	return nil
}
func (h *fakeHelpers) ConfigureAutoIP(string) (bool, error) {
	h.calls = append(h.calls, "autoip")
	return true, nil
}

func testDeps(ctl radio.Control) Deps {
	return Deps{
		Control:     ctl,
		Store:       &hal.StaticStore{Support: hal.DriverFullySupported},
		Helpers:     &fakeHelpers{},
		Hub:         events.NewHub(),
		Clock:       clock.NewMockClock(time.Unix(1_000_000, 0)),
		Allowed:     ap.NewList(ap.ListAllowed),
		Invalid:     ap.NewList(ap.ListInvalid),
		DevicesRoot: "/org/linkmgr/Devices",
	}
}

func newWirelessDevice(t *testing.T, fake *radio.Fake) *Device {
	t.Helper()
	d, err := New("wlan0", "/devices/wlan0", false, KindUnknown, testDeps(fake))
	require.NoError(t, err)
	require.True(t, d.IsWireless())
	return d
}

func allowedEntry(l *ap.List, essid string, trusted bool, stamp int64, key string) *ap.AccessPoint {
	rec := ap.New()
	rec.SetESSID(essid)
	rec.SetTrusted(trusted)
	rec.SetTimestamp(time.Unix(stamp, 0))
	if key != "" {
		rec.SetEncrypted(true)
		rec.SetKeySource(key, ap.KeyTypeHex)
	}
	l.Append(rec)
	return rec
}

func visibleEntry(l *ap.List, essid string) *ap.AccessPoint {
	rec := ap.New()
	rec.SetESSID(essid)
	l.Append(rec)
	return rec
}

func TestNewProbesKind(t *testing.T) {
	wireless := radio.NewFake("wlan0")
	d, err := New("wlan0", "udi-1", false, KindUnknown, testDeps(wireless))
	require.NoError(t, err)
	assert.Equal(t, KindWireless, d.Kind())
	assert.True(t, d.ScanCapable())

	wired := radio.NewFake("eth0")
	wired.WExt = false
	d2, err := New("eth0", "udi-2", false, KindUnknown, testDeps(wired))
	require.NoError(t, err)
	assert.Equal(t, KindWired, d2.Kind())
}

func TestNewRejectsTestDeviceWithoutOptIn(t *testing.T) {
	deps := testDeps(radio.NewSynthetic("testwlan0"))
	_, err := New("testwlan0", "udi-t", true, KindWireless, deps)
	require.Error(t, err)

	deps.EnableTestDevices = true
	d, err := New("testwlan0", "udi-t", true, KindWireless, deps)
	require.NoError(t, err)
	assert.True(t, d.IsTestDevice())
}

func TestNewRejectsTestDeviceWithoutKind(t *testing.T) {
	deps := testDeps(radio.NewSynthetic("testwlan0"))
	deps.EnableTestDevices = true
	_, err := New("testwlan0", "udi-t", true, KindUnknown, deps)
	require.Error(t, err)
}

func TestPathForAP(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	named := ap.New()
	named.SetESSID("home")
	assert.Equal(t, "/org/linkmgr/Devices/wlan0/Networks/home", d.PathForAP(named))

	blank := ap.New()
	assert.Equal(t, "", d.PathForAP(blank), "APs with no ESSID have no path")
}

func TestUpdateBestAPPrefersTrusted(t *testing.T) {
	fake := radio.NewFake("wlan0")
	d := newWirelessDevice(t, fake)

	allowedEntry(d.Allowed(), "trusted-net", true, 100, "")
	allowedEntry(d.Allowed(), "untrusted-net", false, 900, "")

	visible := ap.NewList(ap.ListDeviceScan)
	visibleEntry(visible, "trusted-net")
	visibleEntry(visible, "untrusted-net")
	d.SetAPList(visible)

	d.UpdateBestAP()

	best := d.BestAP()
	require.NotNil(t, best)
	assert.Equal(t, "trusted-net", best.ESSID(), "trusted wins over a fresher untrusted entry")
}

func TestUpdateBestAPLatestTimestampWins(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	allowedEntry(d.Allowed(), "older", true, 100, "")
	allowedEntry(d.Allowed(), "newer", true, 500, "")

	visible := ap.NewList(ap.ListDeviceScan)
	visibleEntry(visible, "older")
	visibleEntry(visible, "newer")
	d.SetAPList(visible)

	d.UpdateBestAP()
	require.NotNil(t, d.BestAP())
	assert.Equal(t, "newer", d.BestAP().ESSID())
}

func TestUpdateBestAPSkipsInvalid(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	allowedEntry(d.Allowed(), "bad", true, 900, "")
	allowedEntry(d.Allowed(), "good", false, 100, "")

	invalid := ap.New()
	invalid.SetESSID("bad")
	d.Invalid().Append(invalid)

	visible := ap.NewList(ap.ListDeviceScan)
	visibleEntry(visible, "bad")
	visibleEntry(visible, "good")
	d.SetAPList(visible)

	d.UpdateBestAP()
	require.NotNil(t, d.BestAP())
	assert.Equal(t, "good", d.BestAP().ESSID())
}

func TestUpdateBestAPCopiesKeyMaterial(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	allowedEntry(d.Allowed(), "secure", true, 100, "deadbeef01")

	visible := ap.NewList(ap.ListDeviceScan)
	scanRec := ap.New()
	scanRec.SetESSID("secure")
	scanRec.SetEncrypted(true)
	visible.Append(scanRec)
	d.SetAPList(visible)

	d.UpdateBestAP()
	best := d.BestAP()
	require.NotNil(t, best)
	key, kt := best.KeySource()
	assert.Equal(t, "deadbeef01", key)
	assert.Equal(t, ap.KeyTypeHex, kt)
}

func TestUpdateBestAPNoCandidateClearsRadio(t *testing.T) {
	fake := radio.NewFake("wlan0")
	d := newWirelessDevice(t, fake)

	d.SetAPList(ap.NewList(ap.ListDeviceScan))
	d.UpdateBestAP()

	assert.Nil(t, d.BestAP())
	essid, _ := fake.ESSID()
	assert.Equal(t, " ", essid, "ESSID cleared to a single space")
	assert.Equal(t, "", fake.LastKey, "key cleared")
	up, _ := fake.IsUp()
	assert.True(t, up, "interface stays up, unconfigured")
}

func TestFrozenBestAPSurvivesWhileVisible(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	allowedEntry(d.Allowed(), "lab", false, 100, "")
	allowedEntry(d.Allowed(), "other", true, 900, "")

	visible := ap.NewList(ap.ListDeviceScan)
	lab := visibleEntry(visible, "lab")
	visibleEntry(visible, "other")
	d.SetAPList(visible)

	d.SetBestAP(lab)
	d.FreezeBestAP()

	d.UpdateBestAP()
	require.NotNil(t, d.BestAP())
	assert.Equal(t, "lab", d.BestAP().ESSID(), "frozen selection must not be overwritten while visible")
	assert.True(t, d.BestAPFrozen())
}

func TestFrozenBestAPClearedWhenGone(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	allowedEntry(d.Allowed(), "other", true, 900, "")

	lab := ap.New()
	lab.SetESSID("lab")
	d.SetBestAP(lab)
	d.FreezeBestAP()

	// Next scan: "lab" is not visible any more.
	visible := ap.NewList(ap.ListDeviceScan)
	visibleEntry(visible, "other")
	d.SetAPList(visible)

	d.UpdateBestAP()
	require.NotNil(t, d.BestAP())
	assert.Equal(t, "other", d.BestAP().ESSID())
	assert.False(t, d.BestAPFrozen(), "freeze cleared when the AP disappears")
}

func TestFrozenUserCreatedAPSurvivesScans(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	mine := ap.New()
	mine.SetESSID("my-adhoc")
	mine.SetUserCreated(true)
	d.SetBestAP(mine)
	d.FreezeBestAP()

	d.SetAPList(ap.NewList(ap.ListDeviceScan))
	d.UpdateBestAP()

	require.NotNil(t, d.BestAP())
	assert.Equal(t, "my-adhoc", d.BestAP().ESSID())
}

func TestSetUserKeyForNetworkStoresKey(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	best := ap.New()
	best.SetESSID("wifi")
	best.SetEncrypted(true)
	d.SetBestAP(best)

	d.SetUserKeyForNetwork("wifi", "cafef00d11", ap.KeyTypeHex)

	key, _ := best.KeySource()
	assert.Equal(t, "cafef00d11", key)
}

func TestSetUserKeyForNetworkCancelInvalidates(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	visible := ap.NewList(ap.ListDeviceScan)
	wifi := visibleEntry(visible, "wifi")
	wifi.SetEncrypted(true)
	d.SetAPList(visible)
	d.SetBestAP(wifi)

	d.SetUserKeyForNetwork("wifi", events.CancelKeySentinel, ap.KeyTypeUnknown)

	assert.NotNil(t, d.Invalid().GetByESSID("wifi"), "cancelled AP lands in the invalid list")
	assert.Nil(t, d.BestAP(), "best selection recomputed without the invalid AP")
}

func TestWaitUserKeyUnblocksOnReply(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))
	d.SetActivating(true)
	d.ResetUserKeyWait()

	done := make(chan bool, 1)
	go func() {
		done <- d.WaitUserKey()
	}()

	d.SetUserKeyForNetwork("wifi", "deadbeef01", ap.KeyTypeHex)

	select {
	case got := <-done:
		assert.True(t, got)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitUserKey did not return after reply")
	}
}

func TestNeedAPSwitch(t *testing.T) {
	fake := radio.NewFake("wlan0")
	d := newWirelessDevice(t, fake)

	best := ap.New()
	best.SetESSID("home")
	d.SetBestAP(best)

	_ = fake.SetESSID("other")
	assert.True(t, d.NeedAPSwitch())

	_ = fake.SetESSID("home")
	assert.False(t, d.NeedAPSwitch())
}

func TestAssociationProbeDoesNotMutateRadio(t *testing.T) {
	fake := radio.NewFake("wlan0")
	fake.LinkWhen = func(*radio.Fake) bool { return true }
	d := newWirelessDevice(t, fake)

	before := len(fake.OpLog())
	d.UpdateLinkActive(false)
	for _, op := range fake.OpLog()[before:] {
		assert.NotContains(t, op, "set_", "association probe must use the get path only")
	}
}

func TestDeactivateCleansRadio(t *testing.T) {
	fake := radio.NewFake("wlan0")
	deps := testDeps(fake)
	helpers := deps.Helpers.(*fakeHelpers)
	d, err := New("wlan0", "udi", false, KindUnknown, deps)
	require.NoError(t, err)

	_ = fake.SetESSID("home")
	d.Deactivate(false)

	assert.Contains(t, helpers.calls, "flush_routes")
	assert.Contains(t, helpers.calls, "flush_addresses")
	essid, _ := fake.ESSID()
	assert.Equal(t, "", essid)
	mode, _ := fake.Mode()
	assert.Equal(t, ap.ModeInfrastructure, mode)
	assert.Nil(t, d.IP4Address())
}

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry()
	d1 := newWirelessDevice(t, radio.NewFake("wlan0"))
	reg.Add(d1)

	assert.Equal(t, d1, reg.ByIface("wlan0"))
	assert.Equal(t, d1, reg.ByUDI("/devices/wlan0"))
	assert.Nil(t, reg.ByIface("eth9"))

	reg.Remove(d1)
	assert.Nil(t, reg.ByIface("wlan0"))
}

func TestCancelActivationIdempotent(t *testing.T) {
	d := newWirelessDevice(t, radio.NewFake("wlan0"))

	// No activation running: both cancels are observationally no-ops.
	d.CancelActivation()
	d.CancelActivation()
	assert.False(t, d.IsActivating())
	assert.False(t, d.ShouldCancelActivation())
}
