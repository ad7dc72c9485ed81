// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/radio"
)

func TestWirelessNetworkExistsFallsThroughAuthModes(t *testing.T) {
	fake := radio.NewFake("wlan0")
	d := newWirelessDevice(t, fake)

	// The network only accepts Open System authentication.
	fake.LinkWhen = func(f *radio.Fake) bool {
		return f.Essid == "cloaked-net" && f.LastAuth == ap.AuthOpenSystem && f.LastKey != ""
	}

	bssid, encrypted, ok := d.WirelessNetworkExists("cloaked-net", "", ap.KeyTypeUnknown)
	require.True(t, ok)
	assert.True(t, encrypted)
	require.NotNil(t, bssid)
	assert.Equal(t, "70:37:03:70:37:03", bssid.String())
}

func TestWirelessNetworkExistsKnownUnencryptedProbesOpenFirst(t *testing.T) {
	fake := radio.NewFake("wlan0")
	d := newWirelessDevice(t, fake)

	known := ap.New()
	known.SetESSID("open-net")
	known.SetEncrypted(false)
	d.APList().Append(known)

	// Associates only with encryption off.
	fake.LinkWhen = func(f *radio.Fake) bool {
		return f.Essid == "open-net" && f.LastKey == ""
	}

	_, encrypted, ok := d.WirelessNetworkExists("open-net", "", ap.KeyTypeUnknown)
	require.True(t, ok)
	assert.False(t, encrypted)

	// The unencrypted probe must have run before any keyed attempt.
	sawClear := false
	for _, op := range fake.OpLog() {
		if op == "clear_key" {
			sawClear = true
			break
		}
		if op == "set_key:shared key" || op == "set_key:open system" {
			t.Fatalf("keyed probe ran before the unencrypted one: %v", fake.OpLog())
		}
	}
	assert.True(t, sawClear)
}

func TestWirelessNetworkExistsNotFound(t *testing.T) {
	fake := radio.NewFake("wlan0")
	d := newWirelessDevice(t, fake)

	_, _, ok := d.WirelessNetworkExists("ghost", "", ap.KeyTypeUnknown)
	assert.False(t, ok)
}

func TestFindAndUseESSIDCreatesArtificialAP(t *testing.T) {
	fake := radio.NewFake("wlan0")
	d := newWirelessDevice(t, fake)

	fake.LinkWhen = func(f *radio.Fake) bool { return f.Essid == "invisible" }

	ok := d.FindAndUseESSID("invisible", "", ap.KeyTypeUnknown)
	require.True(t, ok)

	created := d.APList().GetByESSID("invisible")
	require.NotNil(t, created, "a record was created for the unseen network")
	assert.True(t, created.Artificial())

	best := d.BestAP()
	require.NotNil(t, best)
	assert.Equal(t, "invisible", best.ESSID())
	assert.True(t, d.BestAPFrozen(), "user-directed selection is frozen")
}

func TestFindAndUseESSIDInstallsUserKey(t *testing.T) {
	fake := radio.NewFake("wlan0")
	d := newWirelessDevice(t, fake)

	existing := ap.New()
	existing.SetESSID("wifi")
	existing.SetEncrypted(true)
	d.APList().Append(existing)

	fake.LinkWhen = func(f *radio.Fake) bool { return f.Essid == "wifi" }

	ok := d.FindAndUseESSID("wifi", "secret", ap.KeyTypePassphrase128)
	require.True(t, ok)

	key, kt := existing.KeySource()
	assert.Equal(t, "secret", key)
	assert.Equal(t, ap.KeyTypePassphrase128, kt)
}

func TestFindAndUseESSIDFailsForUnknownNetwork(t *testing.T) {
	fake := radio.NewFake("wlan0")
	d := newWirelessDevice(t, fake)

	ok := d.FindAndUseESSID("nowhere", "", ap.KeyTypeUnknown)
	assert.False(t, ok)
	assert.Nil(t, d.BestAP())
}
