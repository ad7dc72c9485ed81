// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package radio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAssociationPause(t *testing.T) {
	assert.Equal(t, 5*time.Second, RangeInfo{NumFrequency: 11}.AssociationPause())
	assert.Equal(t, 5*time.Second, RangeInfo{NumFrequency: 14}.AssociationPause())
	assert.Equal(t, 10*time.Second, RangeInfo{NumFrequency: 15}.AssociationPause())
	assert.Equal(t, 10*time.Second, RangeInfo{NumFrequency: 32}.AssociationPause())
}

func TestMIILinkFromStatus(t *testing.T) {
	cases := map[uint16]bool{
		0x0004: true,  // link up, clean
		0x0014: false, // remote fault
		0x0024: true,  // autoneg complete + link
		0x7804: true,  // capabilities + link
		0x0000: false, // no link
		0x0006: false, // jabber
	}
	for status, want := range cases {
		assert.Equal(t, want, MIILinkFromStatus(status), "status 0x%04x", status)
	}
}

func TestStrengthSamplerSmoothing(t *testing.T) {
	s := NewStrengthSampler()

	assert.Equal(t, int8(60), s.Update(60))

	// Up to three invalid readings repeat the last valid percent.
	assert.Equal(t, int8(60), s.Update(-1))
	assert.Equal(t, int8(60), s.Update(-1))
	assert.Equal(t, int8(60), s.Update(-1))

	// The fourth forces unknown.
	assert.Equal(t, int8(-1), s.Update(-1))

	// A valid reading resets the counter.
	assert.Equal(t, int8(42), s.Update(42))
	assert.Equal(t, int8(42), s.Update(-1))
}

func TestQualityToPercent(t *testing.T) {
	assert.Equal(t, int8(-1), QualityToPercent(0, 100))
	assert.Equal(t, int8(-1), QualityToPercent(50, 0))
	assert.Equal(t, int8(50), QualityToPercent(50, 100))
	assert.Equal(t, int8(100), QualityToPercent(200, 100), "clamped at 100")
}

func TestRangeChannelLookups(t *testing.T) {
	ri := RangeInfo{
		Frequencies: []float64{2412000000, 2417000000, 2422000000},
		Channels:    []int{1, 2, 3},
	}
	assert.Equal(t, 2, ri.ChannelForFreq(2417000000))
	assert.Equal(t, 0, ri.ChannelForFreq(5180000000))
	assert.Equal(t, 2422000000.0, ri.FreqForChannel(3))
	assert.Equal(t, 0.0, ri.FreqForChannel(36))
}

func TestFreqToFloat(t *testing.T) {
	assert.Equal(t, 2412000000.0, freqToFloat(2412, 6))
	assert.Equal(t, 2412.0, freqToFloat(2412, 0))
	assert.Equal(t, 24.12, freqToFloat(2412, -2))
}

func TestSyntheticDeterminism(t *testing.T) {
	s := NewSynthetic("testwlan0")

	freq, _ := s.Frequency()
	assert.Equal(t, syntheticFreq, freq)

	rate, _ := s.Bitrate()
	assert.Equal(t, 11, rate)

	stats, _ := s.SignalStats()
	assert.Equal(t, int8(75), stats.Percent)

	ip, _ := s.IP4Address()
	assert.Equal(t, "7.3.7.3", ip.String())

	// Associated address tracks link state.
	bssid, _ := s.AssociatedBSSID()
	assert.Equal(t, "00:00:00:00:00:00", bssid.String())
	s.SetLink(true)
	bssid, _ = s.AssociatedBSSID()
	assert.Equal(t, "70:37:03:70:37:03", bssid.String())
}

func TestFakeEncryptionKeyBoundaries(t *testing.T) {
	f := NewFake("wlan0")

	// An empty key disables encryption.
	_ = f.SetEncryptionKey("", 0)
	ops := f.OpLog()
	assert.Equal(t, "clear_key", ops[len(ops)-1])

	// Key material is capped at the encoding token size.
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	_ = f.SetEncryptionKey(string(long), 0)
	assert.Len(t, f.LastKey, EncodingTokenMax)
}

func TestSyntheticUpDownRoundTrip(t *testing.T) {
	s := NewSynthetic("testwlan0")

	up, _ := s.IsUp()
	assert.False(t, up)

	_ = s.BringUp()
	up, _ = s.IsUp()
	assert.True(t, up)

	_ = s.BringDown()
	up, _ = s.IsUp()
	assert.False(t, up)
}

func TestSyntheticESSIDRoundTrip(t *testing.T) {
	s := NewSynthetic("testwlan0")
	_ = s.SetESSID("home")
	got, _ := s.ESSID()
	assert.Equal(t, "home", got)

	// 32-byte cap applies to synthetic devices too.
	long := "0123456789012345678901234567890123456789"
	_ = s.SetESSID(long)
	got, _ = s.ESSID()
	assert.Len(t, got, ESSIDMaxSize)
}
