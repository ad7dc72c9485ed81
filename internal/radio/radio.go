// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package radio abstracts the per-interface kernel control surface: the
// wireless-extension ioctls for radios, netlink for link flags and
// addresses, and the MII registers for wired link probing.  A synthetic
// implementation backs test devices.
package radio

import (
	"net"
	"time"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/errors"
)

// ErrScanNoData is returned when the driver has not finished compiling
// scan results yet.
var ErrScanNoData = errors.New(errors.KindIO, "scan results not ready")

// Caps enforced on values passed to the driver.
const (
	ESSIDMaxSize     = 32 // IW_ESSID_MAX_SIZE
	EncodingTokenMax = 64 // IW_ENCODING_TOKEN_MAX
)

// SignalStats is one signal-quality reading.
type SignalStats struct {
	Percent    int8 // 0-100, -1 when the reading is invalid
	Noise      uint8
	MaxQuality uint8
}

// RangeInfo describes the radio's capabilities.  Frequencies and Channels
// are parallel: Channels[i] is the channel number broadcast on
// Frequencies[i].
type RangeInfo struct {
	NumFrequency int
	Frequencies  []float64
	Channels     []int
	MaxQuality   uint8
}

// ChannelForFreq returns the channel number for a frequency the card
// supports, or 0 if unknown.
func (r RangeInfo) ChannelForFreq(freq float64) int {
	for i, f := range r.Frequencies {
		if f == freq && i < len(r.Channels) {
			return r.Channels[i]
		}
	}
	return 0
}

// FreqForChannel returns the frequency for a channel the card supports, or
// 0 if unknown.
func (r RangeInfo) FreqForChannel(channel int) float64 {
	for i, c := range r.Channels {
		if c == channel && i < len(r.Frequencies) {
			return r.Frequencies[i]
		}
	}
	return 0
}

// AssociationPause returns how long to wait after pushing config before
// checking for a link.  Cards with more than 14 channels (A/B/G chipsets)
// need longer to sweep them all.
func (r RangeInfo) AssociationPause() time.Duration {
	if r.NumFrequency > 14 {
		return 10 * time.Second
	}
	return 5 * time.Second
}

// ScanResult is one raw driver scan record, prior to reconciliation.
type ScanResult struct {
	HasESSID    bool
	ESSID       string
	HasBSSID    bool
	BSSID       net.HardwareAddr
	HasMode     bool
	Mode        ap.Mode
	HasFreq     bool
	Freq        float64
	KeyDisabled bool // encode flags reported encryption off
	HasKeyFlags bool
	Quality     uint8
}

// Control is the typed wrapper over one interface's kernel surface.  Every
// primitive either succeeds or fails with a KindIO error; drivers that
// silently ignore a command are treated as successful.
type Control interface {
	Iface() string

	BringUp() error
	BringDown() error
	IsUp() (bool, error)

	ESSID() (string, error)
	SetESSID(essid string) error
	Mode() (ap.Mode, error)
	SetMode(m ap.Mode) error
	Frequency() (float64, error)
	SetFrequency(freq float64) error
	Bitrate() (int, error)
	SetBitrate(kbps int) error

	// SetEncryptionKey installs a raw hex key.  An empty key disables
	// encryption on the card.
	SetEncryptionKey(hexKey string, auth ap.AuthMethod) error

	AssociatedBSSID() (net.HardwareAddr, error)
	// WirelessName is the driver's protocol name; some drivers report the
	// literal "unassociated" here when there is no link.
	WirelessName() string
	SignalStats() (SignalStats, error)
	BadCryptPackets() (uint32, error)
	Range() (RangeInfo, error)
	Scan() ([]ScanResult, error)

	MIILink() (bool, error)
	IP4Address() (net.IP, error)
	HardwareAddr() (net.HardwareAddr, error)

	// SupportsWirelessExtensions reports whether the interface answers the
	// wireless name ioctl; it decides the device kind at creation.
	SupportsWirelessExtensions() bool
	// SupportsScan reports whether a trial scan was accepted by the driver.
	SupportsScan() bool
}

// StrengthSampler smooths signal readings.  Some cards report no strength
// one second and a normal strength the next; up to three consecutive
// invalid readings repeat the last valid percent, the fourth forces the
// value to unknown.
type StrengthSampler struct {
	last         int8
	invalidCount int
}

// NewStrengthSampler starts with an unknown strength.
func NewStrengthSampler() *StrengthSampler {
	return &StrengthSampler{last: -1}
}

// Update folds in one reading and returns the smoothed percent.
func (s *StrengthSampler) Update(percent int8) int8 {
	if percent == -1 {
		s.invalidCount++
		if s.invalidCount <= 3 {
			return s.last
		}
		s.last = -1
		return -1
	}
	s.invalidCount = 0
	s.last = percent
	return percent
}

// QualityToPercent converts a raw quality reading against the card's
// maximum into a 0-100 percent, or -1 when nothing useful was reported.
func QualityToPercent(quality, maxQuality uint8) int8 {
	if maxQuality == 0 || quality == 0 {
		return -1
	}
	pct := int(quality) * 100 / int(maxQuality)
	if pct > 100 {
		pct = 100
	}
	return int8(pct)
}
