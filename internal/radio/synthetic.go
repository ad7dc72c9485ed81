// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package radio

import (
	"net"
	"sync"

	"grimm.is/linkmgr/internal/ap"
)

// Synthetic values reported by test devices.
var (
	syntheticBSSID = net.HardwareAddr{0x70, 0x37, 0x03, 0x70, 0x37, 0x03}
	syntheticIP    = net.IPv4(0x07, 0x03, 0x07, 0x03)
)

const (
	syntheticFreq     = 703000000.0
	syntheticBitrate  = 11
	syntheticStrength = 75
)

// Synthetic is a deterministic Control for test devices.  Every primitive
// short-circuits to fixed values; link state is toggled externally.
type Synthetic struct {
	mu sync.Mutex

	iface   string
	up      bool
	link    bool
	essid   string
	mode    ap.Mode
	bitrate int
}

// NewSynthetic creates a synthetic control surface.
func NewSynthetic(iface string) *Synthetic {
	return &Synthetic{iface: iface, mode: ap.ModeInfrastructure, bitrate: syntheticBitrate}
}

func (s *Synthetic) Iface() string { return s.iface }

// SetLink toggles the simulated link state.
func (s *Synthetic) SetLink(link bool) {
	s.mu.Lock()
	s.link = link
	s.mu.Unlock()
}

// Link reports the simulated link state.
func (s *Synthetic) Link() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

func (s *Synthetic) BringUp() error {
	s.mu.Lock()
	s.up = true
	s.mu.Unlock()
	return nil
}

func (s *Synthetic) BringDown() error {
	s.mu.Lock()
	s.up = false
	s.mu.Unlock()
	return nil
}

func (s *Synthetic) IsUp() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.up, nil
}

func (s *Synthetic) ESSID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.essid, nil
}

func (s *Synthetic) SetESSID(essid string) error {
	if len(essid) > ESSIDMaxSize {
		essid = essid[:ESSIDMaxSize]
	}
	s.mu.Lock()
	s.essid = essid
	s.mu.Unlock()
	return nil
}

func (s *Synthetic) Mode() (ap.Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode, nil
}

func (s *Synthetic) SetMode(m ap.Mode) error {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	return nil
}

func (s *Synthetic) Frequency() (float64, error) { return syntheticFreq, nil }
func (s *Synthetic) SetFrequency(float64) error { return nil }

func (s *Synthetic) Bitrate() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bitrate, nil
}

func (s *Synthetic) SetBitrate(kbps int) error {
	s.mu.Lock()
	if kbps != 0 {
		s.bitrate = kbps
	} else {
		s.bitrate = syntheticBitrate
	}
	s.mu.Unlock()
	return nil
}

// SetEncryptionKey is ignored on test devices.
func (s *Synthetic) SetEncryptionKey(string, ap.AuthMethod) error { return nil }

// AssociatedBSSID returns a made-up address when there is a link, and an
// invalid one when there is not.
func (s *Synthetic) AssociatedBSSID() (net.HardwareAddr, error) {
	if s.Link() {
		return append(net.HardwareAddr(nil), syntheticBSSID...), nil
	}
	return net.HardwareAddr{0, 0, 0, 0, 0, 0}, nil
}

func (s *Synthetic) WirelessName() string { return "IEEE 802.11" }

func (s *Synthetic) SignalStats() (SignalStats, error) {
	return SignalStats{Percent: syntheticStrength, MaxQuality: 100}, nil
}

func (s *Synthetic) BadCryptPackets() (uint32, error) { return 0, nil }

func (s *Synthetic) Range() (RangeInfo, error) {
	ri := RangeInfo{NumFrequency: 11, MaxQuality: 100}
	for ch := 1; ch <= 11; ch++ {
		ri.Frequencies = append(ri.Frequencies, 2407000000+float64(ch)*5000000)
		ri.Channels = append(ri.Channels, ch)
	}
	return ri, nil
}

// Scan returns nothing; the reconciler fabricates scan data for test
// devices before reaching the driver.
func (s *Synthetic) Scan() ([]ScanResult, error) { return nil, nil }

func (s *Synthetic) MIILink() (bool, error) { return s.Link(), nil }

func (s *Synthetic) IP4Address() (net.IP, error) {
	return syntheticIP, nil
}

func (s *Synthetic) HardwareAddr() (net.HardwareAddr, error) {
	return net.HardwareAddr{0, 0, 0, 0, 0, 0}, nil
}

func (s *Synthetic) SupportsWirelessExtensions() bool { return false }
func (s *Synthetic) SupportsScan() bool { return true }
