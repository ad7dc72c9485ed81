// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package radio

import (
	"net"
	"sync"

	"grimm.is/linkmgr/internal/ap"
)

// Fake is a scriptable Control for tests.  Every call is recorded in Ops;
// association behaviour is driven by the LinkWhen hook.
type Fake struct {
	mu sync.Mutex

	IfaceName string
	Up        bool
	Essid     string
	CurMode   ap.Mode
	Freq      float64
	Rate      int
	LastKey   string
	LastAuth  ap.AuthMethod

	Name        string
	Stats       SignalStats
	RangeI      RangeInfo
	IP          net.IP
	HW          net.HardwareAddr
	WExt        bool
	CanScan     bool
	MII         bool
	BadDecrypts uint32

	// ScanQueue holds results returned by successive Scan calls; the last
	// entry repeats.  ScanErr, when set, fails every Scan.  NoDataScans
	// makes that many leading Scan calls report ErrScanNoData.
	ScanQueue   [][]ScanResult
	ScanErr     error
	NoDataScans int

	// LinkWhen decides whether AssociatedBSSID reports a valid base
	// station; nil means never associated.  It runs with the fake's lock
	// held: read fields directly, don't call accessor methods.
	LinkWhen func(f *Fake) bool

	// AssocBSSID is the address reported while LinkWhen allows it.
	AssocBSSID net.HardwareAddr

	Ops []string
}

// NewFake creates a fake with sane wireless defaults.
func NewFake(iface string) *Fake {
	ri := RangeInfo{NumFrequency: 11, MaxQuality: 100}
	for ch := 1; ch <= 11; ch++ {
		ri.Frequencies = append(ri.Frequencies, 2407000000+float64(ch)*5000000)
		ri.Channels = append(ri.Channels, ch)
	}
	return &Fake{
		IfaceName:  iface,
		CurMode:    ap.ModeInfrastructure,
		RangeI:     ri,
		WExt:       true,
		CanScan:    true,
		AssocBSSID: net.HardwareAddr{0x70, 0x37, 0x03, 0x70, 0x37, 0x03},
		Stats:      SignalStats{Percent: 70, MaxQuality: 100},
	}
}

func (f *Fake) record(op string) {
	f.Ops = append(f.Ops, op)
}

// OpLog returns the recorded operations.
func (f *Fake) OpLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Ops))
	copy(out, f.Ops)
	return out
}

func (f *Fake) Iface() string { return f.IfaceName }

func (f *Fake) BringUp() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("bring_up")
	f.Up = true
	return nil
}

func (f *Fake) BringDown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("bring_down")
	f.Up = false
	return nil
}

func (f *Fake) IsUp() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Up, nil
}

func (f *Fake) ESSID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Essid, nil
}

func (f *Fake) SetESSID(essid string) error {
	if len(essid) > ESSIDMaxSize {
		essid = essid[:ESSIDMaxSize]
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set_essid:" + essid)
	f.Essid = essid
	return nil
}

func (f *Fake) Mode() (ap.Mode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CurMode, nil
}

func (f *Fake) SetMode(m ap.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set_mode:" + m.String())
	f.CurMode = m
	return nil
}

func (f *Fake) Frequency() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Freq, nil
}

func (f *Fake) SetFrequency(freq float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set_freq")
	f.Freq = freq
	return nil
}

func (f *Fake) Bitrate() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Rate, nil
}

func (f *Fake) SetBitrate(kbps int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set_bitrate")
	f.Rate = kbps
	return nil
}

func (f *Fake) SetEncryptionKey(hexKey string, auth ap.AuthMethod) error {
	if len(hexKey) > EncodingTokenMax {
		hexKey = hexKey[:EncodingTokenMax]
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if hexKey == "" {
		f.record("clear_key")
	} else {
		f.record("set_key:" + auth.String())
	}
	f.LastKey = hexKey
	f.LastAuth = auth
	return nil
}

func (f *Fake) AssociatedBSSID() (net.HardwareAddr, error) {
	f.mu.Lock()
	linked := f.LinkWhen != nil && f.LinkWhen(f)
	addr := f.AssocBSSID
	f.mu.Unlock()

	if linked {
		return append(net.HardwareAddr(nil), addr...), nil
	}
	return net.HardwareAddr{0, 0, 0, 0, 0, 0}, nil
}

func (f *Fake) WirelessName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Name
}

func (f *Fake) SignalStats() (SignalStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Stats, nil
}

func (f *Fake) BadCryptPackets() (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.BadDecrypts, nil
}

func (f *Fake) Range() (RangeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RangeI, nil
}

func (f *Fake) Scan() ([]ScanResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("scan")
	if f.NoDataScans > 0 {
		f.NoDataScans--
		return nil, ErrScanNoData
	}
	if f.ScanErr != nil {
		return nil, f.ScanErr
	}
	if len(f.ScanQueue) == 0 {
		return nil, nil
	}
	results := f.ScanQueue[0]
	if len(f.ScanQueue) > 1 {
		f.ScanQueue = f.ScanQueue[1:]
	}
	return results, nil
}

func (f *Fake) MIILink() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.MII, nil
}

func (f *Fake) IP4Address() (net.IP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.IP, nil
}

func (f *Fake) HardwareAddr() (net.HardwareAddr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HW, nil
}

func (f *Fake) SupportsWirelessExtensions() bool { return f.WExt }
func (f *Fake) SupportsScan() bool { return f.CanScan }

// SetIP scripts the address the fake reports.
func (f *Fake) SetIP(ip net.IP) {
	f.mu.Lock()
	f.IP = ip
	f.mu.Unlock()
}
