// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package radio

import (
	"encoding/hex"
	"net"
	"time"
	"unsafe"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/errors"
	"grimm.is/linkmgr/internal/logging"
)

// iwreq mirrors struct iwreq: the interface name followed by the request
// union.
type iwreq struct {
	Name [unix.IFNAMSIZ]byte
	U    [16]byte
}

func (w *iwreq) setName(iface string) {
	copy(w.Name[:unix.IFNAMSIZ-1], iface)
}

// Union views.  The kernel interprets the same 16 bytes differently per
// request, so these casts are the whole codec.

func (w *iwreq) point() *iwPoint { return (*iwPoint)(unsafe.Pointer(&w.U[0])) }
func (w *iwreq) param() *iwParam { return (*iwParam)(unsafe.Pointer(&w.U[0])) }
func (w *iwreq) freq() *iwFreq { return (*iwFreq)(unsafe.Pointer(&w.U[0])) }
func (w *iwreq) mode() *uint32 { return (*uint32)(unsafe.Pointer(&w.U[0])) }
func (w *iwreq) sockaddr() *[16]byte {
	return (*[16]byte)(unsafe.Pointer(&w.U[0]))
}

type iwPoint struct {
	Pointer uintptr
	Length  uint16
	Flags   uint16
}

type iwParam struct {
	Value    int32
	Fixed    uint8
	Disabled uint8
	Flags    uint16
}

type iwFreq struct {
	M     int32
	E     int16
	I     uint8
	Flags uint8
}

type iwQuality struct {
	Qual    uint8
	Level   uint8
	Noise   uint8
	Updated uint8
}

// iwStats mirrors the leading fields of struct iw_statistics.
type iwStats struct {
	Status  uint16
	Qual    iwQuality
	Discard struct {
		NWID     uint32
		Code     uint32
		Fragment uint32
		Retries  uint32
		Misc     uint32
	}
	Miss struct {
		Beacon uint32
	}
}

// iwRange mirrors struct iw_range up to the frequency table; later fields
// are not consumed.
type iwRange struct {
	Throughput         uint32
	MinNWID            uint32
	MaxNWID            uint32
	OldNumChannels     uint16
	OldNumFrequency    uint8
	ScanCapa           uint8
	EventCapa          [6]uint32
	Sensitivity        int32
	MaxQual            iwQuality
	AvgQual            iwQuality
	NumBitrates        uint8
	Bitrate            [32]int32
	MinRTS             int32
	MaxRTS             int32
	MinFrag            int32
	MaxFrag            int32
	MinPMP             int32
	MaxPMP             int32
	MinPMT             int32
	MaxPMT             int32
	PMCapa             uint16
	EncodingSize       [8]uint16
	NumEncodingSizes   uint8
	MaxEncodingTokens  uint8
	EncodingLoginIndex uint8
	TxPowerCapa        uint16
	NumTxPower         uint8
	TxPower            [8]int32
	WEVersionCompiled  uint8
	WEVersionSource    uint8
	RetryCapa          uint16
	RetryFlags         uint16
	RTimeFlags         uint16
	MinRetry           int32
	MaxRetry           int32
	MinRTime           int32
	MaxRTime           int32
	NumChannels        uint16
	NumFrequency       uint8
	Freq               [32]iwFreq
}

// LinuxControl implements Control with wireless-extension ioctls, netlink
// and MII register reads.
type LinuxControl struct {
	iface  string
	logger *logging.Logger
}

// NewLinuxControl creates a control surface for one interface.
func NewLinuxControl(iface string) *LinuxControl {
	return &LinuxControl{
		iface:  iface,
		logger: logging.WithComponent("radio").WithFields("iface", iface),
	}
}

func (c *LinuxControl) Iface() string { return c.iface }

// openSock grabs a control socket for network ioctls, falling back through
// address families the way ifconfig does.
func openSock() (int, error) {
	for _, family := range []int{unix.AF_INET, unix.AF_PACKET, unix.AF_INET6} {
		fd, err := unix.Socket(family, unix.SOCK_DGRAM, 0)
		if err == nil {
			return fd, nil
		}
	}
	return -1, errors.New(errors.KindIO, "could not get network control socket")
}

func (c *LinuxControl) ioctl(req uint, wrq *iwreq) error {
	fd, err := openSock()
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	wrq.setName(c.iface)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(wrq)))
	if errno != 0 {
		return errors.IOErrorf(errno, "ioctl 0x%04x on %s", req, c.iface)
	}
	return nil
}

func (c *LinuxControl) link() (netlink.Link, error) {
	link, err := netlink.LinkByName(c.iface)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindIO, "link %s not found", c.iface)
	}
	return link, nil
}

func (c *LinuxControl) BringUp() error {
	link, err := c.link()
	if err != nil {
		return err
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return errors.Wrapf(err, errors.KindIO, "could not bring %s up", c.iface)
	}
	return nil
}

func (c *LinuxControl) BringDown() error {
	link, err := c.link()
	if err != nil {
		return err
	}
	if err := netlink.LinkSetDown(link); err != nil {
		return errors.Wrapf(err, errors.KindIO, "could not bring %s down", c.iface)
	}
	return nil
}

func (c *LinuxControl) IsUp() (bool, error) {
	link, err := c.link()
	if err != nil {
		return false, err
	}
	return link.Attrs().Flags&net.FlagUp != 0, nil
}

func (c *LinuxControl) ESSID() (string, error) {
	var buf [ESSIDMaxSize + 1]byte
	var wrq iwreq
	p := wrq.point()
	p.Pointer = uintptr(unsafe.Pointer(&buf[0]))
	p.Length = uint16(len(buf))

	if err := c.ioctl(siocGIWESSID, &wrq); err != nil {
		return "", err
	}
	n := int(wrq.point().Length)
	if n > ESSIDMaxSize {
		n = ESSIDMaxSize
	}
	return trimNul(buf[:n]), nil
}

func (c *LinuxControl) SetESSID(essid string) error {
	// The driver takes at most 32 bytes of ESSID.
	if len(essid) > ESSIDMaxSize {
		essid = essid[:ESSIDMaxSize]
	}
	buf := make([]byte, len(essid)+1)
	copy(buf, essid)

	var wrq iwreq
	p := wrq.point()
	p.Pointer = uintptr(unsafe.Pointer(&buf[0]))
	p.Length = uint16(len(essid) + 1)
	p.Flags = 1 // enable the essid on the card

	if err := c.ioctl(siocSIWESSID, &wrq); err != nil {
		return errors.Wrapf(err, errors.KindIO, "error setting ESSID %q on %s", essid, c.iface)
	}
	return nil
}

func (c *LinuxControl) Mode() (ap.Mode, error) {
	var wrq iwreq
	if err := c.ioctl(siocGIWMODE, &wrq); err != nil {
		return ap.ModeUnknown, err
	}
	switch *wrq.mode() {
	case iwModeInfra:
		return ap.ModeInfrastructure, nil
	case iwModeAdHoc:
		return ap.ModeAdHoc, nil
	default:
		return ap.ModeUnknown, nil
	}
}

func (c *LinuxControl) SetMode(m ap.Mode) error {
	var wrq iwreq
	switch m {
	case ap.ModeInfrastructure:
		*wrq.mode() = iwModeInfra
	case ap.ModeAdHoc:
		*wrq.mode() = iwModeAdHoc
	default:
		return errors.Errorf(errors.KindInvalidArgument, "cannot set mode %v on %s", m, c.iface)
	}
	return c.ioctl(siocSIWMODE, &wrq)
}

func (c *LinuxControl) Frequency() (float64, error) {
	var wrq iwreq
	if err := c.ioctl(siocGIWFREQ, &wrq); err != nil {
		return 0, err
	}
	f := wrq.freq()
	return freqToFloat(f.M, f.E), nil
}

func (c *LinuxControl) SetFrequency(freq float64) error {
	if freq == 0 {
		return nil
	}
	var wrq iwreq
	f := wrq.freq()
	m, e := floatToFreq(freq)
	f.M, f.E = m, e
	f.Flags = iwFreqFixed
	return c.ioctl(siocSIWFREQ, &wrq)
}

// floatToFreq compresses a frequency into the kernel's mantissa/exponent
// form.
func floatToFreq(freq float64) (int32, int16) {
	var e int16
	for freq > 1e9 {
		freq /= 10
		e++
	}
	return int32(freq), e
}

func (c *LinuxControl) Bitrate() (int, error) {
	var wrq iwreq
	if err := c.ioctl(siocGIWRATE, &wrq); err != nil {
		return 0, err
	}
	return int(wrq.param().Value / 1000), nil
}

func (c *LinuxControl) SetBitrate(kbps int) error {
	var wrq iwreq
	p := wrq.param()
	if kbps != 0 {
		p.Value = int32(kbps) * 1000
		p.Fixed = 1
	} else {
		p.Value = -1
		p.Fixed = 0
	}
	// Silently tolerate failure, not all drivers support this.
	if err := c.ioctl(siocSIWRATE, &wrq); err != nil {
		c.logger.Debug("Driver rejected bitrate", "kbps", kbps)
	}
	return nil
}

func (c *LinuxControl) SetEncryptionKey(hexKey string, auth ap.AuthMethod) error {
	if len(hexKey) > EncodingTokenMax {
		hexKey = hexKey[:EncodingTokenMax]
	}

	var wrq iwreq
	p := wrq.point()
	p.Flags = iwEncodeEnabled

	var keyBytes []byte
	if hexKey == "" {
		p.Flags |= iwEncodeDisabled | iwEncodeNoKey
	} else {
		var err error
		keyBytes, err = hex.DecodeString(hexKey)
		if err != nil {
			return errors.Wrapf(err, errors.KindInvalidArgument, "encryption key for %s is not hex", c.iface)
		}
		// Some drivers conflate Open System with "no WEP", so the mode bit
		// is always set explicitly.
		switch auth {
		case ap.AuthOpenSystem:
			p.Flags |= iwEncodeOpen
		default:
			p.Flags |= iwEncodeRestricted
		}
		p.Pointer = uintptr(unsafe.Pointer(&keyBytes[0]))
		p.Length = uint16(len(keyBytes))
	}

	if err := c.ioctl(siocSIWENCODE, &wrq); err != nil {
		return errors.Wrapf(err, errors.KindIO, "error setting key on %s", c.iface)
	}
	return nil
}

func (c *LinuxControl) AssociatedBSSID() (net.HardwareAddr, error) {
	var wrq iwreq
	if err := c.ioctl(siocGIWAP, &wrq); err != nil {
		return nil, err
	}
	sa := wrq.sockaddr()
	return append(net.HardwareAddr(nil), sa[2:8]...), nil
}

func (c *LinuxControl) SignalStats() (SignalStats, error) {
	ri, rangeErr := c.Range()

	var stats iwStats
	var wrq iwreq
	p := wrq.point()
	p.Pointer = uintptr(unsafe.Pointer(&stats))
	p.Length = uint16(unsafe.Sizeof(stats))
	p.Flags = 1 // clear updated flag

	if err := c.ioctl(siocGIWSTATS, &wrq); err != nil {
		return SignalStats{Percent: -1}, err
	}

	out := SignalStats{Percent: -1, Noise: stats.Qual.Noise}
	if rangeErr == nil {
		out.MaxQuality = ri.MaxQuality
		out.Percent = QualityToPercent(stats.Qual.Qual, ri.MaxQuality)
	}
	return out, nil
}

func (c *LinuxControl) BadCryptPackets() (uint32, error) {
	var stats iwStats
	var wrq iwreq
	p := wrq.point()
	p.Pointer = uintptr(unsafe.Pointer(&stats))
	p.Length = uint16(unsafe.Sizeof(stats))

	if err := c.ioctl(siocGIWSTATS, &wrq); err != nil {
		return 0, err
	}
	return stats.Discard.Code, nil
}

func (c *LinuxControl) Range() (RangeInfo, error) {
	var raw iwRange
	var wrq iwreq
	p := wrq.point()
	p.Pointer = uintptr(unsafe.Pointer(&raw))
	p.Length = uint16(unsafe.Sizeof(raw))

	if err := c.ioctl(siocGIWRANGE, &wrq); err != nil {
		return RangeInfo{}, err
	}

	ri := RangeInfo{
		NumFrequency: int(raw.NumFrequency),
		MaxQuality:   raw.MaxQual.Qual,
	}
	n := int(raw.NumFrequency)
	if n > len(raw.Freq) {
		n = len(raw.Freq)
	}
	for i := 0; i < n; i++ {
		ri.Frequencies = append(ri.Frequencies, freqToFloat(raw.Freq[i].M, raw.Freq[i].E))
		ri.Channels = append(ri.Channels, int(raw.Freq[i].I))
	}
	return ri, nil
}

func (c *LinuxControl) Scan() ([]ScanResult, error) {
	// Trigger the scan, then poll for results.
	var trigger iwreq
	if err := c.ioctl(siocSIWSCAN, &trigger); err != nil {
		return nil, err
	}

	bufSize := 8192
	deadline := time.Now().Add(3 * time.Second)
	for {
		buf := make([]byte, bufSize)
		var wrq iwreq
		p := wrq.point()
		p.Pointer = uintptr(unsafe.Pointer(&buf[0]))
		p.Length = uint16(bufSize)

		err := c.ioctl(siocGIWSCAN, &wrq)
		if err == nil {
			return parseScanStream(buf[:wrq.point().Length]), nil
		}

		attrs := errors.GetAttributes(err)
		errno, _ := attrs["errno"].(unix.Errno)
		switch errno {
		case unix.E2BIG:
			if bufSize < 1<<20 {
				bufSize *= 2
				continue
			}
			return nil, err
		case unix.EAGAIN:
			if time.Now().After(deadline) {
				return nil, ErrScanNoData
			}
			time.Sleep(200 * time.Millisecond)
		default:
			return nil, err
		}
	}
}

func (c *LinuxControl) IP4Address() (net.IP, error) {
	link, err := c.link()
	if err != nil {
		return nil, err
	}
	addrs, err := netlink.AddrList(link, unix.AF_INET)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindIO, "could not list addresses on %s", c.iface)
	}
	if len(addrs) == 0 {
		return nil, nil
	}
	return addrs[0].IP, nil
}

func (c *LinuxControl) HardwareAddr() (net.HardwareAddr, error) {
	link, err := c.link()
	if err != nil {
		return nil, err
	}
	return link.Attrs().HardwareAddr, nil
}

func (c *LinuxControl) SupportsWirelessExtensions() bool {
	var wrq iwreq
	return c.ioctl(siocGIWNAME, &wrq) == nil
}

func (c *LinuxControl) SupportsScan() bool {
	var wrq iwreq
	err := c.ioctl(siocSIWSCAN, &wrq)
	if err == nil {
		return true
	}
	attrs := errors.GetAttributes(err)
	if errno, ok := attrs["errno"].(unix.Errno); ok && errno == unix.EOPNOTSUPP {
		return false
	}
	return true
}

// WirelessName returns the driver's protocol name, or "" on error.  Some
// drivers report "unassociated" here, which short-circuits the association
// check.
func (c *LinuxControl) WirelessName() string {
	var wrq iwreq
	if err := c.ioctl(siocGIWNAME, &wrq); err != nil {
		return ""
	}
	return trimNul(wrq.U[:])
}
