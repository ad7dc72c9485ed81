// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package radio

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"grimm.is/linkmgr/internal/errors"
)

const (
	// Modern MII opcodes; older drivers only answer on SIOCDEVPRIVATE.
	siocGMIIPHY = 0x8947
	siocGMIIREG = 0x8948
)

// ifreqMII is struct ifreq with the data area viewed as the MII ioctl's
// four 16-bit words: phy id, register, value in, value out.
type ifreqMII struct {
	Name [unix.IFNAMSIZ]byte
	Data [4]uint16
	_    [16]byte
}

// mdioRead reads one MII transceiver management register.
func mdioRead(fd int, ifr *ifreqMII, location int, newIoctlNums bool) (uint16, error) {
	ifr.Data[1] = uint16(location)

	req := uintptr(unix.SIOCDEVPRIVATE + 1)
	if newIoctlNums {
		req = siocGMIIREG
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(ifr)))
	if errno != 0 {
		return 0, errors.IOErrorf(errno, "SIOCGMIIREG on %s", trimNul(ifr.Name[:]))
	}
	return ifr.Data[3], nil
}

// MIILink probes the wired link state through the MII registers.  The
// status register is read twice to clear sticky bits left from a previous
// link failure.
func (c *LinuxControl) MIILink() (bool, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return false, errors.Wrapf(err, errors.KindIO, "cannot open socket on interface %s", c.iface)
	}
	defer unix.Close(fd)

	var ifr ifreqMII
	copy(ifr.Name[:unix.IFNAMSIZ-1], c.iface)

	var newIoctlNums bool
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), siocGMIIPHY, uintptr(unsafe.Pointer(&ifr))); errno == 0 {
		newIoctlNums = true
	} else if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.SIOCDEVPRIVATE, uintptr(unsafe.Pointer(&ifr))); errno == 0 {
		newIoctlNums = false
	} else {
		return false, errors.IOErrorf(errno, "SIOCGMIIPHY on %s", c.iface)
	}

	if _, err := mdioRead(fd, &ifr, miiStatusRegister, newIoctlNums); err != nil {
		return false, err
	}
	status, err := mdioRead(fd, &ifr, miiStatusRegister, newIoctlNums)
	if err != nil {
		return false, err
	}

	return MIILinkFromStatus(status), nil
}
