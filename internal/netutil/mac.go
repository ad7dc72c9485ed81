// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netutil

import (
	"encoding/binary"
	"fmt"
	"net"
)

func ParseMAC(macStr string) ([]byte, error) {
	hw, err := net.ParseMAC(macStr)
	if err != nil {
		return nil, err
	}
	return hw, nil
}

func FormatMAC(mac []byte) string {
	if len(mac) != 6 {
		return ""
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

// ValidBSSID reports whether addr looks like a real base station address:
// six bytes, not all-zero and not the broadcast address.
func ValidBSSID(addr net.HardwareAddr) bool {
	if len(addr) != 6 {
		return false
	}
	allZero, allFF := true, true
	for _, b := range addr {
		if b != 0x00 {
			allZero = false
		}
		if b != 0xff {
			allFF = false
		}
	}
	return !allZero && !allFF
}

// IP4ToUint32 converts an IPv4 address to its native uint32 form.
// Returns 0 for non-IPv4 addresses.
func IP4ToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

// Uint32ToIP4 converts a uint32 back to a net.IP.
func Uint32ToIP4(addr uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, addr)
	return ip
}
