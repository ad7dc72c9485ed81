// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netutil

import (
	"net"
	"testing"
)

func TestFormatMAC(t *testing.T) {
	mac := []byte{0x70, 0x37, 0x03, 0x70, 0x37, 0x03}
	if got := FormatMAC(mac); got != "70:37:03:70:37:03" {
		t.Errorf("FormatMAC = %q", got)
	}
	if got := FormatMAC([]byte{1, 2, 3}); got != "" {
		t.Errorf("short MAC should format empty, got %q", got)
	}
}

func TestParseMAC(t *testing.T) {
	hw, err := ParseMAC("70:37:03:70:37:03")
	if err != nil {
		t.Fatalf("ParseMAC: %v", err)
	}
	if FormatMAC(hw) != "70:37:03:70:37:03" {
		t.Errorf("round trip failed: %v", hw)
	}
}

func TestValidBSSID(t *testing.T) {
	cases := []struct {
		addr  net.HardwareAddr
		valid bool
	}{
		{net.HardwareAddr{0x70, 0x37, 0x03, 0x70, 0x37, 0x03}, true},
		{net.HardwareAddr{0, 0, 0, 0, 0, 0}, false},
		{net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, false},
		{net.HardwareAddr{0x01, 0x02}, false},
		{nil, false},
	}
	for _, c := range cases {
		if got := ValidBSSID(c.addr); got != c.valid {
			t.Errorf("ValidBSSID(%v) = %v, want %v", c.addr, got, c.valid)
		}
	}
}

func TestIP4Uint32RoundTrip(t *testing.T) {
	ip := net.IPv4(192, 0, 2, 5)
	v := IP4ToUint32(ip)
	if v == 0 {
		t.Fatal("expected non-zero")
	}
	if !Uint32ToIP4(v).Equal(ip) {
		t.Errorf("round trip: %v != %v", Uint32ToIP4(v), ip)
	}
	if IP4ToUint32(net.ParseIP("::1")) != 0 {
		t.Error("IPv6 should convert to 0")
	}
}
