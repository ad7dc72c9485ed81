// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package radio

import (
	"encoding/binary"
	"net"
	"unsafe"

	"grimm.is/linkmgr/internal/ap"
)

// nativeEndian is the byte order of wireless-extension event streams,
// which are produced in host order.
var nativeEndian = func() binary.ByteOrder {
	var x uint16 = 1
	if *(*byte)(unsafe.Pointer(&x)) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()

// freqToFloat expands the kernel's mantissa/exponent frequency encoding.
func freqToFloat(m int32, e int16) float64 {
	f := float64(m)
	for i := int16(0); i < e; i++ {
		f *= 10
	}
	div := 1.0
	for i := e; i < 0; i++ {
		div *= 10
	}
	return f / div
}

// parseScanStream decodes a wireless-extension scan event stream into raw
// scan records.  Each SIOCGIWAP event starts a new record; subsequent
// events describe it until the next address event.
func parseScanStream(buf []byte) []ScanResult {
	var results []ScanResult
	var cur *ScanResult

	for len(buf) >= iwEvLCPLen {
		evLen := int(nativeEndian.Uint16(buf[0:2]))
		cmd := nativeEndian.Uint16(buf[2:4])
		if evLen < iwEvLCPLen || evLen > len(buf) {
			break
		}
		payload := buf[iwEvLCPLen:evLen]

		switch cmd {
		case siocGIWAP:
			// sockaddr: sa_family u16 followed by the address bytes.
			if len(payload) >= 8 {
				results = append(results, ScanResult{})
				cur = &results[len(results)-1]
				cur.BSSID = append(net.HardwareAddr(nil), payload[2:8]...)
				cur.HasBSSID = true
			}

		case siocGIWESSID:
			if cur != nil && len(payload) >= 4 {
				dataLen := int(nativeEndian.Uint16(payload[0:2]))
				data := payload[4:]
				if dataLen > len(data) {
					dataLen = len(data)
				}
				essid := trimNul(data[:dataLen])
				if essid != "" {
					cur.ESSID = essid
					cur.HasESSID = true
				}
			}

		case siocGIWMODE:
			if cur != nil && len(payload) >= 4 {
				cur.HasMode = true
				switch nativeEndian.Uint32(payload[0:4]) {
				case iwModeAdHoc:
					cur.Mode = ap.ModeAdHoc
				case iwModeInfra:
					cur.Mode = ap.ModeInfrastructure
				default:
					cur.Mode = ap.ModeInfrastructure
				}
			}

		case siocGIWFREQ:
			if cur != nil && len(payload) >= 6 {
				m := int32(nativeEndian.Uint32(payload[0:4]))
				e := int16(nativeEndian.Uint16(payload[4:6]))
				cur.Freq = freqToFloat(m, e)
				cur.HasFreq = true
			}

		case siocGIWENCODE:
			if cur != nil && len(payload) >= 4 {
				flags := nativeEndian.Uint16(payload[2:4])
				cur.HasKeyFlags = true
				cur.KeyDisabled = flags&iwEncodeDisabled != 0
			}

		case iwevQual:
			if cur != nil && len(payload) >= 4 {
				cur.Quality = payload[0]
			}
		}

		buf = buf[evLen:]
	}

	return results
}

func trimNul(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
