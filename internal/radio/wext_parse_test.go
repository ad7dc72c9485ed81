// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/linkmgr/internal/ap"
)

// event builds one wireless-extension stream event.
func event(cmd uint16, payload []byte) []byte {
	buf := make([]byte, iwEvLCPLen+len(payload))
	nativeEndian.PutUint16(buf[0:2], uint16(len(buf)))
	nativeEndian.PutUint16(buf[2:4], cmd)
	copy(buf[iwEvLCPLen:], payload)
	return buf
}

func addrEvent(mac []byte) []byte {
	payload := make([]byte, 16)
	copy(payload[2:8], mac)
	return event(siocGIWAP, payload)
}

func essidEvent(essid string) []byte {
	payload := make([]byte, 4+len(essid))
	nativeEndian.PutUint16(payload[0:2], uint16(len(essid)))
	nativeEndian.PutUint16(payload[2:4], 1)
	copy(payload[4:], essid)
	return event(siocGIWESSID, payload)
}

func modeEvent(mode uint32) []byte {
	payload := make([]byte, 4)
	nativeEndian.PutUint32(payload, mode)
	return event(siocGIWMODE, payload)
}

func encodeEvent(flags uint16) []byte {
	payload := make([]byte, 4)
	nativeEndian.PutUint16(payload[2:4], flags)
	return event(siocGIWENCODE, payload)
}

func freqEvent(m uint32, e uint16) []byte {
	payload := make([]byte, 8)
	nativeEndian.PutUint32(payload[0:4], m)
	nativeEndian.PutUint16(payload[4:6], e)
	return event(siocGIWFREQ, payload)
}

func qualEvent(q uint8) []byte {
	return event(iwevQual, []byte{q, 0, 0, 0})
}

func TestParseScanStream(t *testing.T) {
	var stream []byte
	stream = append(stream, addrEvent([]byte{0x70, 0x37, 0x03, 0x70, 0x37, 0x03})...)
	stream = append(stream, essidEvent("home")...)
	stream = append(stream, modeEvent(iwModeInfra)...)
	stream = append(stream, freqEvent(2412, 6)...)
	stream = append(stream, encodeEvent(iwEncodeDisabled)...)
	stream = append(stream, qualEvent(80)...)

	stream = append(stream, addrEvent([]byte{0x12, 0x34, 0x56, 0x78, 0x90, 0xab})...)
	stream = append(stream, essidEvent("peer")...)
	stream = append(stream, modeEvent(iwModeAdHoc)...)
	stream = append(stream, encodeEvent(0)...)

	results := parseScanStream(stream)
	require.Len(t, results, 2)

	first := results[0]
	assert.True(t, first.HasBSSID)
	assert.Equal(t, "70:37:03:70:37:03", first.BSSID.String())
	assert.True(t, first.HasESSID)
	assert.Equal(t, "home", first.ESSID)
	assert.Equal(t, ap.ModeInfrastructure, first.Mode)
	assert.True(t, first.HasFreq)
	assert.Equal(t, 2412000000.0, first.Freq)
	assert.True(t, first.KeyDisabled, "encode disabled flag means unencrypted")
	assert.Equal(t, uint8(80), first.Quality)

	second := results[1]
	assert.Equal(t, ap.ModeAdHoc, second.Mode)
	assert.False(t, second.KeyDisabled, "no disabled flag means encrypted")
}

func TestParseScanStreamTruncated(t *testing.T) {
	stream := addrEvent([]byte{0x70, 0x37, 0x03, 0x70, 0x37, 0x03})
	// A bogus trailing header with an oversized length must not loop or panic.
	stream = append(stream, 0xff, 0x7f, 0x00, 0x00)

	results := parseScanStream(stream)
	assert.Len(t, results, 1)
}

func TestParseScanStreamEmpty(t *testing.T) {
	assert.Empty(t, parseScanStream(nil))
	assert.Empty(t, parseScanStream([]byte{0x01}))
}

func TestParseScanStreamEventsBeforeAddr(t *testing.T) {
	// Events preceding the first address record carry no target; skip them.
	stream := essidEvent("orphan")
	stream = append(stream, addrEvent([]byte{0x12, 0x34, 0x56, 0x78, 0x90, 0xab})...)
	results := parseScanStream(stream)
	require.Len(t, results, 1)
	assert.False(t, results[0].HasESSID)
}
