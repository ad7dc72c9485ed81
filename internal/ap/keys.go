// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ap

import (
	"crypto/md5"
	"encoding/hex"
)

// WEP key sizes in hex digits.
const (
	wep64HexLen  = 10
	wep128HexLen = 26
)

// HashKey normalises user-supplied key material into the raw hex key form
// expected by the driver encode ioctl.
func HashKey(key string, keyType KeyType) string {
	switch keyType {
	case KeyTypeASCII:
		if len(key) <= 5 {
			return asciiToHex(key, wep64HexLen)
		}
		return asciiToHex(key, wep128HexLen)
	case KeyTypePassphrase128:
		return keyFromPassphrase128(key)
	default:
		// Hex keys (and unknown types) pass through untouched.
		return key
	}
}

// asciiToHex expands an ASCII key into hex digits, zero-padded or truncated
// to the requested WEP key length.
func asciiToHex(key string, hexLen int) string {
	raw := make([]byte, hexLen/2)
	copy(raw, key)
	return hex.EncodeToString(raw)[:hexLen]
}

// keyFromPassphrase128 derives a 104-bit WEP key from a passphrase: the
// passphrase is repeated into a 64-byte buffer which is MD5-digested, and
// the first 13 digest bytes become the key.
func keyFromPassphrase128(passphrase string) string {
	if passphrase == "" {
		return ""
	}

	var buf [64]byte
	for i := range buf {
		buf[i] = passphrase[i%len(passphrase)]
	}
	digest := md5.Sum(buf[:])
	return hex.EncodeToString(digest[:13])
}
