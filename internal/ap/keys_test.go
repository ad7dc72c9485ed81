// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ap

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKeyHexPassesThrough(t *testing.T) {
	assert.Equal(t, "deadbeef01", HashKey("deadbeef01", KeyTypeHex))
	assert.Equal(t, "deadbeef01", HashKey("deadbeef01", KeyTypeUnknown))
}

func TestHashKeyShortASCII(t *testing.T) {
	// 5 ASCII chars map to a 64-bit (10 hex digit) key.
	got := HashKey("abcde", KeyTypeASCII)
	assert.Equal(t, "6162636465", got)
}

func TestHashKeyLongASCII(t *testing.T) {
	// Longer ASCII keys map to a 128-bit (26 hex digit) key, zero padded.
	got := HashKey("abcdef", KeyTypeASCII)
	assert.Len(t, got, 26)
	assert.Equal(t, "616263646566", got[:12])
	if _, err := hex.DecodeString(got); err != nil {
		t.Fatalf("not hex: %q", got)
	}
}

func TestHashKeyPassphrase(t *testing.T) {
	got := HashKey("correct horse", KeyTypePassphrase128)
	assert.Len(t, got, 26, "104-bit key is 13 bytes of hex")
	if _, err := hex.DecodeString(got); err != nil {
		t.Fatalf("not hex: %q", got)
	}

	// Deterministic, and sensitive to the passphrase.
	assert.Equal(t, got, HashKey("correct horse", KeyTypePassphrase128))
	assert.NotEqual(t, got, HashKey("battery staple", KeyTypePassphrase128))
}

func TestHashKeyEmpty(t *testing.T) {
	assert.Empty(t, HashKey("", KeyTypePassphrase128))
	assert.Empty(t, HashKey("", KeyTypeHex))
}
