// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ap models wireless access points and sets of them.
//
// An AccessPoint is shared between lists and across goroutines; all field
// access goes through accessors that take the record's own lock.
package ap

import (
	"net"
	"sync"
	"time"

	"grimm.is/linkmgr/internal/netutil"
)

// Mode is the wireless topology of a network.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeInfrastructure
	ModeAdHoc
)

func (m Mode) String() string {
	switch m {
	case ModeInfrastructure:
		return "infrastructure"
	case ModeAdHoc:
		return "adhoc"
	default:
		return "unknown"
	}
}

// AuthMethod is the 802.11 authentication algorithm in use.
type AuthMethod int

const (
	AuthUnknown AuthMethod = iota
	AuthNone
	AuthOpenSystem
	AuthSharedKey
)

func (a AuthMethod) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthOpenSystem:
		return "open system"
	case AuthSharedKey:
		return "shared key"
	default:
		return "unknown"
	}
}

// KeyType describes how key material was supplied.
type KeyType int

const (
	KeyTypeUnknown KeyType = iota
	KeyTypeHex
	KeyTypeASCII
	KeyTypePassphrase128
)

// AccessPoint is one visible or configured wireless network.
type AccessPoint struct {
	mu sync.Mutex

	essid     string
	bssid     net.HardwareAddr
	mode      Mode
	freq      float64
	strength  int8 // 0-100, -1 unknown
	encrypted bool
	keySource string
	keyType   KeyType
	auth      AuthMethod

	invalid     bool
	artificial  bool
	userCreated bool
	trusted     bool

	timestamp time.Time
}

// New creates an empty access point record.
func New() *AccessPoint {
	return &AccessPoint{mode: ModeInfrastructure, strength: -1}
}

// NewFromAP deep-copies an access point, so the copy can be handed to a
// different list without sharing mutation.
func NewFromAP(src *AccessPoint) *AccessPoint {
	src.mu.Lock()
	defer src.mu.Unlock()

	dst := &AccessPoint{
		essid:       src.essid,
		mode:        src.mode,
		freq:        src.freq,
		strength:    src.strength,
		encrypted:   src.encrypted,
		keySource:   src.keySource,
		keyType:     src.keyType,
		auth:        src.auth,
		invalid:     src.invalid,
		artificial:  src.artificial,
		userCreated: src.userCreated,
		trusted:     src.trusted,
		timestamp:   src.timestamp,
	}
	if src.bssid != nil {
		dst.bssid = append(net.HardwareAddr(nil), src.bssid...)
	}
	return dst
}

func (a *AccessPoint) ESSID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.essid
}

func (a *AccessPoint) SetESSID(essid string) {
	a.mu.Lock()
	a.essid = essid
	a.mu.Unlock()
}

func (a *AccessPoint) BSSID() net.HardwareAddr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bssid == nil {
		return nil
	}
	return append(net.HardwareAddr(nil), a.bssid...)
}

func (a *AccessPoint) SetBSSID(addr net.HardwareAddr) {
	a.mu.Lock()
	a.bssid = append(net.HardwareAddr(nil), addr...)
	a.mu.Unlock()
}

// HasBSSID reports whether the record carries a usable base station address.
func (a *AccessPoint) HasBSSID() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return netutil.ValidBSSID(a.bssid)
}

func (a *AccessPoint) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *AccessPoint) SetMode(m Mode) {
	a.mu.Lock()
	a.mode = m
	a.mu.Unlock()
}

func (a *AccessPoint) Freq() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freq
}

func (a *AccessPoint) SetFreq(freq float64) {
	a.mu.Lock()
	a.freq = freq
	a.mu.Unlock()
}

func (a *AccessPoint) Strength() int8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.strength
}

func (a *AccessPoint) SetStrength(pct int8) {
	a.mu.Lock()
	a.strength = pct
	a.mu.Unlock()
}

func (a *AccessPoint) Encrypted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.encrypted
}

// SetEncrypted updates the encryption flag.  An unencrypted access point
// carries no key material, so switching to false drops the key.
func (a *AccessPoint) SetEncrypted(enc bool) {
	a.mu.Lock()
	a.encrypted = enc
	if !enc {
		a.keySource = ""
		a.keyType = KeyTypeUnknown
	}
	a.mu.Unlock()
}

// KeySource returns the raw key material as supplied (not hashed).
func (a *AccessPoint) KeySource() (string, KeyType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.keySource, a.keyType
}

func (a *AccessPoint) SetKeySource(key string, keyType KeyType) {
	a.mu.Lock()
	a.keySource = key
	a.keyType = keyType
	a.mu.Unlock()
}

// HashedKey returns the key material normalised to the raw hex form the
// driver accepts, per the record's key type.
func (a *AccessPoint) HashedKey() string {
	key, keyType := a.KeySource()
	if key == "" {
		return ""
	}
	return HashKey(key, keyType)
}

func (a *AccessPoint) Auth() AuthMethod {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.auth
}

func (a *AccessPoint) SetAuth(auth AuthMethod) {
	a.mu.Lock()
	a.auth = auth
	a.mu.Unlock()
}

func (a *AccessPoint) Invalid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.invalid
}

func (a *AccessPoint) SetInvalid(invalid bool) {
	a.mu.Lock()
	a.invalid = invalid
	a.mu.Unlock()
}

func (a *AccessPoint) Artificial() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.artificial
}

func (a *AccessPoint) SetArtificial(artificial bool) {
	a.mu.Lock()
	a.artificial = artificial
	a.mu.Unlock()
}

func (a *AccessPoint) UserCreated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userCreated
}

func (a *AccessPoint) SetUserCreated(userCreated bool) {
	a.mu.Lock()
	a.userCreated = userCreated
	a.mu.Unlock()
}

func (a *AccessPoint) Trusted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trusted
}

func (a *AccessPoint) SetTrusted(trusted bool) {
	a.mu.Lock()
	a.trusted = trusted
	a.mu.Unlock()
}

func (a *AccessPoint) Timestamp() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timestamp
}

func (a *AccessPoint) SetTimestamp(t time.Time) {
	a.mu.Lock()
	a.timestamp = t
	a.mu.Unlock()
}

// NeedsKey reports whether the access point is encrypted but has no key
// material to use.
func (a *AccessPoint) NeedsKey() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.encrypted && a.keySource == ""
}

// sameBSSID reports whether two records refer to the same base station.
func sameBSSID(a, b *AccessPoint) bool {
	ab, bb := a.BSSID(), b.BSSID()
	if !netutil.ValidBSSID(ab) || !netutil.ValidBSSID(bb) {
		return false
	}
	return ab.String() == bb.String()
}
