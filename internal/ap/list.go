// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ap

import (
	"sync"
)

// ListKind distinguishes the roles an access point list can play.
type ListKind int

const (
	ListDeviceScan ListKind = iota
	ListAllowed
	ListInvalid
)

// List is a set of access points with ESSID and BSSID lookup.  Duplicates
// collapse on append: matching BSSIDs merge preferring the newer timestamp;
// records that only share an ESSID (and carry no BSSID) merge in place.
type List struct {
	mu   sync.Mutex
	kind ListKind
	aps  []*AccessPoint
}

// NewList creates an empty list of the given kind.
func NewList(kind ListKind) *List {
	return &List{kind: kind}
}

// Kind returns the list's role.
func (l *List) Kind() ListKind {
	return l.kind
}

// Len returns the number of access points in the list.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.aps)
}

// Append adds an access point, collapsing duplicates.  The list shares the
// record with the caller; copy first with NewFromAP if that is not wanted.
func (l *List) Append(newAP *AccessPoint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.aps {
		if sameBSSID(existing, newAP) {
			mergeNewest(existing, newAP)
			return
		}
		if existing.ESSID() != "" && existing.ESSID() == newAP.ESSID() &&
			!existing.HasBSSID() && !newAP.HasBSSID() {
			mergeNewest(existing, newAP)
			return
		}
	}
	l.aps = append(l.aps, newAP)
}

// mergeNewest folds src into dst, preferring src's data when src carries the
// newer timestamp, and always filling in blanks.
func mergeNewest(dst, src *AccessPoint) {
	newer := src.Timestamp().After(dst.Timestamp())

	if newer || dst.ESSID() == "" {
		if e := src.ESSID(); e != "" {
			dst.SetESSID(e)
		}
	}
	if newer || !dst.HasBSSID() {
		if src.HasBSSID() {
			dst.SetBSSID(src.BSSID())
		}
	}
	if newer {
		dst.SetMode(src.Mode())
		dst.SetFreq(src.Freq())
		dst.SetStrength(src.Strength())
		dst.SetEncrypted(src.Encrypted())
		dst.SetTimestamp(src.Timestamp())
	}
	if key, kt := src.KeySource(); key != "" {
		if existing, _ := dst.KeySource(); existing == "" || newer {
			dst.SetKeySource(key, kt)
		}
	}
	if src.Trusted() {
		dst.SetTrusted(true)
	}
	if src.UserCreated() {
		dst.SetUserCreated(true)
	}
	if src.Artificial() {
		dst.SetArtificial(true)
	}
}

// Remove drops the first access point that is the target itself, shares its
// BSSID, or shares its non-empty ESSID.
func (l *List) Remove(target *AccessPoint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, existing := range l.aps {
		if existing == target || sameBSSID(existing, target) ||
			(existing.ESSID() != "" && existing.ESSID() == target.ESSID()) {
			l.aps = append(l.aps[:i], l.aps[i+1:]...)
			return
		}
	}
}

// Clear removes every access point.
func (l *List) Clear() {
	l.mu.Lock()
	l.aps = nil
	l.mu.Unlock()
}

// GetByESSID returns the access point with the given ESSID, if present.
func (l *List) GetByESSID(essid string) *AccessPoint {
	if l == nil || essid == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.aps {
		if a.ESSID() == essid {
			return a
		}
	}
	return nil
}

// GetByBSSID returns the access point with the given base station address,
// if present.
func (l *List) GetByBSSID(addr []byte) *AccessPoint {
	if l == nil || len(addr) != 6 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.aps {
		b := a.BSSID()
		if b != nil && b.String() == formatAddr(addr) {
			return a
		}
	}
	return nil
}

func formatAddr(addr []byte) string {
	hw := make([]byte, len(addr))
	copy(hw, addr)
	return hwString(hw)
}

func hwString(addr []byte) string {
	const hexDigit = "0123456789abcdef"
	buf := make([]byte, 0, 17)
	for i, b := range addr {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, hexDigit[b>>4], hexDigit[b&0xF])
	}
	return string(buf)
}

// APs returns a stable snapshot of the list contents.  Mutations after the
// call are not observed by iteration over the snapshot.
func (l *List) APs() []*AccessPoint {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*AccessPoint, len(l.aps))
	copy(out, l.aps)
	return out
}

// Diff computes (added, removed) between old and cur: added holds access
// points in cur but not old, removed the reverse.  Two records count as the
// same when they share a BSSID or a non-empty ESSID.
func Diff(old, cur *List) (added, removed []*AccessPoint) {
	curAPs := snapshot(cur)
	oldAPs := snapshot(old)

	for _, c := range curAPs {
		if !contains(oldAPs, c) {
			added = append(added, c)
		}
	}
	for _, o := range oldAPs {
		if !contains(curAPs, o) {
			removed = append(removed, o)
		}
	}
	return added, removed
}

func snapshot(l *List) []*AccessPoint {
	if l == nil {
		return nil
	}
	return l.APs()
}

func contains(aps []*AccessPoint, target *AccessPoint) bool {
	for _, a := range aps {
		if sameBSSID(a, target) {
			return true
		}
		if a.ESSID() != "" && a.ESSID() == target.ESSID() {
			return true
		}
	}
	return false
}

// Combine returns the union of two lists.  On collision the record with
// the newer timestamp wins.  Records are copied, so the result owns its
// contents.
func Combine(a, b *List) *List {
	out := NewList(ListDeviceScan)
	for _, src := range snapshot(a) {
		out.Append(NewFromAP(src))
	}
	for _, src := range snapshot(b) {
		out.Append(NewFromAP(src))
	}
	return out
}

// CopyProperties copies key material, timestamps and the trusted flag from
// src entries into dst entries with matching ESSIDs.
func CopyProperties(dst, src *List) {
	if dst == nil || src == nil {
		return
	}
	for _, d := range dst.APs() {
		essid := d.ESSID()
		if essid == "" {
			continue
		}
		s := src.GetByESSID(essid)
		if s == nil {
			continue
		}
		if key, kt := s.KeySource(); key != "" {
			d.SetKeySource(key, kt)
		}
		if ts := s.Timestamp(); !ts.IsZero() {
			d.SetTimestamp(ts)
		}
		if s.Trusted() {
			d.SetTrusted(true)
		}
	}
}

// CopyESSIDsByAddress fills in blank ESSIDs in dst from src entries whose
// BSSIDs match.  Used to recover names for cloaking base stations.
func CopyESSIDsByAddress(dst, src *List) {
	if dst == nil || src == nil {
		return
	}
	for _, d := range dst.APs() {
		if d.ESSID() != "" || !d.HasBSSID() {
			continue
		}
		if s := src.GetByBSSID(d.BSSID()); s != nil && s.ESSID() != "" {
			d.SetESSID(s.ESSID())
		}
	}
}
