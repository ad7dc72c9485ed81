// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ap

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkAP(essid string, bssid string) *AccessPoint {
	a := New()
	a.SetESSID(essid)
	if bssid != "" {
		hw, _ := net.ParseMAC(bssid)
		a.SetBSSID(hw)
	}
	return a
}

func TestAppendCollapsesByBSSID(t *testing.T) {
	l := NewList(ListDeviceScan)

	older := mkAP("home", "70:37:03:70:37:03")
	older.SetTimestamp(time.Unix(100, 0))
	older.SetStrength(40)

	newer := mkAP("home", "70:37:03:70:37:03")
	newer.SetTimestamp(time.Unix(200, 0))
	newer.SetStrength(80)

	l.Append(older)
	l.Append(newer)

	require.Equal(t, 1, l.Len())
	got := l.GetByESSID("home")
	require.NotNil(t, got)
	assert.Equal(t, int8(80), got.Strength(), "newer timestamp wins")
}

func TestAppendCollapsesByESSIDWithoutBSSID(t *testing.T) {
	l := NewList(ListAllowed)
	l.Append(mkAP("cafe", ""))
	l.Append(mkAP("cafe", ""))
	assert.Equal(t, 1, l.Len())
}

func TestAppendKeepsDistinctBSSIDs(t *testing.T) {
	l := NewList(ListDeviceScan)
	l.Append(mkAP("a", "70:37:03:70:37:03"))
	l.Append(mkAP("b", "12:34:56:78:90:ab"))
	assert.Equal(t, 2, l.Len())
}

func TestGetByESSID(t *testing.T) {
	l := NewList(ListDeviceScan)
	l.Append(mkAP("lab", "70:37:03:70:37:03"))

	assert.NotNil(t, l.GetByESSID("lab"))
	assert.Nil(t, l.GetByESSID("other"))
	assert.Nil(t, l.GetByESSID(""), "blank ESSID never matches")
}

func TestGetByBSSID(t *testing.T) {
	l := NewList(ListDeviceScan)
	l.Append(mkAP("", "12:34:56:78:90:ab"))

	hw, _ := net.ParseMAC("12:34:56:78:90:ab")
	assert.NotNil(t, l.GetByBSSID(hw))
	other, _ := net.ParseMAC("cd:ef:12:34:56:78")
	assert.Nil(t, l.GetByBSSID(other))
}

func TestRemove(t *testing.T) {
	l := NewList(ListDeviceScan)
	target := mkAP("gone", "12:34:56:78:90:ab")
	l.Append(target)
	l.Append(mkAP("stays", "cd:ef:12:34:56:78"))

	l.Remove(target)
	assert.Equal(t, 1, l.Len())
	assert.Nil(t, l.GetByESSID("gone"))
}

func TestDiff(t *testing.T) {
	old := NewList(ListDeviceScan)
	old.Append(mkAP("a", "70:37:03:70:37:03"))
	old.Append(mkAP("b", "12:34:56:78:90:ab"))

	cur := NewList(ListDeviceScan)
	cur.Append(mkAP("b", "12:34:56:78:90:ab"))
	cur.Append(mkAP("c", "cd:ef:12:34:56:78"))

	added, removed := Diff(old, cur)
	require.Len(t, added, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, "c", added[0].ESSID())
	assert.Equal(t, "a", removed[0].ESSID())
}

func TestDiffOfCombinesIsEmpty(t *testing.T) {
	a := NewList(ListDeviceScan)
	a.Append(mkAP("x", "70:37:03:70:37:03"))
	a.Append(mkAP("y", ""))

	b := NewList(ListDeviceScan)
	b.Append(mkAP("y", ""))
	b.Append(mkAP("z", "12:34:56:78:90:ab"))

	added, removed := Diff(Combine(a, b), Combine(b, a))
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestCombineNewestWins(t *testing.T) {
	a := NewList(ListDeviceScan)
	apA := mkAP("net", "70:37:03:70:37:03")
	apA.SetTimestamp(time.Unix(100, 0))
	apA.SetStrength(10)
	a.Append(apA)

	b := NewList(ListDeviceScan)
	apB := mkAP("net", "70:37:03:70:37:03")
	apB.SetTimestamp(time.Unix(300, 0))
	apB.SetStrength(90)
	b.Append(apB)

	out := Combine(a, b)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, int8(90), out.GetByESSID("net").Strength())

	// The combined list owns copies, not the inputs' records.
	out.GetByESSID("net").SetStrength(5)
	assert.Equal(t, int8(90), apB.Strength())
}

func TestCopyProperties(t *testing.T) {
	dst := NewList(ListDeviceScan)
	dst.Append(mkAP("home", "70:37:03:70:37:03"))

	src := NewList(ListAllowed)
	allowed := mkAP("home", "")
	allowed.SetEncrypted(true)
	allowed.SetKeySource("deadbeef01", KeyTypeHex)
	allowed.SetTrusted(true)
	allowed.SetTimestamp(time.Unix(500, 0))
	src.Append(allowed)

	CopyProperties(dst, src)

	got := dst.GetByESSID("home")
	key, kt := got.KeySource()
	assert.Equal(t, "deadbeef01", key)
	assert.Equal(t, KeyTypeHex, kt)
	assert.True(t, got.Trusted())
	assert.Equal(t, time.Unix(500, 0), got.Timestamp())
}

func TestCopyESSIDsByAddress(t *testing.T) {
	dst := NewList(ListDeviceScan)
	cloaked := mkAP("", "12:34:56:78:90:ab")
	dst.Append(cloaked)

	src := NewList(ListDeviceScan)
	src.Append(mkAP("hidden-net", "12:34:56:78:90:ab"))

	CopyESSIDsByAddress(dst, src)
	assert.Equal(t, "hidden-net", cloaked.ESSID())

	// A record that already has an ESSID is left alone.
	named := mkAP("keep", "cd:ef:12:34:56:78")
	dst2 := NewList(ListDeviceScan)
	dst2.Append(named)
	src2 := NewList(ListDeviceScan)
	src2.Append(mkAP("other", "cd:ef:12:34:56:78"))
	CopyESSIDsByAddress(dst2, src2)
	assert.Equal(t, "keep", named.ESSID())
}

func TestSnapshotIterationStable(t *testing.T) {
	l := NewList(ListDeviceScan)
	l.Append(mkAP("a", "70:37:03:70:37:03"))

	snap := l.APs()
	l.Append(mkAP("b", "12:34:56:78:90:ab"))
	assert.Len(t, snap, 1, "snapshot must not observe later mutations")
}

func TestUnencryptedDropsKey(t *testing.T) {
	a := New()
	a.SetEncrypted(true)
	a.SetKeySource("deadbeef01", KeyTypeHex)
	a.SetEncrypted(false)
	key, _ := a.KeySource()
	assert.Empty(t, key, "unencrypted AP must carry no key material")
}
