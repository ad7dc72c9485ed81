// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package hal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSysfs(t *testing.T, iface, driver string) *SysfsStore {
	t.Helper()
	root := t.TempDir()

	devDir := filepath.Join(root, "class", "net", iface, "device")
	require.NoError(t, os.MkdirAll(devDir, 0o755))

	driverDir := filepath.Join(root, "bus", "drivers", driver)
	require.NoError(t, os.MkdirAll(driverDir, 0o755))
	require.NoError(t, os.Symlink(driverDir, filepath.Join(devDir, "driver")))

	return &SysfsStore{Root: root}
}

func TestSysfsStoreProperties(t *testing.T) {
	s := fakeSysfs(t, "eth0", "e1000")

	carrier := filepath.Join(s.Root, "class", "net", "eth0", "carrier")
	require.NoError(t, os.WriteFile(carrier, []byte("1\n"), 0o644))

	assert.True(t, s.Exists("class/net/eth0", "carrier"))
	assert.True(t, s.GetBool("class/net/eth0", "carrier"))
	assert.False(t, s.Exists("class/net/eth0", "missing"))
	assert.False(t, s.GetBool("class/net/eth0", "missing"))

	require.NoError(t, os.WriteFile(carrier, []byte("0\n"), 0o644))
	assert.False(t, s.GetBool("class/net/eth0", "carrier"))
}

func TestSysfsDriverClassification(t *testing.T) {
	assert.Equal(t, DriverFullySupported, fakeSysfs(t, "eth0", "e1000").DriverSupport("eth0"))
	assert.Equal(t, DriverSemiSupported, fakeSysfs(t, "wlan0", "orinoco").DriverSupport("wlan0"))
	assert.Equal(t, DriverUnsupported, fakeSysfs(t, "eth1", "8390").DriverSupport("eth1"))
}

func TestUnknownInterfaceIsSemiSupported(t *testing.T) {
	s := &SysfsStore{Root: t.TempDir()}
	assert.Equal(t, DriverSemiSupported, s.DriverSupport("nope0"))
}

func TestStaticStore(t *testing.T) {
	s := &StaticStore{
		Props:   map[string]bool{"class/net/eth0/carrier": true},
		Support: DriverFullySupported,
		Driver:  "fake",
	}
	assert.True(t, s.Exists("class/net/eth0", "carrier"))
	assert.True(t, s.GetBool("class/net/eth0", "carrier"))
	assert.False(t, s.GetBool("class/net/eth0", "other"))
	assert.Equal(t, DriverFullySupported, s.DriverSupport("eth0"))
	assert.Equal(t, "fake", s.DriverName("eth0"))
}

func TestDriverSupportString(t *testing.T) {
	assert.Equal(t, "unsupported", DriverUnsupported.String())
	assert.Equal(t, "semi-supported", DriverSemiSupported.String())
	assert.Equal(t, "fully-supported", DriverFullySupported.String())
}
