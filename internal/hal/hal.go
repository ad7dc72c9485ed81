// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package hal is the hardware-abstraction property store boundary: queries
// for per-device properties (wired link state among them) and the driver
// support classification consulted before any device operation.
package hal

import (
	"os"
	"path/filepath"

	"github.com/safchain/ethtool"
)

// DriverSupport classifies how well a driver behaves under management.
type DriverSupport int

const (
	DriverUnsupported DriverSupport = iota
	DriverSemiSupported
	DriverFullySupported
)

func (d DriverSupport) String() string {
	switch d {
	case DriverSemiSupported:
		return "semi-supported"
	case DriverFullySupported:
		return "fully-supported"
	default:
		return "unsupported"
	}
}

// Store is the property-store boundary.
type Store interface {
	// Exists reports whether the device exposes the named property.
	Exists(udi, key string) bool
	// GetBool returns a boolean property, false when absent.
	GetBool(udi, key string) bool
	// DriverSupport classifies the interface's driver.
	DriverSupport(iface string) DriverSupport
	// DriverName returns the kernel driver bound to the interface, or "".
	DriverName(iface string) string
}

// Drivers that associate but misreport link or scan state; they get the
// conservative classification.
var semiSupportedDrivers = map[string]bool{
	"orinoco":    true,
	"orinoco_cs": true,
	"wavelan":    true,
	"wavelan_cs": true,
}

// Drivers that reject management outright.
var unsupportedDrivers = map[string]bool{
	"8390": true,
}

// SysfsStore reads properties from sysfs and ethtool.
type SysfsStore struct {
	// Root is the sysfs mount, overridable for tests.
	Root string
}

// NewSysfsStore creates a store over the standard sysfs mount.
func NewSysfsStore() *SysfsStore {
	return &SysfsStore{Root: "/sys"}
}

func (s *SysfsStore) ifacePath(iface string) string {
	return filepath.Join(s.Root, "class", "net", iface)
}

// Exists reports whether the property file exists for the interface.  The
// udi here is the interface's sysfs path suffix.
func (s *SysfsStore) Exists(udi, key string) bool {
	_, err := os.Stat(filepath.Join(s.Root, udi, key))
	return err == nil
}

// GetBool reads a 0/1 property file.
func (s *SysfsStore) GetBool(udi, key string) bool {
	data, err := os.ReadFile(filepath.Join(s.Root, udi, key))
	if err != nil {
		return false
	}
	return len(data) > 0 && data[0] == '1'
}

// DriverName resolves the driver bound to an interface, preferring
// ethtool and falling back to the sysfs driver symlink.
func (s *SysfsStore) DriverName(iface string) string {
	if et, err := ethtool.NewEthtool(); err == nil {
		defer et.Close()
		if name, err := et.DriverName(iface); err == nil && name != "" {
			return name
		}
	}

	target, err := os.Readlink(filepath.Join(s.ifacePath(iface), "device", "driver"))
	if err != nil {
		return ""
	}
	return filepath.Base(target)
}

// DriverSupport classifies the interface's driver.  Unknown drivers are
// assumed fully supported; the quirk tables override.
func (s *SysfsStore) DriverSupport(iface string) DriverSupport {
	name := s.DriverName(iface)
	switch {
	case name == "":
		return DriverSemiSupported
	case unsupportedDrivers[name]:
		return DriverUnsupported
	case semiSupportedDrivers[name]:
		return DriverSemiSupported
	default:
		return DriverFullySupported
	}
}

// StaticStore is a fixed property set for tests and synthetic devices.
type StaticStore struct {
	Props   map[string]bool
	Support DriverSupport
	Driver  string
}

func (s *StaticStore) Exists(udi, key string) bool {
	_, ok := s.Props[udi+"/"+key]
	return ok
}

func (s *StaticStore) GetBool(udi, key string) bool {
	return s.Props[udi+"/"+key]
}

func (s *StaticStore) DriverSupport(string) DriverSupport { return s.Support }
func (s *StaticStore) DriverName(string) string { return s.Driver }
