// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config provides HCL configuration handling for the link manager.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"grimm.is/linkmgr/internal/errors"
)

// Config is the top-level daemon configuration.
type Config struct {
	// ScanIntervalSeconds is the cadence of the wireless scan loop.
	ScanIntervalSeconds int `hcl:"scan_interval_seconds,optional"`

	// EnableTestDevices permits creation of synthetic devices.  Synthetic
	// devices are rejected outright when this is false.
	EnableTestDevices bool `hcl:"enable_test_devices,optional"`

	// DevicesRoot is the path prefix for device and network object paths.
	DevicesRoot string `hcl:"devices_root,optional"`

	// RelayListen is the listen address for the websocket event relay.
	// Empty disables the relay.
	RelayListen string `hcl:"relay_listen,optional"`

	Devices  []Device  `hcl:"device,block"`
	Networks []Network `hcl:"network,block"`
}

// Device is the per-interface configuration block.
type Device struct {
	Name string `hcl:"name,label"`

	// DHCP selects dynamic configuration; when false the static fields apply.
	DHCP      bool   `hcl:"dhcp,optional"`
	IPv4      string `hcl:"ipv4,optional"`
	Gateway   string `hcl:"gateway,optional"`
	Netmask   string `hcl:"netmask,optional"`
	Broadcast string `hcl:"broadcast,optional"`
}

// Network is an administrator-allowed wireless network.
type Network struct {
	ESSID string `hcl:"essid,label"`

	Key       string `hcl:"key,optional"`
	KeyType   string `hcl:"key_type,optional"` // "hex", "ascii", "passphrase"
	Trusted   bool   `hcl:"trusted,optional"`
	Timestamp int64  `hcl:"timestamp,optional"` // unix seconds of last successful use
}

// DefaultConfig returns a configuration with sane defaults and no devices.
func DefaultConfig() *Config {
	return &Config{
		ScanIntervalSeconds: 10,
		DevicesRoot:         "/org/linkmgr/Devices",
	}
}

// Load reads and validates an HCL config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidArgument, "failed to read config file")
	}
	return Parse(path, data)
}

// Parse decodes config from a byte buffer.  The filename is used only for
// diagnostics.
func Parse(filename string, data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := hclsimple.Decode(filename, data, nil, cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidArgument, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural config invariants.
func (c *Config) Validate() error {
	if c.ScanIntervalSeconds <= 0 {
		c.ScanIntervalSeconds = 10
	}
	if c.DevicesRoot == "" {
		c.DevicesRoot = "/org/linkmgr/Devices"
	}

	seen := make(map[string]bool)
	for _, d := range c.Devices {
		if d.Name == "" {
			return errors.New(errors.KindInvalidArgument, "device block requires a name")
		}
		if seen[d.Name] {
			return errors.Errorf(errors.KindInvalidArgument, "duplicate device block %q", d.Name)
		}
		seen[d.Name] = true
		if !d.DHCP && d.IPv4 == "" {
			return errors.Errorf(errors.KindInvalidArgument, "device %q: static configuration requires ipv4", d.Name)
		}
	}

	for _, n := range c.Networks {
		switch n.KeyType {
		case "", "hex", "ascii", "passphrase":
		default:
			return errors.Errorf(errors.KindInvalidArgument, "network %q: unknown key_type %q", n.ESSID, n.KeyType)
		}
	}
	return nil
}

// DeviceByName returns the device block for an interface, if configured.
func (c *Config) DeviceByName(name string) (Device, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

func (d Device) String() string {
	if d.DHCP {
		return fmt.Sprintf("%s (dhcp)", d.Name)
	}
	return fmt.Sprintf("%s (static %s)", d.Name, d.IPv4)
}
