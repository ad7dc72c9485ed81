// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package system

import (
	"grimm.is/linkmgr/internal/config"
	"grimm.is/linkmgr/internal/logging"
)

// NetlinkHelpers is a dry-run stub for non-Linux systems.
type NetlinkHelpers struct{}

// NewNetlinkHelpers creates the stub helper set.
func NewNetlinkHelpers() *NetlinkHelpers {
	logging.WithComponent("system").Warn("System helpers are simulation-only on this platform")
	return &NetlinkHelpers{}
}

func (*NetlinkHelpers) DeleteDefaultRoute() error { return nil }
func (*NetlinkHelpers) FlushRoutes(string) error { return nil }
func (*NetlinkHelpers) FlushAddresses(string) error { return nil }
func (*NetlinkHelpers) FlushARPCache() error { return nil }
func (*NetlinkHelpers) RestartMDNSResponder() error { return nil }
func (*NetlinkHelpers) SetupStaticIPv4(string, config.Device) error { return nil }
func (*NetlinkHelpers) ConfigureAutoIP(string) (bool, error) { return true, nil }
