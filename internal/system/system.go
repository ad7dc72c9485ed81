// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package system wraps the host-wide side effects of activation: routing
// table edits, address flushes, the ARP cache, the mDNS responder, and
// static/auto IPv4 configuration.
package system

import (
	"os/exec"
	"strings"

	"grimm.is/linkmgr/internal/config"
)

// Helpers is the system-helper boundary used by the activation engine.
type Helpers interface {
	DeleteDefaultRoute() error
	FlushRoutes(iface string) error
	FlushAddresses(iface string) error
	FlushARPCache() error
	RestartMDNSResponder() error

	// SetupStaticIPv4 applies the device's static config record.
	SetupStaticIPv4(iface string, cfg config.Device) error
	// ConfigureAutoIP claims a link-local 169.254/16 address.
	ConfigureAutoIP(iface string) (bool, error)
}

// CommandExecutor runs an external command, overridable in tests.
type CommandExecutor interface {
	RunCommand(name string, arg ...string) (string, error)
}

// RealCommandExecutor shells out.
type RealCommandExecutor struct{}

func (RealCommandExecutor) RunCommand(name string, arg ...string) (string, error) {
	out, err := exec.Command(name, arg...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// DefaultCommandExecutor is the process-wide executor.
var DefaultCommandExecutor CommandExecutor = RealCommandExecutor{}

// RunCommand runs a command and returns its stdout.
func RunCommand(name string, arg ...string) (string, error) {
	return DefaultCommandExecutor.RunCommand(name, arg...)
}
