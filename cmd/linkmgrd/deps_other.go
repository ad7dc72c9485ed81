// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package main

import (
	"grimm.is/linkmgr/internal/dhcp"
	"grimm.is/linkmgr/internal/hal"
	"grimm.is/linkmgr/internal/radio"
	"grimm.is/linkmgr/internal/system"
)

// deps bundles the platform collaborators.  Off Linux the radio, property
// store and system helpers are simulated, and the DHCP client fails every
// exchange.
type deps struct {
	store      hal.Store
	helpers    system.Helpers
	dhcp       dhcp.Client
	newControl func(iface string) radio.Control
}

func platformDeps() deps {
	return deps{
		store:   &hal.StaticStore{Support: hal.DriverFullySupported, Driver: "simulated"},
		helpers: system.NewNetlinkHelpers(),
		dhcp:    dhcp.NewNetworkClient(),
		newControl: func(iface string) radio.Control {
			return radio.NewSynthetic(iface)
		},
	}
}
