// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package main

import (
	"grimm.is/linkmgr/internal/dhcp"
	"grimm.is/linkmgr/internal/hal"
	"grimm.is/linkmgr/internal/radio"
	"grimm.is/linkmgr/internal/system"
)

// deps bundles the platform collaborators.
type deps struct {
	store      hal.Store
	helpers    system.Helpers
	dhcp       dhcp.Client
	newControl func(iface string) radio.Control
}

func platformDeps() deps {
	return deps{
		store:   hal.NewSysfsStore(),
		helpers: system.NewNetlinkHelpers(),
		dhcp:    dhcp.NewNetworkClient(),
		newControl: func(iface string) radio.Control {
			return radio.NewLinuxControl(iface)
		},
	}
}
