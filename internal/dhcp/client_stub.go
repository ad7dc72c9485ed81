// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package dhcp

import (
	"context"

	"grimm.is/linkmgr/internal/errors"
)

// NetworkClient is a stub on non-Linux systems; every exchange fails.
type NetworkClient struct{}

// NewNetworkClient creates the stub client.
func NewNetworkClient() *NetworkClient { return &NetworkClient{} }

func (c *NetworkClient) Request(context.Context, string) (Result, *Lease, error) {
	return ResultFailed, nil, errors.New(errors.KindDhcpFailed, "DHCP is not supported on this platform")
}

func (c *NetworkClient) Renew(context.Context, string) (Result, *Lease, error) {
	return ResultFailed, nil, errors.New(errors.KindDhcpFailed, "DHCP is not supported on this platform")
}

func (c *NetworkClient) Cease(string) error { return nil }
func (c *NetworkClient) Free(string) error { return nil }
