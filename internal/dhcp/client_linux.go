// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package dhcp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/nclient4"
	"github.com/vishvananda/netlink"

	"grimm.is/linkmgr/internal/errors"
	"grimm.is/linkmgr/internal/logging"
)

// NetworkClient is the production DHCP client built on the dhcpv4 nclient.
type NetworkClient struct {
	mu      sync.Mutex
	logger  *logging.Logger
	cancels map[string]context.CancelFunc
	leases  map[string]*nclient4.Lease
}

// NewNetworkClient creates a DHCP client.
func NewNetworkClient() *NetworkClient {
	return &NetworkClient{
		logger:  logging.WithComponent("dhcp"),
		cancels: make(map[string]context.CancelFunc),
		leases:  make(map[string]*nclient4.Lease),
	}
}

// Request runs a full discover/offer/request/ack exchange and applies the
// lease address to the interface.
func (c *NetworkClient) Request(ctx context.Context, iface string) (Result, *Lease, error) {
	return c.exchange(ctx, iface, false)
}

// Renew re-requests the interface's current lease.
func (c *NetworkClient) Renew(ctx context.Context, iface string) (Result, *Lease, error) {
	return c.exchange(ctx, iface, true)
}

func (c *NetworkClient) exchange(ctx context.Context, iface string, renew bool) (Result, *Lease, error) {
	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	c.mu.Lock()
	if prev, ok := c.cancels[iface]; ok {
		prev()
	}
	c.cancels[iface] = cancel
	c.mu.Unlock()
	defer cancel()

	client, err := nclient4.New(iface)
	if err != nil {
		return ResultFailed, nil, errors.Wrapf(err, errors.KindDhcpFailed, "could not open DHCP client on %s", iface)
	}
	defer client.Close()

	c.logger.Debug("Starting DHCP exchange", "iface", iface, "renew", renew)

	lease, err := client.Request(ctx)
	if err != nil {
		return ResultFailed, nil, errors.Wrapf(err, errors.KindDhcpFailed, "DHCP request on %s failed", iface)
	}

	c.mu.Lock()
	c.leases[iface] = lease
	c.mu.Unlock()

	out := leaseFromACK(lease.ACK)
	if err := c.applyLease(iface, out); err != nil {
		return ResultFailed, nil, err
	}

	c.logger.Info("DHCP bound", "iface", iface, "addr", out.IP, "lease", out.Duration)
	return ResultBound, out, nil
}

func leaseFromACK(ack *dhcpv4.DHCPv4) *Lease {
	lease := &Lease{
		IP:         ack.YourIPAddr,
		Netmask:    ack.SubnetMask(),
		DNS:        ack.DNS(),
		Duration:   ack.IPAddressLeaseTime(24 * time.Hour),
		ObtainedAt: time.Now(),
	}
	if routers := ack.Router(); len(routers) > 0 {
		lease.Router = routers[0]
	}
	if lease.Netmask == nil {
		lease.Netmask = net.CIDRMask(24, 32)
	}
	return lease
}

func (c *NetworkClient) applyLease(iface string, lease *Lease) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "link %s not found", iface)
	}

	addr := &netlink.Addr{IPNet: &net.IPNet{IP: lease.IP, Mask: lease.Netmask}}
	if err := netlink.AddrReplace(link, addr); err != nil {
		return errors.Wrapf(err, errors.KindIO, "could not apply leased address %s to %s", addr.IPNet, iface)
	}

	if lease.Router != nil {
		route := &netlink.Route{LinkIndex: link.Attrs().Index, Gw: lease.Router}
		if err := netlink.RouteReplace(route); err != nil {
			c.logger.WithError(err).Warn("Failed to install leased default route", "iface", iface, "gw", lease.Router)
		}
	}
	return nil
}

// Cease aborts any in-flight exchange for the interface.
func (c *NetworkClient) Cease(iface string) error {
	c.mu.Lock()
	cancel, ok := c.cancels[iface]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// Free releases the lease back to the server and forgets interface state.
func (c *NetworkClient) Free(iface string) error {
	c.mu.Lock()
	lease := c.leases[iface]
	delete(c.leases, iface)
	cancel := c.cancels[iface]
	delete(c.cancels, iface)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if lease == nil {
		return nil
	}

	client, err := nclient4.New(iface)
	if err != nil {
		return nil
	}
	defer client.Close()
	if err := client.Release(lease); err != nil {
		c.logger.WithError(err).Debug("DHCP release failed", "iface", iface)
	}
	return nil
}
