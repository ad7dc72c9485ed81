// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package system

import (
	"fmt"
	"hash/fnv"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"grimm.is/linkmgr/internal/config"
	"grimm.is/linkmgr/internal/errors"
	"grimm.is/linkmgr/internal/logging"
)

// NetlinkHelpers implements Helpers against the running kernel.
type NetlinkHelpers struct {
	logger *logging.Logger
}

// NewNetlinkHelpers creates the production helper set.
func NewNetlinkHelpers() *NetlinkHelpers {
	return &NetlinkHelpers{logger: logging.WithComponent("system")}
}

// DeleteDefaultRoute removes the current IPv4 default route, tolerating
// its absence.
func (h *NetlinkHelpers) DeleteDefaultRoute() error {
	routes, err := netlink.RouteList(nil, unix.AF_INET)
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "could not list routes")
	}
	for _, r := range routes {
		if r.Dst == nil || r.Dst.IP.IsUnspecified() {
			if err := netlink.RouteDel(&r); err != nil {
				h.logger.WithError(err).Warn("Failed to delete default route")
			}
		}
	}
	return nil
}

// FlushRoutes removes every route through the interface.
func (h *NetlinkHelpers) FlushRoutes(iface string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "link %s not found", iface)
	}
	routes, err := netlink.RouteList(link, unix.AF_INET)
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "could not list routes on %s", iface)
	}
	for _, r := range routes {
		if err := netlink.RouteDel(&r); err != nil {
			h.logger.WithError(err).Warn("Failed to flush route", "iface", iface)
		}
	}
	return nil
}

// FlushAddresses removes every IPv4 address from the interface.
func (h *NetlinkHelpers) FlushAddresses(iface string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "link %s not found", iface)
	}
	addrs, err := netlink.AddrList(link, unix.AF_INET)
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "could not list addresses on %s", iface)
	}
	for _, a := range addrs {
		if err := netlink.AddrDel(link, &a); err != nil {
			h.logger.WithError(err).Warn("Failed to flush address", "iface", iface, "addr", a.IPNet.String())
		}
	}
	return nil
}

// FlushARPCache drops every dynamic neighbour entry.
func (h *NetlinkHelpers) FlushARPCache() error {
	neighs, err := netlink.NeighList(0, unix.AF_INET)
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "could not list neighbours")
	}
	for _, n := range neighs {
		if n.State&netlink.NUD_PERMANENT != 0 {
			continue
		}
		if err := netlink.NeighDel(&n); err != nil {
			h.logger.WithError(err).Debug("Failed to delete neighbour", "ip", n.IP)
		}
	}
	return nil
}

// RestartMDNSResponder pokes the local mDNS daemon so it rebinds to the
// new address.
func (h *NetlinkHelpers) RestartMDNSResponder() error {
	if _, err := RunCommand("killall", "-HUP", "mDNSResponder"); err != nil {
		// Not fatal; the responder may simply not be installed.
		h.logger.Debug("mDNS responder not restarted")
	}
	return nil
}

// SetupStaticIPv4 applies the static config record: address, broadcast and
// default gateway.
func (h *NetlinkHelpers) SetupStaticIPv4(iface string, cfg config.Device) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "link %s not found", iface)
	}

	ip := net.ParseIP(cfg.IPv4)
	if ip == nil {
		return errors.Errorf(errors.KindInvalidArgument, "device %s: bad static address %q", iface, cfg.IPv4)
	}
	mask := net.IPv4Mask(255, 255, 255, 0)
	if m := net.ParseIP(cfg.Netmask); m != nil {
		mask = net.IPMask(m.To4())
	}

	addr := &netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: mask}}
	if bc := net.ParseIP(cfg.Broadcast); bc != nil {
		addr.Broadcast = bc
	}
	if err := netlink.AddrAdd(link, addr); err != nil {
		return errors.Wrapf(err, errors.KindIO, "could not set %s on %s", addr.IPNet, iface)
	}

	if gw := net.ParseIP(cfg.Gateway); gw != nil {
		route := &netlink.Route{LinkIndex: link.Attrs().Index, Gw: gw}
		if err := netlink.RouteAdd(route); err != nil {
			return errors.Wrapf(err, errors.KindIO, "could not add default route via %s", gw)
		}
	}

	h.logger.Info("Static IPv4 configured", "iface", iface, "addr", cfg.IPv4, "gateway", cfg.Gateway)
	return nil
}

// ConfigureAutoIP claims a link-local address in 169.254/16 derived from
// the interface's hardware address.
func (h *NetlinkHelpers) ConfigureAutoIP(iface string) (bool, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return false, errors.Wrapf(err, errors.KindIO, "link %s not found", iface)
	}

	hw := link.Attrs().HardwareAddr
	hash := fnv.New32a()
	hash.Write(hw)
	hash.Write([]byte(iface))
	v := hash.Sum32()

	// Hosts 0.x and 255.x are reserved in the link-local range.
	b2 := byte(1 + v%254)
	b3 := byte(v >> 8)
	ip := net.IPv4(169, 254, b2, b3)

	addr := &netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: net.CIDRMask(16, 32)}}
	if err := netlink.AddrAdd(link, addr); err != nil {
		return false, errors.Wrapf(err, errors.KindIO, "could not claim %s on %s", ip, iface)
	}

	h.logger.Info("AutoIP address claimed", "iface", iface, "addr", fmt.Sprintf("%s/16", ip))
	return true, nil
}
