// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package activation

import (
	"context"
	"time"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/dhcp"
)

// configureIP performs the IP half of activation: the old default route is
// dropped, then either auto-IP, DHCP, or the static record configures the
// interface.  On success the ARP cache is flushed and the mDNS responder
// restarted so the new address is usable immediately.
func (e *Engine) configureIP(req *request, onlyAutoIP bool) bool {
	d := req.dev
	helpers := d.Helpers()
	log := e.logger.WithFields("iface", d.Iface())

	if helpers != nil {
		_ = helpers.DeleteDefaultRoute()
	}

	// Test devices configure instantly with their fixed address.
	if d.IsTestDevice() {
		d.UpdateIP4Address()
		return true
	}

	var success bool
	switch {
	case onlyAutoIP:
		ok, err := helpers.ConfigureAutoIP(d.Iface())
		if err != nil {
			log.WithError(err).Warn("AutoIP configuration failed")
		}
		success = ok

	case d.UseDHCP():
		result, lease := e.runDHCP(req)
		if result == dhcp.ResultBound {
			req.lease = lease
			success = true
		} else {
			// The interface cannot stay down after a DHCP failure or it
			// could not be used for scanning and link detection.
			if d.IsWireless() {
				_ = d.Control().SetESSID("")
				_ = d.Control().SetEncryptionKey("", ap.AuthNone)
			}
			d.EnsureUp()
		}

	default:
		if err := helpers.SetupStaticIPv4(d.Iface(), d.Config()); err != nil {
			log.WithError(err).Warn("Static configuration failed")
		} else {
			success = true
		}
	}

	if success {
		if helpers != nil {
			_ = helpers.FlushARPCache()
			_ = helpers.RestartMDNSResponder()
		}
		d.UpdateIP4Address()
	}
	return success
}

// runDHCP runs a DHCP exchange, watching the cancel flag so a cancelled
// activation aborts the exchange promptly.
func (e *Engine) runDHCP(req *request) (dhcp.Result, *dhcp.Lease) {
	d := req.dev

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
				if d.ShouldCancelActivation() {
					e.dhcp.Cease(d.Iface())
					cancel()
					return
				}
			}
		}
	}()

	result, lease, err := e.dhcp.Request(ctx, d.Iface())
	cancel()
	<-watchDone

	if err != nil {
		e.logger.WithError(err).Info("DHCP failed", "iface", d.Iface())
		return dhcp.ResultFailed, nil
	}
	return result, lease
}
