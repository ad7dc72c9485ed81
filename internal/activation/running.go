// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package activation

import (
	"context"
	"time"

	"grimm.is/linkmgr/internal/dhcp"
)

// runLeaseLoop keeps a DHCP-leased device alive: renew at T1, rebind at
// T2, and reconfigure when the server moves us.  The loop exits on cancel
// or when a rebind cannot recover the lease.
func (e *Engine) runLeaseLoop(req *request) {
	d := req.dev
	log := e.logger.WithFields("iface", d.Iface())

	timeouts := dhcp.SetupTimeouts(req.lease)
	log.Debug("Lease maintenance started", "renew", timeouts.Renew, "rebind", timeouts.Rebind)

	renewAt := d.Clock().Now().Add(timeouts.Renew)
	rebindAt := d.Clock().Now().Add(timeouts.Rebind)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if d.ShouldCancelActivation() {
			log.Debug("Lease maintenance cancelled")
			return
		}

		now := d.Clock().Now()
		if now.Before(renewAt) {
			continue
		}

		result, lease, err := e.dhcp.Renew(context.Background(), d.Iface())
		if result == dhcp.ResultBound && err == nil {
			req.lease = lease
			timeouts = dhcp.SetupTimeouts(lease)
			renewAt = d.Clock().Now().Add(timeouts.Renew)
			rebindAt = d.Clock().Now().Add(timeouts.Rebind)
			d.UpdateIP4Address()
			log.Debug("Lease renewed", "renew", timeouts.Renew)
			continue
		}

		if now.Before(rebindAt) {
			// Renew failed but the rebind window is still open; back off
			// and try again shortly.
			renewAt = now.Add(time.Minute)
			log.Debug("Lease renew failed, will retry")
			continue
		}

		log.Warn("Lease rebind failed, releasing interface")
		e.dhcp.Free(d.Iface())
		return
	}
}
