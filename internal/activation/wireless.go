// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package activation

import (
	"time"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/device"
	"grimm.is/linkmgr/internal/events"
	"grimm.is/linkmgr/internal/metrics"
)

// wstate is the wireless activation sub-machine's position.
type wstate int

const (
	wsGetAP wstate = iota
	wsUnencrypted
	wsNeedKey
	wsEncrypted
)

// activateWireless associates the radio with the best access point and
// brings up IP.  One loop over an explicit state value: AP selection,
// unencrypted attach, key prompting, and the encrypted fallback ladder all
// feed back into it.
func (e *Engine) activateWireless(req *request) bool {
	d := req.dev
	log := e.logger.WithFields("iface", d.Iface())

	d.EnsureUp()
	d.Clock().Sleep(time.Second)

	state := wsGetAP
	auth := ap.AuthSharedKey
	attempt := 1
	lastESSID := ""
	var best *ap.AccessPoint

	defer d.SetNowScanning(false)

	for {
		if d.ShouldCancelActivation() {
			return false
		}

		switch state {
		case wsGetAP:
			req.setPhase(PhaseWaitForAP)
			best = d.BestAP()
			if best == nil {
				d.SetNowScanning(true)
				log.Debug("Waiting for an access point")
				d.Clock().Sleep(2 * time.Second)
				continue
			}
			d.SetNowScanning(false)

			if !best.Encrypted() {
				state = wsUnencrypted
			} else if best.NeedsKey() {
				state = wsNeedKey
			} else {
				auth = ap.AuthSharedKey
				state = wsEncrypted
			}

		case wsUnencrypted:
			req.setPhase(PhaseAssociate)
			e.setWirelessConfig(req, best, ap.AuthNone)

			if best.Mode() == ap.ModeAdHoc {
				req.setPhase(PhaseConfigureIP)
				return e.configureIP(req, true)
			}

			req.setPhase(PhaseVerifyLink)
			if !e.haveLink(d) || !e.configureIPPhase(req, false) {
				log.Info("No link or no IP configuration, trying another access point",
					"essid", essidOrNone(best), "auth", "none")
				e.invalidate(d, best)
				state = wsGetAP
				continue
			}
			return true

		case wsNeedKey:
			req.setPhase(PhaseNeedKey)
			essid := best.ESSID()
			if essid != lastESSID {
				attempt = 1
			}
			lastESSID = essid

			d.ResetUserKeyWait()
			d.Hub().Publish(events.Event{
				Type: events.EventUserKeyRequested,
				Data: events.KeyRequestData{DevicePath: d.Path(), Iface: d.Iface(), ESSID: essid, Attempt: attempt},
			})
			attempt++

			log.Debug("Asking for user key", "essid", essid)
			d.WaitUserKey()
			if d.ShouldCancelActivation() {
				return false
			}
			log.Debug("User key received", "essid", essid)

			// The user may have cancelled the prompt, which invalidated
			// the AP and recomputed the best selection; re-fetch it.  If a
			// key arrived it is now on the AP and the encrypted branch
			// runs next time around.
			state = wsGetAP

		case wsEncrypted:
			req.setPhase(PhaseAssociate)
			e.setWirelessConfig(req, best, auth)

			// The fallback ladder makes no sense without a base station,
			// so ad-hoc targets go straight to IP setup.
			if best.Mode() == ap.ModeAdHoc {
				req.setPhase(PhaseConfigureIP)
				return e.configureIP(req, true)
			}

			req.setPhase(PhaseVerifyLink)
			if !e.haveLink(d) {
				if auth == ap.AuthSharedKey {
					log.Info("No link in Shared Key mode, trying Open System", "essid", essidOrNone(best))
					metrics.AuthFallbacks.WithLabelValues(d.Iface()).Inc()
					auth = ap.AuthOpenSystem
					continue
				}
				log.Info("No link in Open System mode, trying another access point", "essid", essidOrNone(best))
				e.invalidate(d, best)
				auth = ap.AuthSharedKey
				state = wsGetAP
				continue
			}

			if !e.configureIPPhase(req, false) {
				if auth == ap.AuthSharedKey {
					log.Info("No IP configuration in Shared Key mode, trying Open System", "essid", essidOrNone(best))
					metrics.AuthFallbacks.WithLabelValues(d.Iface()).Inc()
					auth = ap.AuthOpenSystem
					continue
				}
				// Open System associated but DHCP failed: the key must be
				// wrong, go back to prompting.
				log.Info("No IP configuration in Open System mode, asking for a new key", "essid", essidOrNone(best))
				state = wsNeedKey
				continue
			}
			return true
		}
	}
}

// configureIPPhase wraps configureIP with the phase transition.
func (e *Engine) configureIPPhase(req *request, onlyAutoIP bool) bool {
	req.setPhase(PhaseConfigureIP)
	return e.configureIP(req, onlyAutoIP)
}

// invalidate marks an access point unusable and recomputes the selection.
func (e *Engine) invalidate(d *device.Device, bad *ap.AccessPoint) {
	bad.SetInvalid(true)
	d.Invalid().Append(ap.NewFromAP(bad))
	d.UpdateBestAP()
}

// haveLink reports the link verdict after an association pause.
func (e *Engine) haveLink(d *device.Device) bool {
	link := d.LinkActive()
	if link {
		e.logger.Debug("Card appears to have a link to the access point", "iface", d.Iface())
	} else {
		e.logger.Debug("Card appears NOT to have a link to the access point", "iface", d.Iface())
	}
	return link
}

// setWirelessConfig pushes an access point's parameters onto the radio.
// The down/up settles are mandatory: some drivers drop commands issued too
// close to a state change.
func (e *Engine) setWirelessConfig(req *request, target *ap.AccessPoint, auth ap.AuthMethod) {
	d := req.dev
	ctl := d.Control()
	clk := d.Clock()

	_ = ctl.BringDown()
	clk.Sleep(4 * time.Second)
	_ = ctl.BringUp()
	clk.Sleep(2 * time.Second)

	_ = ctl.SetMode(ap.ModeInfrastructure)
	_ = ctl.SetESSID(" ")

	_ = ctl.SetMode(target.Mode())
	_ = ctl.SetBitrate(0)
	if target.UserCreated() || (target.Freq() != 0 && target.Mode() == ap.ModeAdHoc) {
		_ = ctl.SetFrequency(target.Freq())
	}

	// Disable encryption, then re-enable with the right key if traffic is
	// to be encrypted.
	_ = ctl.SetEncryptionKey("", ap.AuthNone)
	if target.Encrypted() {
		if key := target.HashedKey(); key != "" {
			_ = ctl.SetEncryptionKey(key, auth)
		}
	}

	essid := target.ESSID()
	_ = ctl.SetESSID(essid)

	e.logger.Info("Wireless configuration applied",
		"iface", d.Iface(), "essid", essidOrNone(target), "auth", auth.String())

	// After the ESSID is set the card has to sweep its channels to find
	// the requested network, which takes a while on A/B/G chipsets.
	clk.Sleep(d.AssociationPause())

	// Some cards misbehave in ad-hoc mode without an explicit bitrate;
	// clamp to 11Mb/s when the driver reports nothing useful.
	if target.Mode() == ap.ModeAdHoc {
		if rate, err := ctl.Bitrate(); err == nil && rate <= 0 {
			_ = ctl.SetBitrate(11000)
		}
	}

	d.UpdateLinkActive(false)
}
