// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package activation

import (
	"math/rand"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/device"
)

// maxAdHocChannel bounds creation to the 802.11b channel space so most
// cards can see the network.
const maxAdHocChannel = 14

// activateAdHoc creates an ad-hoc network on a free channel instead of
// associating with an existing one.
func (e *Engine) activateAdHoc(req *request, target *ap.AccessPoint) bool {
	d := req.dev

	auth := ap.AuthNone
	if target.Encrypted() {
		auth = ap.AuthSharedKey
	}

	freq := pickAdHocFrequency(d)
	if freq == 0 {
		return false
	}
	target.SetFreq(freq)

	e.logger.Info("Creating ad-hoc network", "iface", d.Iface(), "essid", essidOrNone(target), "freq", freq)

	req.setPhase(PhaseAssociate)
	e.setWirelessConfig(req, target, auth)
	if d.ShouldCancelActivation() {
		return false
	}

	req.setPhase(PhaseConfigureIP)
	return e.configureIP(req, true)
}

// pickAdHocFrequency selects a clear 802.11b channel: the radio's channel
// table minus frequencies already claimed by visible access points, lowest
// channel first.  A congested table falls back to a random channel.
func pickAdHocFrequency(d *device.Device) float64 {
	ri := d.RangeInfo()

	free := make([]float64, len(ri.Frequencies))
	copy(free, ri.Frequencies)

	if visible := d.APList(); visible != nil {
		for _, seen := range visible.APs() {
			apFreq := seen.Freq()
			if apFreq == 0 {
				continue
			}
			for i, f := range free {
				if f == apFreq {
					free[i] = 0
				}
			}
		}
	}

	bestChannel := 0
	bestFreq := 0.0
	for _, f := range free {
		if f == 0 {
			continue
		}
		channel := ri.ChannelForFreq(f)
		if channel < 1 || channel > maxAdHocChannel {
			continue
		}
		if bestChannel == 0 || channel < bestChannel {
			bestChannel = channel
			bestFreq = f
		}
	}
	if bestFreq != 0 {
		return bestFreq
	}

	// Every 802.11b channel is claimed; pick one of the card's more or less
	// randomly.
	var inRange []float64
	for i, c := range ri.Channels {
		if c >= 1 && c <= maxAdHocChannel && i < len(ri.Frequencies) {
			inRange = append(inRange, ri.Frequencies[i])
		}
	}
	if len(inRange) == 0 {
		return 0
	}
	return inRange[rand.Intn(len(inRange))]
}
