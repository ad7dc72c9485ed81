// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package device

import (
	"net"
	"time"

	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/netutil"
)

// fillerWEPKey is installed when probing an encrypted network without key
// material, so drivers accept the encryption mode change.
const fillerWEPKey = "11111111111111111111111111"

// WirelessNetworkExists tells the card to use a particular ESSID and checks
// whether it can associate, trying each authentication mode in turn.  It is
// the discovery path for networks that do not broadcast their ESSID.
//
// It blows away any connection the card currently has.
func (d *Device) WirelessNetworkExists(network, key string, keyType ap.KeyType) (bssid net.HardwareAddr, encrypted, ok bool) {
	if network == "" || !d.IsWireless() {
		return nil, false, false
	}

	d.logger.Info("Looking for network", "essid", network)

	d.EnsureUp()
	d.deps.Clock.Sleep(4 * time.Second)

	auths := []ap.AuthMethod{ap.AuthSharedKey, ap.AuthOpenSystem, ap.AuthNone}
	mode := ap.ModeInfrastructure

	known := d.APList().GetByESSID(network)
	if known != nil {
		mode = known.Mode()
		// A network already known to be unencrypted skips the encrypted
		// probes up front.
		if !known.Encrypted() {
			auths = []ap.AuthMethod{ap.AuthNone, ap.AuthSharedKey, ap.AuthOpenSystem}
		}
	}

	switch mode {
	case ap.ModeAdHoc:
		// Ad-hoc networks have no base station to associate with; knowing
		// about the network is the best we can do.
		if known != nil {
			ok = true
			encrypted = known.Encrypted()
		}
	default:
		_ = d.deps.Control.SetMode(mode)

		for _, auth := range auths {
			tempEnc := false
			switch auth {
			case ap.AuthSharedKey, ap.AuthOpenSystem:
				tempEnc = true
				if keyType != ap.KeyTypeUnknown && key != "" {
					_ = d.deps.Control.SetEncryptionKey(ap.HashKey(key, keyType), auth)
				} else {
					_ = d.deps.Control.SetEncryptionKey(fillerWEPKey, auth)
				}
			default:
				_ = d.deps.Control.SetEncryptionKey("", auth)
			}

			_ = d.deps.Control.SetESSID(network)
			d.deps.Clock.Sleep(d.AssociationPause())

			d.UpdateLinkActive(false)
			if d.wirelessIsAssociated() {
				if cur, err := d.deps.Control.ESSID(); err == nil && cur != "" {
					addr, err := d.deps.Control.AssociatedBSSID()
					if err == nil && netutil.ValidBSSID(addr) {
						bssid = addr
					}
					encrypted = tempEnc
					ok = true
					break
				}
			}
		}
	}

	// The scan data is more accurate about encryption than whichever mode
	// happened to associate.
	if known != nil {
		encrypted = known.Encrypted()
	}

	if ok {
		d.logger.Info("Network found", "essid", network, "encrypted", encrypted)
	} else {
		d.logger.Info("Network not found", "essid", network)
	}
	return bssid, encrypted, ok
}

// FindAndUseESSID forces the device onto an ESSID the user asked for, even
// if no scan has seen it.  On success the network becomes the frozen best
// selection and any in-flight activation is cancelled so the policy can
// restart with the new target.
func (d *Device) FindAndUseESSID(essid, key string, keyType ap.KeyType) bool {
	if essid == "" || !d.IsWireless() {
		return false
	}

	d.logger.Debug("Forcing AP", "essid", essid)
	d.Deactivate(false)
	d.deps.Clock.Sleep(time.Second)

	bssid, encrypted, exists := d.WirelessNetworkExists(essid, key, keyType)
	if !exists {
		// Cards miss the first probe surprisingly often; ask once more.
		bssid, encrypted, exists = d.WirelessNetworkExists(essid, key, keyType)
	}

	var target *ap.AccessPoint
	if exists {
		if target = d.APList().GetByESSID(essid); target == nil {
			if bssid != nil {
				target = d.APList().GetByBSSID(bssid)
			}
			if target == nil {
				// The card associates but never reports the network in a
				// scan (Cisco cloaking behaviour): record it as artificial
				// so future scans preserve it.
				target = ap.New()
				target.SetEncrypted(encrypted)
				target.SetArtificial(true)
				if bssid != nil {
					target.SetBSSID(bssid)
				}
				d.APList().Append(target)
			}
			target.SetESSID(essid)
		}
	}

	if target == nil {
		return false
	}

	// Now that the AP has an ESSID, pull over anything the allowed list
	// knows about it.
	if allowed := d.deps.Allowed.GetByESSID(target.ESSID()); allowed != nil {
		if k, kt := allowed.KeySource(); k != "" {
			target.SetKeySource(k, kt)
		}
		target.SetInvalid(allowed.Invalid())
		target.SetTimestamp(allowed.Timestamp())
	}

	// The key the user just typed beats anything stored.
	if keyType != ap.KeyTypeUnknown && key != "" {
		target.SetKeySource(key, keyType)
	}

	d.SetBestAP(target)
	d.FreezeBestAP()
	d.CancelActivation()
	return true
}
