// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package radio

// MII basic status register bits (register 1).  See the MII status
// reference: 0x0004 is "link established" (sticky on failure), 0x0010 is
// "remote fault", 0x0002 is "jabber detected".
const (
	miiStatusRegister = 1

	miiLinkMask = 0x0016
	miiLinkUp   = 0x0004
)

// MIILinkFromStatus decides link state from a basic status register word:
// the link bit must be set with remote-fault and jabber clear.
func MIILinkFromStatus(status uint16) bool {
	return status&miiLinkMask == miiLinkUp
}
