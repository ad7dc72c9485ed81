// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package radio

// Wireless-extension ioctl numbers and flag bits, from linux/wireless.h.
// Kept here without a build tag so the scan-stream parser is testable on
// any platform.
const (
	siocSIWMODE   = 0x8B06
	siocGIWMODE   = 0x8B07
	siocSIWFREQ   = 0x8B04
	siocGIWFREQ   = 0x8B05
	siocGIWNAME   = 0x8B01
	siocGIWRANGE  = 0x8B0B
	siocGIWSTATS  = 0x8B0F
	siocGIWAP     = 0x8B15
	siocSIWSCAN   = 0x8B18
	siocGIWSCAN   = 0x8B19
	siocSIWESSID  = 0x8B1A
	siocGIWESSID  = 0x8B1B
	siocSIWRATE   = 0x8B20
	siocGIWRATE   = 0x8B21
	siocSIWENCODE = 0x8B2A
	siocGIWENCODE = 0x8B2B

	iwevQual = 0x8C01

	iwModeAdHoc = 1
	iwModeInfra = 2

	iwEncodeEnabled    = 0x0000
	iwEncodeRestricted = 0x4000
	iwEncodeOpen       = 0x2000
	iwEncodeDisabled   = 0x8000
	iwEncodeNoKey      = 0x0800

	iwFreqFixed = 0x01

	// Event-stream framing: every event leads with length (u16) and
	// command (u16).
	iwEvLCPLen = 4
)
