package power

import (
	"encoding/binary"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
)

const (
	PSPollLen   = 16
	NullDataLen = ieee80211.BaseHeaderLen

	aidMask = 0xC000
)

// Transmit power range advertised at association, dBm.
const (
	MinTxPower = 0
	MaxTxPower = 20
)

// BuildPowerCapabilityIE returns the Power Capability element.
func BuildPowerCapabilityIE() []byte {
	return ieee80211.InformationElement{
		ID:   ieee80211.IEPowerCapability,
		Data: []byte{MinTxPower, MaxTxPower},
	}.Bytes()
}

// BuildPSPollFrame builds the 16-byte PS-Poll control frame. The duration
// field carries the association ID with its two top bits set.
func BuildPSPollFrame(aid uint16, bssid, sta domain.MAC) [PSPollLen]byte {
	var f [PSPollLen]byte
	fc := ieee80211.FrameControl{Type: ieee80211.TypeControl, Subtype: ieee80211.SubtypePSPoll}
	binary.LittleEndian.PutUint16(f[0:2], fc.Uint16())
	binary.LittleEndian.PutUint16(f[2:4], aid|aidMask)
	copy(f[4:10], bssid[:])
	copy(f[10:16], sta[:])
	return f
}

// BuildNullDataFrame builds a 24-byte null data frame. With toDS it goes
// to the AP (BSSID, STA, BSSID); otherwise the addresses are STA, BSSID,
// STA. powerMgmt sets the PM bit announcing the station will doze.
func BuildNullDataFrame(toDS, powerMgmt bool, bssid, sta domain.MAC) [NullDataLen]byte {
	h := ieee80211.MacHeader{
		FrameControl: ieee80211.FrameControl{
			Type:            ieee80211.TypeData,
			Subtype:         ieee80211.SubtypeNull,
			ToDS:            toDS,
			PowerManagement: powerMgmt,
		},
	}
	if toDS {
		h.Address1, h.Address2, h.Address3 = bssid, sta, bssid
	} else {
		h.Address1, h.Address2, h.Address3 = sta, bssid, sta
	}
	return [NullDataLen]byte(h.Bytes())
}
