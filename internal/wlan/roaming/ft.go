package roaming

import (
	"encoding/binary"
	"fmt"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
)

// FT action frame constants (802.11r, category 6).
const (
	CategoryFT        = 6
	ActionFTRequest   = 1
	ActionFTResponse  = 2
	ActionFTConfirm   = 3
	ActionFTAck       = 4
	mobilityDomainLen = 3
	ftCapOverDS       = 0x01
	ftCapResourceReq  = 0x02
)

// FtInfo holds the Fast BSS Transition context of a mobility domain.
type FtInfo struct {
	MDID         uint16 // Mobility Domain ID
	FTCapability uint8  // FT Capability and Policy
	R0KHID       []byte
	R1KHID       domain.MAC
	PMKR0Name    [16]byte
	PMKR1Name    [16]byte
}

// OverDS reports FT over the distribution system support.
func (f FtInfo) OverDS() bool { return f.FTCapability&ftCapOverDS != 0 }

// ResourceRequest reports Resource Request Protocol support.
func (f FtInfo) ResourceRequest() bool { return f.FTCapability&ftCapResourceReq != 0 }

// ParseMobilityDomain parses the Mobility Domain element body (ID 54):
// MDID (2 octets, LE) | FT Capability and Policy (1 octet).
func ParseMobilityDomain(data []byte) (FtInfo, error) {
	if len(data) < mobilityDomainLen {
		return FtInfo{}, fmt.Errorf("MDIE too short: %d: %w", len(data), ieee80211.ErrMalformedIE)
	}
	return FtInfo{
		MDID:         binary.LittleEndian.Uint16(data[0:2]),
		FTCapability: data[2],
	}, nil
}

// MobilityDomainElement encodes f as a Mobility Domain element.
func (f FtInfo) MobilityDomainElement() ieee80211.InformationElement {
	body := make([]byte, mobilityDomainLen)
	binary.LittleEndian.PutUint16(body, f.MDID)
	body[2] = f.FTCapability
	return ieee80211.InformationElement{ID: ieee80211.IEMobilityDomain, Data: body}
}

// FtInfoFromBSS extracts the mobility domain a BSS advertises.
func FtInfoFromBSS(bss domain.ScanResult) (FtInfo, error) {
	body, err := ieee80211.FindIE(bss.IEs, ieee80211.IEMobilityDomain)
	if err != nil {
		return FtInfo{}, err
	}
	return ParseMobilityDomain(body)
}

// SameMobilityDomain reports whether target can be reached with FT from the
// domain described by f.
func (f FtInfo) SameMobilityDomain(target domain.ScanResult) bool {
	other, err := FtInfoFromBSS(target)
	return err == nil && other.MDID == f.MDID
}

// BuildFTRequest builds the FT Request action body: category, action, STA
// address, target AP address and the Mobility Domain element.
func BuildFTRequest(sta, targetAP domain.MAC, ft FtInfo) []byte {
	body := make([]byte, 0, 64)
	body = append(body, CategoryFT, ActionFTRequest)
	body = append(body, sta[:]...)
	body = append(body, targetAP[:]...)
	return append(body, ft.MobilityDomainElement().Bytes()...)
}

// BuildFTRequestFrame wraps the FT Request in an action frame sent through
// the current AP (FT over DS).
func BuildFTRequestFrame(sta, currentAP, targetAP domain.MAC, ft FtInfo) []byte {
	return ieee80211.BuildAction(currentAP, sta, currentAP, BuildFTRequest(sta, targetAP, ft))
}
