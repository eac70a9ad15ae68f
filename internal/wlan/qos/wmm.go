package qos

import (
	"fmt"

	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
)

// WMM vendor element identification.
var WMMOUI = [3]byte{0x00, 0x50, 0xF2}

const (
	WMMOUIType       = 2
	WMMSubtypeInfo   = 0
	WMMSubtypeParam  = 1
	WMMVersion       = 1
	WMMInfoElemLen   = 7
	WMMParamElemLen  = 24
	uapsdSupportedAP = 0x80
)

// WmmInfoElement is the 7-byte WMM Information Element body.
type WmmInfoElement struct {
	OUI        [3]byte
	OUIType    uint8
	OUISubtype uint8
	Version    uint8
	QoSInfo    uint8
}

// StaWmmInfo builds a station's info element. uapsdACs carries the
// per-AC U-APSD flags in its low nibble.
func StaWmmInfo(uapsdACs uint8) WmmInfoElement {
	return WmmInfoElement{
		OUI:        WMMOUI,
		OUIType:    WMMOUIType,
		OUISubtype: WMMSubtypeInfo,
		Version:    WMMVersion,
		QoSInfo:    uapsdACs & 0x0F,
	}
}

// APWmmInfo builds an AP's info element.
func APWmmInfo(paramSetCount uint8, uapsdSupported bool) WmmInfoElement {
	qi := paramSetCount & 0x0F
	if uapsdSupported {
		qi |= uapsdSupportedAP
	}
	return WmmInfoElement{
		OUI:        WMMOUI,
		OUIType:    WMMOUIType,
		OUISubtype: WMMSubtypeInfo,
		Version:    WMMVersion,
		QoSInfo:    qi,
	}
}

func (e WmmInfoElement) Encode() [WMMInfoElemLen]byte {
	return [WMMInfoElemLen]byte{
		e.OUI[0], e.OUI[1], e.OUI[2],
		e.OUIType, e.OUISubtype, e.Version, e.QoSInfo,
	}
}

// Element wraps the body into a vendor-specific IE.
func (e WmmInfoElement) Element() ieee80211.InformationElement {
	b := e.Encode()
	return ieee80211.InformationElement{ID: ieee80211.IEVendorSpecific, Data: b[:]}
}

// WmmParamElement is the 24-byte WMM Parameter Element body. AC records
// are serialized in BE, BK, VI, VO order.
type WmmParamElement struct {
	Info     WmmInfoElement
	Reserved uint8
	BE       EdcaParams
	BK       EdcaParams
	VI       EdcaParams
	VO       EdcaParams
}

// DefaultAPWmmParam returns the parameter element an AP advertises by default.
func DefaultAPWmmParam() WmmParamElement {
	return WmmParamElement{
		Info: APWmmInfo(0, true),
		BE:   DefaultAPParams(BestEffort),
		BK:   DefaultAPParams(Background),
		VI:   DefaultAPParams(Video),
		VO:   DefaultAPParams(Voice),
	}
}

func (e WmmParamElement) Encode() [WMMParamElemLen]byte {
	var b [WMMParamElemLen]byte
	info := e.Info.Encode()
	copy(b[:], info[:])
	b[4] = WMMSubtypeParam
	b[7] = e.Reserved
	for i, p := range [...]EdcaParams{e.BE, e.BK, e.VI, e.VO} {
		rec := p.EncodeWMMAC()
		copy(b[8+4*i:], rec[:])
	}
	return b
}

// Element wraps the body into a vendor-specific IE.
func (e WmmParamElement) Element() ieee80211.InformationElement {
	b := e.Encode()
	return ieee80211.InformationElement{ID: ieee80211.IEVendorSpecific, Data: b[:]}
}

// Params returns the record for ac.
func (e WmmParamElement) Params(ac AccessCategory) EdcaParams {
	switch ac {
	case Background:
		return e.BK
	case Video:
		return e.VI
	case Voice:
		return e.VO
	default:
		return e.BE
	}
}

// DecodeWmmParamElement parses a parameter element body (starting at the OUI).
func DecodeWmmParamElement(b []byte) (WmmParamElement, error) {
	var e WmmParamElement
	if len(b) < WMMParamElemLen {
		return e, fmt.Errorf("wmm parameter element: %d bytes: %w", len(b), ieee80211.ErrMalformedIE)
	}
	if [3]byte(b[0:3]) != WMMOUI || b[3] != WMMOUIType || b[4] != WMMSubtypeParam {
		return e, fmt.Errorf("wmm parameter element: unexpected header % x: %w", b[:5], ieee80211.ErrMalformedIE)
	}
	e.Info = WmmInfoElement{
		OUI:        WMMOUI,
		OUIType:    b[3],
		OUISubtype: b[4],
		Version:    b[5],
		QoSInfo:    b[6],
	}
	e.Reserved = b[7]
	e.BE = DecodeWMMAC([4]byte(b[8:12]))
	e.BK = DecodeWMMAC([4]byte(b[12:16]))
	e.VI = DecodeWMMAC([4]byte(b[16:20]))
	e.VO = DecodeWMMAC([4]byte(b[20:24]))
	return e, nil
}

// FindWmmParamElement locates and decodes the WMM parameter element in a
// beacon or probe response IE block.
func FindWmmParamElement(ies []byte) (WmmParamElement, error) {
	body, err := ieee80211.FindVendorIE(ies, WMMOUI, WMMOUIType)
	if err != nil {
		return WmmParamElement{}, err
	}
	return DecodeWmmParamElement(body)
}
