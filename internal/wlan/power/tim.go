package power

import (
	"fmt"

	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
)

// TIM is the Traffic Indication Map element of a beacon.
type TIM struct {
	DTIMCount     uint8
	DTIMPeriod    uint8
	Multicast     bool  // group traffic buffered, valid in DTIM beacons
	BitmapOffset  uint8 // byte offset of Bitmap in the virtual bitmap, always even
	PartialBitmap []byte
}

// ParseTIM decodes a TIM element body.
func ParseTIM(data []byte) (TIM, error) {
	if len(data) < 4 {
		return TIM{}, fmt.Errorf("%w: TIM length %d", ieee80211.ErrMalformedIE, len(data))
	}
	return TIM{
		DTIMCount:     data[0],
		DTIMPeriod:    data[1],
		Multicast:     data[2]&0x01 != 0,
		BitmapOffset:  data[2] &^ 0x01,
		PartialBitmap: data[3:],
	}, nil
}

// IsDTIM reports whether the beacon carrying t is a DTIM beacon.
func (t TIM) IsDTIM() bool { return t.DTIMCount == 0 }

// HasBuffered reports whether the AP holds unicast frames for aid.
func (t TIM) HasBuffered(aid uint16) bool {
	idx := int(aid / 8)
	off := int(t.BitmapOffset)
	if idx < off || idx >= off+len(t.PartialBitmap) {
		return false
	}
	return t.PartialBitmap[idx-off]&(1<<(aid%8)) != 0
}

// NewTIM builds a TIM flagging the given association IDs. The partial
// bitmap covers only the bytes between the lowest and highest flagged AID.
func NewTIM(count, period uint8, multicast bool, aids ...uint16) TIM {
	t := TIM{DTIMCount: count, DTIMPeriod: period, Multicast: multicast}
	if len(aids) == 0 {
		t.PartialBitmap = []byte{0}
		return t
	}

	lo, hi := int(aids[0]/8), int(aids[0]/8)
	for _, aid := range aids[1:] {
		lo = min(lo, int(aid/8))
		hi = max(hi, int(aid/8))
	}
	lo &^= 1
	t.BitmapOffset = uint8(lo)
	t.PartialBitmap = make([]byte, hi-lo+1)
	for _, aid := range aids {
		t.PartialBitmap[int(aid/8)-lo] |= 1 << (aid % 8)
	}
	return t
}

// Element encodes t as a TIM information element.
func (t TIM) Element() ieee80211.InformationElement {
	ctrl := t.BitmapOffset &^ 0x01
	if t.Multicast {
		ctrl |= 0x01
	}
	data := append([]byte{t.DTIMCount, t.DTIMPeriod, ctrl}, t.PartialBitmap...)
	return ieee80211.InformationElement{ID: ieee80211.IETIM, Data: data}
}
