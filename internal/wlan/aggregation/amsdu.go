package aggregation

import (
	"encoding/binary"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
)

// Maximum A-MSDU sizes
const (
	AMSDUMax3839  = 3839  // HT basic
	AMSDUMax7935  = 7935  // HT extended
	AMSDUMax11454 = 11454 // VHT/HE
)

// SubframeHeaderLen is the size of an A-MSDU subframe header.
const SubframeHeaderLen = 14

// SubframeHeader precedes each MSDU inside an A-MSDU. The length is big endian.
type SubframeHeader struct {
	DA     domain.MAC
	SA     domain.MAC
	Length uint16
}

// Bytes encodes the header.
func (h SubframeHeader) Bytes() [SubframeHeaderLen]byte {
	var b [SubframeHeaderLen]byte
	copy(b[0:6], h.DA[:])
	copy(b[6:12], h.SA[:])
	binary.BigEndian.PutUint16(b[12:14], h.Length)
	return b
}

// ParseSubframeHeader decodes a header from the first 14 bytes of b.
func ParseSubframeHeader(b []byte) (SubframeHeader, bool) {
	var h SubframeHeader
	if len(b) < SubframeHeaderLen {
		return h, false
	}
	copy(h.DA[:], b[0:6])
	copy(h.SA[:], b[6:12])
	h.Length = binary.BigEndian.Uint16(b[12:14])
	return h, true
}

// MSDU is one subframe's addressing and payload.
type MSDU struct {
	DA      domain.MAC
	SA      domain.MAC
	Payload []byte
}

// BuildAMSDU concatenates subframes, padding every subframe but the last to
// a 4-byte boundary. ok is false if the result would exceed maxSize.
func BuildAMSDU(msdus []MSDU, maxSize int) ([]byte, bool) {
	var out []byte
	for i, m := range msdus {
		hdr := SubframeHeader{DA: m.DA, SA: m.SA, Length: uint16(len(m.Payload))}.Bytes()
		out = append(out, hdr[:]...)
		out = append(out, m.Payload...)
		if i < len(msdus)-1 {
			out = append(out, make([]byte, padLen(SubframeHeaderLen+len(m.Payload)))...)
		}
		if len(out) > maxSize {
			return nil, false
		}
	}
	return out, true
}

// ParseAMSDU splits an A-MSDU body into its subframes. Parsing stops at the
// first subframe whose length runs past the buffer.
func ParseAMSDU(body []byte) []MSDU {
	var out []MSDU
	off := 0
	for {
		h, ok := ParseSubframeHeader(body[off:])
		if !ok {
			break
		}
		start := off + SubframeHeaderLen
		end := start + int(h.Length)
		if end > len(body) {
			break
		}
		out = append(out, MSDU{DA: h.DA, SA: h.SA, Payload: body[start:end]})
		off = end + padLen(SubframeHeaderLen+int(h.Length))
		if off >= len(body) {
			break
		}
	}
	return out
}
