// Package ieee80211 parses and builds 802.11 MAC headers and converts
// between 802.11 data frames and Ethernet frames.
package ieee80211

import (
	"encoding/binary"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
)

// FrameType is the 2-bit type field of Frame Control.
type FrameType uint8

const (
	TypeManagement FrameType = 0
	TypeControl    FrameType = 1
	TypeData       FrameType = 2
	TypeExtension  FrameType = 3
)

func (t FrameType) String() string {
	switch t {
	case TypeManagement:
		return "Management"
	case TypeControl:
		return "Control"
	case TypeData:
		return "Data"
	}
	return "Extension"
}

// Management subtypes
const (
	SubtypeAssocReq    uint8 = 0
	SubtypeAssocResp   uint8 = 1
	SubtypeReassocReq  uint8 = 2
	SubtypeReassocResp uint8 = 3
	SubtypeProbeReq    uint8 = 4
	SubtypeProbeResp   uint8 = 5
	SubtypeBeacon      uint8 = 8
	SubtypeATIM        uint8 = 9
	SubtypeDisassoc    uint8 = 10
	SubtypeAuth        uint8 = 11
	SubtypeDeauth      uint8 = 12
	SubtypeAction      uint8 = 13
)

// Control subtypes
const (
	SubtypeBlockAckReq uint8 = 8
	SubtypeBlockAck    uint8 = 9
	SubtypePSPoll      uint8 = 10
)

// Data subtypes
const (
	SubtypeData               uint8 = 0
	SubtypeDataCFAck          uint8 = 1
	SubtypeDataCFPoll         uint8 = 2
	SubtypeDataCFAckCFPoll    uint8 = 3
	SubtypeNull               uint8 = 4
	SubtypeCFAck              uint8 = 5
	SubtypeCFPoll             uint8 = 6
	SubtypeCFAckCFPoll        uint8 = 7
	SubtypeQoSData            uint8 = 8
	SubtypeQoSDataCFAck       uint8 = 9
	SubtypeQoSDataCFPoll      uint8 = 10
	SubtypeQoSDataCFAckCFPoll uint8 = 11
	SubtypeQoSNull            uint8 = 12
)

// Header lengths
const (
	BaseHeaderLen = 24
	Addr4Len      = 6
	QoSControlLen = 2
	MaxHeaderLen  = BaseHeaderLen + Addr4Len + QoSControlLen
)

// FrameControl is the decoded 16-bit Frame Control field.
type FrameControl struct {
	ProtocolVersion uint8
	Type            FrameType
	Subtype         uint8
	ToDS            bool
	FromDS          bool
	MoreFragments   bool
	Retry           bool
	PowerManagement bool
	MoreData        bool
	Protected       bool
	Order           bool
}

// ParseFrameControl decodes the little-endian Frame Control value.
func ParseFrameControl(fc uint16) FrameControl {
	return FrameControl{
		ProtocolVersion: uint8(fc & 0x03),
		Type:            FrameType((fc >> 2) & 0x03),
		Subtype:         uint8((fc >> 4) & 0x0F),
		ToDS:            fc&0x0100 != 0,
		FromDS:          fc&0x0200 != 0,
		MoreFragments:   fc&0x0400 != 0,
		Retry:           fc&0x0800 != 0,
		PowerManagement: fc&0x1000 != 0,
		MoreData:        fc&0x2000 != 0,
		Protected:       fc&0x4000 != 0,
		Order:           fc&0x8000 != 0,
	}
}

// Uint16 encodes the field back to its wire value.
func (fc FrameControl) Uint16() uint16 {
	v := uint16(fc.ProtocolVersion) & 0x03
	v |= (uint16(fc.Type) & 0x03) << 2
	v |= (uint16(fc.Subtype) & 0x0F) << 4
	if fc.ToDS {
		v |= 0x0100
	}
	if fc.FromDS {
		v |= 0x0200
	}
	if fc.MoreFragments {
		v |= 0x0400
	}
	if fc.Retry {
		v |= 0x0800
	}
	if fc.PowerManagement {
		v |= 0x1000
	}
	if fc.MoreData {
		v |= 0x2000
	}
	if fc.Protected {
		v |= 0x4000
	}
	if fc.Order {
		v |= 0x8000
	}
	return v
}

// IsQoSData reports a data frame whose subtype has bit 3 set.
func (fc FrameControl) IsQoSData() bool {
	return fc.Type == TypeData && fc.Subtype&0x08 != 0
}

// HasAddress4 reports the WDS case where both DS bits are set.
func (fc FrameControl) HasAddress4() bool {
	return fc.ToDS && fc.FromDS
}

// MacHeader is an 802.11 MAC header. Address4 is meaningful only when
// ToDS and FromDS are both set; QoSControl only for QoS data subtypes.
type MacHeader struct {
	FrameControl    FrameControl
	Duration        uint16
	Address1        domain.MAC
	Address2        domain.MAC
	Address3        domain.MAC
	SequenceControl uint16
	Address4        *domain.MAC
	QoSControl      *uint16
}

// PeekFrameControl decodes the Frame Control field alone. Control frames
// are shorter than a full header, so callers dispatch on it first.
func PeekFrameControl(data []byte) (FrameControl, bool) {
	if len(data) < 2 {
		return FrameControl{}, false
	}
	return ParseFrameControl(binary.LittleEndian.Uint16(data[0:2])), true
}

// Parse decodes a MAC header from the start of data and returns the header
// length. ok is false when data is shorter than the header it announces.
func Parse(data []byte) (h MacHeader, n int, ok bool) {
	if len(data) < BaseHeaderLen {
		return h, 0, false
	}

	h.FrameControl = ParseFrameControl(binary.LittleEndian.Uint16(data[0:2]))
	h.Duration = binary.LittleEndian.Uint16(data[2:4])
	copy(h.Address1[:], data[4:10])
	copy(h.Address2[:], data[10:16])
	copy(h.Address3[:], data[16:22])
	h.SequenceControl = binary.LittleEndian.Uint16(data[22:24])

	n = BaseHeaderLen
	if h.FrameControl.HasAddress4() {
		if len(data) < n+Addr4Len {
			return MacHeader{}, 0, false
		}
		var a4 domain.MAC
		copy(a4[:], data[n:n+Addr4Len])
		h.Address4 = &a4
		n += Addr4Len
	}

	if h.FrameControl.IsQoSData() {
		if len(data) < n+QoSControlLen {
			return MacHeader{}, 0, false
		}
		qos := binary.LittleEndian.Uint16(data[n : n+QoSControlLen])
		h.QoSControl = &qos
		n += QoSControlLen
	}

	return h, n, true
}

// Len returns the serialized header length.
func (h MacHeader) Len() int {
	n := BaseHeaderLen
	if h.Address4 != nil {
		n += Addr4Len
	}
	if h.QoSControl != nil {
		n += QoSControlLen
	}
	return n
}

// Bytes serializes the header. Optional fields are written when set.
func (h MacHeader) Bytes() []byte {
	b := make([]byte, BaseHeaderLen, MaxHeaderLen)
	binary.LittleEndian.PutUint16(b[0:2], h.FrameControl.Uint16())
	binary.LittleEndian.PutUint16(b[2:4], h.Duration)
	copy(b[4:10], h.Address1[:])
	copy(b[10:16], h.Address2[:])
	copy(b[16:22], h.Address3[:])
	binary.LittleEndian.PutUint16(b[22:24], h.SequenceControl)

	if h.Address4 != nil {
		b = append(b, h.Address4[:]...)
	}
	if h.QoSControl != nil {
		b = binary.LittleEndian.AppendUint16(b, *h.QoSControl)
	}
	return b
}

// SequenceNumber returns the 12-bit sequence number.
func (h MacHeader) SequenceNumber() uint16 {
	return h.SequenceControl >> 4
}

// FragmentNumber returns the 4-bit fragment number.
func (h MacHeader) FragmentNumber() uint8 {
	return uint8(h.SequenceControl & 0x0F)
}

// SetSequence packs a sequence and fragment number into Sequence Control.
func (h *MacHeader) SetSequence(seq uint16, frag uint8) {
	h.SequenceControl = (seq&0x0FFF)<<4 | uint16(frag&0x0F)
}

// TID returns the traffic identifier from the QoS Control field, or 0.
func (h MacHeader) TID() uint8 {
	if h.QoSControl == nil {
		return 0
	}
	return uint8(*h.QoSControl & 0x0F)
}

// Dot11Type maps the type/subtype pair onto gopacket's enumeration.
func (h MacHeader) Dot11Type() layers.Dot11Type {
	return Dot11Type(h.FrameControl.Type, h.FrameControl.Subtype)
}

// Dot11Type combines a frame type and subtype the way gopacket encodes them.
func Dot11Type(t FrameType, subtype uint8) layers.Dot11Type {
	return layers.Dot11Type(subtype&0x0F)<<2 | layers.Dot11Type(t&0x03)
}
