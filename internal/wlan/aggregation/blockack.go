package aggregation

import (
	"encoding/binary"
	"math/bits"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
)

// BitmapLen is the size of a compressed Block-Ack bitmap (64 MPDUs).
const BitmapLen = 8

// WindowSize is the number of MPDUs one compressed Block-Ack can cover.
const WindowSize = BitmapLen * 8

// Frame sizes
const (
	BlockAckReqFrameLen = 20
	BlockAckFrameLen    = 28
)

// BlockAckControl is the BA/BAR control field.
type BlockAckControl struct {
	Policy     bool // true = delayed
	MultiTID   bool
	Compressed bool
	GCR        bool
	TID        uint8
}

// Uint16 encodes the control field.
func (c BlockAckControl) Uint16() uint16 {
	var v uint16
	if c.Policy {
		v |= 1 << 0
	}
	if c.MultiTID {
		v |= 1 << 1
	}
	if c.Compressed {
		v |= 1 << 2
	}
	if c.GCR {
		v |= 1 << 3
	}
	v |= (uint16(c.TID) & 0x0F) << 12
	return v
}

// ParseBlockAckControl decodes the control field.
func ParseBlockAckControl(v uint16) BlockAckControl {
	return BlockAckControl{
		Policy:     v&(1<<0) != 0,
		MultiTID:   v&(1<<1) != 0,
		Compressed: v&(1<<2) != 0,
		GCR:        v&(1<<3) != 0,
		TID:        uint8(v>>12) & 0x0F,
	}
}

// BlockAckRequest asks the recipient to acknowledge from StartingSeq on.
type BlockAckRequest struct {
	Control     BlockAckControl
	StartingSeq uint16
}

// NewBlockAckRequest returns a compressed BAR for tid.
func NewBlockAckRequest(tid uint8, ssn uint16) BlockAckRequest {
	return BlockAckRequest{
		Control:     BlockAckControl{Compressed: true, TID: tid},
		StartingSeq: ssn,
	}
}

// Frame builds the 20-byte control frame (type Control, subtype 8).
func (r BlockAckRequest) Frame(ra, ta domain.MAC) [BlockAckReqFrameLen]byte {
	var f [BlockAckReqFrameLen]byte
	f[0] = 0x84
	copy(f[4:10], ra[:])
	copy(f[10:16], ta[:])
	binary.LittleEndian.PutUint16(f[16:18], r.Control.Uint16())
	binary.LittleEndian.PutUint16(f[18:20], r.StartingSeq)
	return f
}

// ParseBlockAckRequest decodes a BAR control frame.
func ParseBlockAckRequest(f []byte) (r BlockAckRequest, ra, ta domain.MAC, ok bool) {
	if len(f) < BlockAckReqFrameLen || f[0] != 0x84 {
		return r, ra, ta, false
	}
	copy(ra[:], f[4:10])
	copy(ta[:], f[10:16])
	r.Control = ParseBlockAckControl(binary.LittleEndian.Uint16(f[16:18]))
	r.StartingSeq = binary.LittleEndian.Uint16(f[18:20])
	return r, ra, ta, true
}

// BlockAck is a compressed Block-Ack. Bit i of Bitmap acknowledges
// sequence StartingSeq+i.
type BlockAck struct {
	Control     BlockAckControl
	StartingSeq uint16
	Bitmap      [BitmapLen]byte
}

// NewBlockAck returns an empty compressed Block-Ack for tid.
func NewBlockAck(tid uint8, ssn uint16) BlockAck {
	return BlockAck{
		Control:     BlockAckControl{Compressed: true, TID: tid},
		StartingSeq: ssn,
	}
}

// offset returns the window offset of seq, or false outside the window.
func (b BlockAck) offset(seq uint16) (int, bool) {
	off := int(seq - b.StartingSeq)
	return off, off < WindowSize
}

// AckMPDU marks seq as received. Sequences outside the window are ignored.
func (b *BlockAck) AckMPDU(seq uint16) {
	if off, ok := b.offset(seq); ok {
		b.Bitmap[off/8] |= 1 << (off % 8)
	}
}

// IsAcked reports whether seq is marked in the bitmap.
func (b BlockAck) IsAcked(seq uint16) bool {
	off, ok := b.offset(seq)
	return ok && b.AckedAt(off)
}

// AckedAt reports whether window offset off is marked.
func (b BlockAck) AckedAt(off int) bool {
	if off < 0 || off >= WindowSize {
		return false
	}
	return b.Bitmap[off/8]&(1<<(off%8)) != 0
}

// AckCount returns the number of acknowledged MPDUs.
func (b BlockAck) AckCount() int {
	n := 0
	for _, v := range b.Bitmap {
		n += bits.OnesCount8(v)
	}
	return n
}

// Frame builds the 28-byte control frame (type Control, subtype 9).
func (b BlockAck) Frame(ra, ta domain.MAC) [BlockAckFrameLen]byte {
	var f [BlockAckFrameLen]byte
	f[0] = 0x94
	copy(f[4:10], ra[:])
	copy(f[10:16], ta[:])
	binary.LittleEndian.PutUint16(f[16:18], b.Control.Uint16())
	binary.LittleEndian.PutUint16(f[18:20], b.StartingSeq)
	copy(f[20:28], b.Bitmap[:])
	return f
}

// ParseBlockAck decodes a compressed Block-Ack control frame.
func ParseBlockAck(f []byte) (b BlockAck, ra, ta domain.MAC, ok bool) {
	if len(f) < BlockAckFrameLen || f[0] != 0x94 {
		return b, ra, ta, false
	}
	copy(ra[:], f[4:10])
	copy(ta[:], f[10:16])
	b.Control = ParseBlockAckControl(binary.LittleEndian.Uint16(f[16:18]))
	b.StartingSeq = binary.LittleEndian.Uint16(f[18:20])
	copy(b.Bitmap[:], f[20:28])
	return b, ra, ta, true
}
