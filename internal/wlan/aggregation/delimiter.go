// Package aggregation implements 802.11n/ac A-MPDU and A-MSDU framing,
// Block-Ack bookkeeping and the per-TID TX/RX aggregation state.
package aggregation

import (
	"encoding/binary"
)

// DelimiterSignature is the fixed last byte of every A-MPDU delimiter.
const DelimiterSignature = 0x4E

// DelimiterLen is the size of an A-MPDU delimiter on the wire.
const DelimiterLen = 4

// MaxMPDULength is the largest length the 12-bit delimiter field can carry.
const MaxMPDULength = 0x0FFF

// Maximum A-MPDU length exponents
const (
	ExponentHT8K   uint8 = 0
	ExponentHT16K  uint8 = 1
	ExponentHT32K  uint8 = 2
	ExponentHT64K  uint8 = 3
	ExponentVHT256 uint8 = 4
	ExponentVHT512 uint8 = 5
	ExponentVHT1M  uint8 = 6
	ExponentHE2M   uint8 = 7
)

// MaxAMPDULength returns the byte budget for an exponent. Exponents above
// the HT range are clamped to 64 KiB.
func MaxAMPDULength(exponent uint8) int {
	if exponent > ExponentHT64K {
		exponent = ExponentHT64K
	}
	return 1<<(13+exponent) - 1
}

// Delimiter precedes each MPDU inside an A-MPDU.
type Delimiter struct {
	LengthInfo [2]byte // reserved(4) | length(12), little endian
	CRC        uint8
	Signature  uint8
}

// NewDelimiter builds a delimiter for an MPDU of the given length.
func NewDelimiter(mpduLength uint16) Delimiter {
	var d Delimiter
	binary.LittleEndian.PutUint16(d.LengthInfo[:], mpduLength&MaxMPDULength)
	d.CRC = crc8(d.LengthInfo[:])
	d.Signature = DelimiterSignature
	return d
}

// ParseDelimiter reads a delimiter from the first four bytes of b.
func ParseDelimiter(b []byte) (Delimiter, bool) {
	if len(b) < DelimiterLen {
		return Delimiter{}, false
	}
	return Delimiter{
		LengthInfo: [2]byte{b[0], b[1]},
		CRC:        b[2],
		Signature:  b[3],
	}, true
}

// MPDULength returns the 12-bit length field.
func (d Delimiter) MPDULength() uint16 {
	return binary.LittleEndian.Uint16(d.LengthInfo[:]) & MaxMPDULength
}

// IsValid checks both the signature and the CRC.
func (d Delimiter) IsValid() bool {
	return d.Signature == DelimiterSignature && d.CRC == crc8(d.LengthInfo[:])
}

// Bytes returns the wire encoding.
func (d Delimiter) Bytes() [DelimiterLen]byte {
	return [DelimiterLen]byte{d.LengthInfo[0], d.LengthInfo[1], d.CRC, d.Signature}
}

// crc8 is CRC-8 with polynomial x^8+x^2+x+1 (0x07), zero initial value.
func crc8(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// padLen returns the zero padding needed to reach a 4-byte boundary.
func padLen(n int) int {
	return (4 - n%4) % 4
}

// ParseAMPDU splits a received A-MPDU into its MPDUs. A delimiter that fails
// validation is skipped one 4-byte word at a time until a valid one is found,
// as a receiver does to resynchronise after a corrupted subframe. Zero-length
// delimiters (padding) are skipped.
func ParseAMPDU(ampdu []byte) [][]byte {
	var mpdus [][]byte
	off := 0
	for off+DelimiterLen <= len(ampdu) {
		d, _ := ParseDelimiter(ampdu[off:])
		if !d.IsValid() {
			off += DelimiterLen
			continue
		}
		n := int(d.MPDULength())
		off += DelimiterLen
		if n == 0 {
			continue
		}
		if off+n > len(ampdu) {
			break
		}
		mpdus = append(mpdus, ampdu[off:off+n])
		off += n + padLen(n)
	}
	return mpdus
}
