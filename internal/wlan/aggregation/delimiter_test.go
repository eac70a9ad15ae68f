package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelimiter_ValidForAllLengths(t *testing.T) {
	for l := 0; l <= MaxMPDULength; l++ {
		d := NewDelimiter(uint16(l))
		if !d.IsValid() {
			t.Fatalf("delimiter for length %d is invalid", l)
		}
		if d.MPDULength() != uint16(l) {
			t.Fatalf("length %d decoded as %d", l, d.MPDULength())
		}
	}
}

func TestDelimiter_SingleBitFlipInvalidates(t *testing.T) {
	for _, l := range []uint16{0, 1, 100, 1500, 0x0ABC, MaxMPDULength} {
		wire := NewDelimiter(l).Bytes()
		for bit := 0; bit < 32; bit++ {
			corrupt := wire
			corrupt[bit/8] ^= 1 << (bit % 8)
			d, ok := ParseDelimiter(corrupt[:])
			require.True(t, ok)
			assert.False(t, d.IsValid(), "length %d, bit %d", l, bit)
		}
	}
}

func TestDelimiter_BadSignature(t *testing.T) {
	d := NewDelimiter(64)
	d.Signature = 0x4F
	assert.False(t, d.IsValid())
}

func TestDelimiter_LengthMasked(t *testing.T) {
	d := NewDelimiter(0xF123)
	assert.Equal(t, uint16(0x0123), d.MPDULength())
	assert.True(t, d.IsValid())
}

func TestMaxAMPDULength(t *testing.T) {
	assert.Equal(t, 8191, MaxAMPDULength(ExponentHT8K))
	assert.Equal(t, 16383, MaxAMPDULength(ExponentHT16K))
	assert.Equal(t, 32767, MaxAMPDULength(ExponentHT32K))
	assert.Equal(t, 65535, MaxAMPDULength(ExponentHT64K))
	assert.Equal(t, 65535, MaxAMPDULength(ExponentHE2M))
}

func TestParseAMPDU_RoundTrip(t *testing.T) {
	tx := NewTxState(0, ExponentHT64K, 0)
	frames := [][]byte{
		{1, 2, 3},
		{4, 5, 6, 7},
		make([]byte, 33),
	}
	for _, f := range frames {
		require.True(t, tx.AddMPDU(f))
	}
	ampdu := tx.BuildAMPDU()
	assert.Zero(t, len(ampdu)%4)

	got := ParseAMPDU(ampdu)
	assert.Equal(t, frames, got)
}

func TestParseAMPDU_SkipsCorruptDelimiter(t *testing.T) {
	tx := NewTxState(0, ExponentHT64K, 0)
	require.True(t, tx.AddMPDU([]byte{0xAA, 0xBB, 0xCC, 0xDD}))
	require.True(t, tx.AddMPDU([]byte{0x11, 0x22, 0x33, 0x44}))
	ampdu := tx.BuildAMPDU()

	ampdu[2] ^= 0xFF // first delimiter CRC
	got := ParseAMPDU(ampdu)
	require.Len(t, got, 1)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, got[0])
}
