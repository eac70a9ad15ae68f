package aggregation

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxState_AddRespectsMaxLength(t *testing.T) {
	tx := NewTxState(0, ExponentHT8K, 0)
	require.Equal(t, 8191, tx.MaxLength)

	// each costs 2004 with its delimiter; four fit in 8016
	for i := 0; i < 4; i++ {
		require.True(t, tx.AddMPDU(make([]byte, 2000)), "mpdu %d", i)
	}
	// 8016 + 172 + 4 = 8192 > 8191
	assert.False(t, tx.AddMPDU(make([]byte, 172)))
	assert.True(t, tx.AddMPDU(make([]byte, 171)))
	assert.Equal(t, 5, tx.PendingCount())
	assert.Equal(t, uint16(5), tx.Seq, "rejected MPDU must not consume a sequence")
}

func TestTxState_AddRejectsOversizedMPDU(t *testing.T) {
	tx := NewTxState(0, ExponentHT64K, 0)
	assert.False(t, tx.AddMPDU(make([]byte, MaxMPDULength+1)))
}

func TestTxState_StampsSequence(t *testing.T) {
	tx := NewTxState(0, ExponentHT64K, 0)
	tx.Seq = 42
	mpdu := make([]byte, 30)
	mpdu[22] = 0x03 // fragment 3
	require.True(t, tx.AddMPDU(mpdu))
	assert.Equal(t, uint16(42<<4|3), binary.LittleEndian.Uint16(mpdu[22:24]))
}

func TestTxState_BuildAMPDU(t *testing.T) {
	tx := NewTxState(2, ExponentHT64K, 0)
	tx.Seq = 10
	require.True(t, tx.AddMPDU([]byte{1, 2, 3, 4, 5}))
	require.True(t, tx.AddMPDU([]byte{6, 7, 8, 9}))

	ampdu := tx.BuildAMPDU()
	// (4+5+3 pad) + (4+4)
	require.Len(t, ampdu, 20)
	d, _ := ParseDelimiter(ampdu)
	assert.True(t, d.IsValid())
	assert.Equal(t, uint16(5), d.MPDULength())
	assert.Equal(t, []byte{0, 0, 0}, ampdu[9:12])

	assert.True(t, tx.AwaitingBA)
	assert.Equal(t, uint16(10), tx.SSN)
	assert.Equal(t, 2, tx.PendingCount(), "pending kept until BA")
}

func TestTxState_ProcessBAKeepsUnacked(t *testing.T) {
	tx := NewTxState(0, ExponentHT64K, 0)
	frames := [][]byte{{0}, {1}, {2}, {3}, {4}}
	for _, f := range frames {
		require.True(t, tx.AddMPDU(f))
	}
	tx.BuildAMPDU()

	ba := NewBlockAck(0, tx.SSN)
	ba.AckMPDU(tx.SSN + 0)
	ba.AckMPDU(tx.SSN + 2)
	ba.AckMPDU(tx.SSN + 4)

	acked := tx.ProcessBA(ba)
	assert.Equal(t, 3, acked)
	assert.False(t, tx.AwaitingBA)
	assert.Equal(t, ba.Bitmap, tx.BABitmap)
	assert.Equal(t, [][]byte{{1}, {3}}, tx.Pending())
	assert.Equal(t, []uint16{1, 3}, tx.PendingSeqs())

	bar := tx.BlockAckRequest()
	assert.Equal(t, uint16(1), bar.StartingSeq)
}

func TestTxState_ProcessBAAcrossSequenceWrap(t *testing.T) {
	tx := NewTxState(0, ExponentHT64K, 0)
	tx.Seq = 4094
	for i := 0; i < 4; i++ {
		require.True(t, tx.AddMPDU([]byte{byte(i)}))
	}
	assert.Equal(t, []uint16{4094, 4095, 0, 1}, tx.PendingSeqs())
	tx.BuildAMPDU()

	ba := NewBlockAck(0, 4094)
	ba.Bitmap[0] = 0x0F
	assert.Equal(t, 4, tx.ProcessBA(ba))
	assert.Zero(t, tx.PendingCount())
}

func TestTxState_NextSeqWraps(t *testing.T) {
	tx := NewTxState(0, 0, 0)
	tx.Seq = SeqMask
	assert.Equal(t, uint16(SeqMask), tx.NextSeq())
	assert.Equal(t, uint16(0), tx.NextSeq())
}

func TestTxState_DropPending(t *testing.T) {
	s := NewTxState(0, 3, 0)
	require.True(t, s.AddMPDU(make([]byte, 30)))
	require.True(t, s.AddMPDU(make([]byte, 30)))
	s.BuildAMPDU()

	assert.Equal(t, 2, s.DropPending())
	assert.Equal(t, 0, s.PendingCount())
	assert.False(t, s.AwaitingBA)
	assert.Equal(t, uint16(2), s.Seq)
}
