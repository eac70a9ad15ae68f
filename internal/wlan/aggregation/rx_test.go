package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mpdu(seq uint16) []byte { return []byte{byte(seq >> 8), byte(seq)} }

func TestRxState_InOrderDelivery(t *testing.T) {
	rx := NewRxState(0)

	assert.Empty(t, rx.RxMPDU(3, mpdu(3), 1))
	assert.Empty(t, rx.RxMPDU(1, mpdu(1), 2))
	assert.Empty(t, rx.RxMPDU(2, mpdu(2), 3))
	assert.Equal(t, 3, rx.BufferedCount())

	got := rx.RxMPDU(0, mpdu(0), 4)
	assert.Equal(t, [][]byte{mpdu(0), mpdu(1), mpdu(2), mpdu(3)}, got)

	got = rx.RxMPDU(4, mpdu(4), 5)
	assert.Equal(t, [][]byte{mpdu(4)}, got)
	assert.Equal(t, uint16(5), rx.ExpectedSeq)
	assert.Zero(t, rx.BufferedCount())
}

func TestRxState_DropsOutOfWindow(t *testing.T) {
	rx := NewRxState(0)
	rx.ExpectedSeq = 100

	assert.Empty(t, rx.RxMPDU(164, mpdu(164), 1))
	assert.Empty(t, rx.RxMPDU(99, mpdu(99), 2))
	assert.Zero(t, rx.BufferedCount())
	assert.Equal(t, uint64(2), rx.Stats().OutOfWindow)

	assert.Empty(t, rx.RxMPDU(163, mpdu(163), 3))
	assert.Equal(t, 1, rx.BufferedCount())
}

func TestRxState_WrapsSequenceSpace(t *testing.T) {
	rx := NewRxState(0)
	rx.ExpectedSeq = 4094

	assert.Empty(t, rx.RxMPDU(0, mpdu(0), 1))
	assert.Empty(t, rx.RxMPDU(4095, mpdu(4095), 2))
	got := rx.RxMPDU(4094, mpdu(4094), 3)
	assert.Equal(t, [][]byte{mpdu(4094), mpdu(4095), mpdu(0)}, got)
	assert.Equal(t, uint16(1), rx.ExpectedSeq)
}

func TestRxState_Duplicate(t *testing.T) {
	rx := NewRxState(0)
	rx.RxMPDU(2, mpdu(2), 1)
	rx.RxMPDU(2, mpdu(2), 2)
	assert.Equal(t, 1, rx.BufferedCount())
	assert.Equal(t, uint64(1), rx.Stats().Duplicates)
}

func TestRxState_BuildBA(t *testing.T) {
	rx := NewRxState(7)
	rx.ExpectedSeq = 10
	rx.RxMPDU(11, mpdu(11), 1)
	rx.RxMPDU(13, mpdu(13), 1)

	ba := rx.BuildBA()
	assert.Equal(t, uint8(7), ba.Control.TID)
	assert.Equal(t, uint16(10), ba.StartingSeq)
	assert.False(t, ba.IsAcked(10))
	assert.True(t, ba.IsAcked(11))
	assert.False(t, ba.IsAcked(12))
	assert.True(t, ba.IsAcked(13))
	assert.Equal(t, 2, ba.AckCount())
}

func TestRxState_HandleBAR(t *testing.T) {
	rx := NewRxState(0)
	rx.RxMPDU(2, mpdu(2), 1)
	rx.RxMPDU(4, mpdu(4), 1)
	rx.RxMPDU(5, mpdu(5), 1)

	// Peer gave up on 0..2; 2 is delivered, 3 is still a hole.
	got := rx.HandleBAR(3)
	assert.Equal(t, [][]byte{mpdu(2)}, got)
	assert.Equal(t, uint16(3), rx.ExpectedSeq)

	got = rx.HandleBAR(4)
	assert.Equal(t, [][]byte{mpdu(4), mpdu(5)}, got)
	assert.Equal(t, uint16(6), rx.ExpectedSeq)

	assert.Nil(t, rx.HandleBAR(6), "BAR at window start")
	assert.Nil(t, rx.HandleBAR(1), "stale BAR")
}

func TestRxState_HandleBARBeyondWindow(t *testing.T) {
	rx := NewRxState(0)
	rx.RxMPDU(10, mpdu(10), 1)
	got := rx.HandleBAR(500)
	assert.Equal(t, [][]byte{mpdu(10)}, got)
	assert.Equal(t, uint16(500), rx.ExpectedSeq)

	got = rx.RxMPDU(500, mpdu(500), 2)
	require.Len(t, got, 1)
}

func TestRxState_FlushExpired(t *testing.T) {
	rx := NewRxState(0)
	rx.RxMPDU(2, mpdu(2), 1000)
	rx.RxMPDU(3, mpdu(3), 1010)

	assert.Nil(t, rx.FlushExpired(1050), "timeout not reached")
	got := rx.FlushExpired(1110)
	assert.Equal(t, [][]byte{mpdu(2), mpdu(3)}, got)
	assert.Equal(t, uint16(4), rx.ExpectedSeq)
	assert.Equal(t, uint64(2), rx.Stats().TimedOut)

	assert.Nil(t, rx.FlushExpired(5000), "nothing buffered")
}

func TestRxState_FlushExpiredRestartsTimerForNextHole(t *testing.T) {
	rx := NewRxState(0)
	rx.RxMPDU(1, mpdu(1), 1000)
	rx.RxMPDU(3, mpdu(3), 1000)

	got := rx.FlushExpired(1100)
	assert.Equal(t, [][]byte{mpdu(1)}, got)
	assert.Equal(t, uint16(2), rx.ExpectedSeq)

	assert.Nil(t, rx.FlushExpired(1150), "second hole waits a full timeout")
	assert.Equal(t, [][]byte{mpdu(3)}, rx.FlushExpired(1200))
	assert.Equal(t, uint64(2), rx.Stats().TimedOut)
}
