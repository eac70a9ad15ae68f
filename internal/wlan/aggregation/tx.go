package aggregation

import "encoding/binary"

// SeqMask bounds 802.11 sequence numbers to 12 bits.
const SeqMask = 0x0FFF

type txMPDU struct {
	seq  uint16
	data []byte
}

// TxState is the originator side of one Block-Ack agreement (one TID).
//
// Lifecycle: Idle -> Pending (AddMPDU) -> AwaitingBA (BuildAMPDU) ->
// Idle or Retransmit (ProcessBA keeps the unacknowledged MPDUs).
type TxState struct {
	TID         uint8
	SSN         uint16 // first sequence covered by the last A-MPDU
	Seq         uint16 // next sequence number to assign
	MaxLength   int
	MPDUSpacing uint8 // minimum start spacing, us
	AwaitingBA  bool
	BABitmap    [BitmapLen]byte

	pending []txMPDU
}

// NewTxState creates TX aggregation state for a negotiated exponent.
func NewTxState(tid uint8, maxExponent uint8, mpduSpacing uint8) *TxState {
	return &TxState{
		TID:         tid,
		MaxLength:   MaxAMPDULength(maxExponent),
		MPDUSpacing: mpduSpacing,
	}
}

// aggregateLen is the pending payload plus one delimiter per MPDU.
func (s *TxState) aggregateLen() int {
	total := 0
	for _, m := range s.pending {
		total += len(m.data) + DelimiterLen
	}
	return total
}

// AddMPDU queues an MPDU for the next A-MPDU and assigns it the next
// sequence number. MPDUs carrying a MAC header get the number stamped into
// Sequence Control. Returns false, leaving state untouched, when the MPDU
// would push the aggregate past MaxLength or the delimiter length field.
func (s *TxState) AddMPDU(mpdu []byte) bool {
	if len(mpdu) > MaxMPDULength {
		return false
	}
	if s.aggregateLen()+len(mpdu)+DelimiterLen > s.MaxLength {
		return false
	}
	seq := s.NextSeq()
	if len(mpdu) >= 24 {
		frag := binary.LittleEndian.Uint16(mpdu[22:24]) & 0x0F
		binary.LittleEndian.PutUint16(mpdu[22:24], seq<<4|frag)
	}
	s.pending = append(s.pending, txMPDU{seq: seq, data: mpdu})
	return true
}

// Pending returns the queued MPDUs in FIFO order.
func (s *TxState) Pending() [][]byte {
	out := make([][]byte, len(s.pending))
	for i, m := range s.pending {
		out[i] = m.data
	}
	return out
}

// PendingSeqs returns the sequence numbers of the queued MPDUs.
func (s *TxState) PendingSeqs() []uint16 {
	out := make([]uint16, len(s.pending))
	for i, m := range s.pending {
		out[i] = m.seq
	}
	return out
}

// PendingCount returns the number of queued MPDUs.
func (s *TxState) PendingCount() int {
	return len(s.pending)
}

// BuildAMPDU serializes every pending MPDU as delimiter, MPDU and padding
// to a 4-byte boundary. Pending is kept until ProcessBA prunes it.
func (s *TxState) BuildAMPDU() []byte {
	out := make([]byte, 0, s.aggregateLen()+3*len(s.pending))
	for _, m := range s.pending {
		d := NewDelimiter(uint16(len(m.data))).Bytes()
		out = append(out, d[:]...)
		out = append(out, m.data...)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
	}

	if len(s.pending) > 0 {
		s.SSN = s.pending[0].seq
	} else {
		s.SSN = s.Seq
	}
	s.AwaitingBA = true
	return out
}

// ProcessBA drops every MPDU the Block-Ack acknowledges and keeps the rest,
// in their original order, for retransmission. It returns the number acked.
func (s *TxState) ProcessBA(ba BlockAck) int {
	s.BABitmap = ba.Bitmap
	s.AwaitingBA = false

	kept := s.pending[:0]
	acked := 0
	for _, m := range s.pending {
		// 12-bit distance so windows spanning the 4095->0 wrap still match.
		if ba.AckedAt(int((m.seq - ba.StartingSeq) & SeqMask)) {
			acked++
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(s.pending); i++ {
		s.pending[i] = txMPDU{}
	}
	s.pending = kept
	return acked
}

// DropPending discards every queued MPDU, keeping the sequence counter, and
// returns how many were dropped.
func (s *TxState) DropPending() int {
	n := len(s.pending)
	clear(s.pending)
	s.pending = s.pending[:0]
	s.AwaitingBA = false
	return n
}

// BlockAckRequest returns a BAR starting at the oldest unacknowledged MPDU.
func (s *TxState) BlockAckRequest() BlockAckRequest {
	ssn := s.Seq
	if len(s.pending) > 0 {
		ssn = s.pending[0].seq
	}
	return NewBlockAckRequest(s.TID, ssn)
}

// NextSeq returns the next 12-bit sequence number and advances the counter.
func (s *TxState) NextSeq() uint16 {
	seq := s.Seq
	s.Seq = (s.Seq + 1) & SeqMask
	return seq
}
