package aggregation

// DefaultReorderTimeoutMs is how long a hole may stall delivery.
const DefaultReorderTimeoutMs = 100

type rxSlot struct {
	data []byte
	full bool
}

// RxStats counts reorder buffer events.
type RxStats struct {
	Delivered   uint64
	Buffered    uint64
	OutOfWindow uint64
	Duplicates  uint64
	TimedOut    uint64 // holes skipped by FlushExpired
	BARSkipped  uint64 // holes skipped by HandleBAR
}

// RxState is the recipient side reorder buffer for one TID: a fixed
// 64-slot ring indexed relative to ExpectedSeq. Delivery is strictly in
// order. Only sequences in [ExpectedSeq, ExpectedSeq+64) are buffered.
type RxState struct {
	TID         uint8
	ExpectedSeq uint16
	TimeoutMs   uint64
	LastRx      uint64

	slots [WindowSize]rxSlot
	head  int
	count int
	stats RxStats
}

// NewRxState creates an empty reorder buffer expecting sequence 0.
func NewRxState(tid uint8) *RxState {
	return &RxState{
		TID:       tid,
		TimeoutMs: DefaultReorderTimeoutMs,
	}
}

// seqOffset is the 12-bit distance from ExpectedSeq to seq.
func (s *RxState) seqOffset(seq uint16) int {
	return int((seq - s.ExpectedSeq) & SeqMask)
}

// RxMPDU buffers an MPDU and returns the frames that became deliverable, in
// sequence order. MPDUs outside the window are dropped and counted; a caller
// that wants to resynchronise answers the peer's BAR with HandleBAR.
func (s *RxState) RxMPDU(seq uint16, mpdu []byte, timestamp uint64) [][]byte {
	s.LastRx = timestamp

	off := s.seqOffset(seq)
	if off >= WindowSize {
		s.stats.OutOfWindow++
		return nil
	}

	slot := &s.slots[(s.head+off)%WindowSize]
	if slot.full {
		s.stats.Duplicates++
	} else {
		s.count++
		s.stats.Buffered++
	}
	slot.data, slot.full = mpdu, true

	return s.drain(nil)
}

// drain releases consecutive occupied slots starting at head.
func (s *RxState) drain(out [][]byte) [][]byte {
	for s.slots[s.head].full {
		out = append(out, s.slots[s.head].data)
		s.slots[s.head] = rxSlot{}
		s.count--
		s.stats.Delivered++
		s.advance()
	}
	return out
}

func (s *RxState) advance() {
	s.head = (s.head + 1) % WindowSize
	s.ExpectedSeq = (s.ExpectedSeq + 1) & SeqMask
}

// HandleBAR moves the window start forward to ssn, releasing in order any
// frames buffered before it, then drains what follows. A BAR for a sequence
// at or behind ExpectedSeq is ignored.
func (s *RxState) HandleBAR(ssn uint16) [][]byte {
	off := s.seqOffset(ssn)
	if off == 0 || off >= 1<<11 {
		return nil
	}

	var out [][]byte
	steps := off
	if steps > WindowSize {
		steps = WindowSize
	}
	for i := 0; i < steps; i++ {
		if s.slots[s.head].full {
			out = append(out, s.slots[s.head].data)
			s.slots[s.head] = rxSlot{}
			s.count--
			s.stats.Delivered++
		} else {
			s.stats.BARSkipped++
		}
		s.advance()
	}
	s.ExpectedSeq = ssn & SeqMask
	return s.drain(out)
}

// FlushExpired gives up on the hole at the head of the window once no MPDU
// has arrived for TimeoutMs, delivering the next buffered run. A hole left
// behind that run gets its own full timeout.
func (s *RxState) FlushExpired(now uint64) [][]byte {
	if s.count == 0 || now < s.LastRx+s.TimeoutMs {
		return nil
	}
	for !s.slots[s.head].full {
		s.stats.TimedOut++
		s.advance()
	}
	s.LastRx = now
	return s.drain(nil)
}

// BuildBA reports which window slots hold buffered, undelivered frames,
// starting at ExpectedSeq.
func (s *RxState) BuildBA() BlockAck {
	ba := NewBlockAck(s.TID, s.ExpectedSeq)
	for i := 0; i < WindowSize; i++ {
		if s.slots[(s.head+i)%WindowSize].full {
			ba.Bitmap[i/8] |= 1 << (i % 8)
		}
	}
	return ba
}

// BufferedCount returns the number of frames waiting for a hole to fill.
func (s *RxState) BufferedCount() int {
	return s.count
}

// Stats returns a copy of the counters.
func (s *RxState) Stats() RxStats {
	return s.stats
}
