package qos

// DefaultRetryLimit is the number of consecutive failures after which the
// frames in flight are discarded.
const DefaultRetryLimit = 7

// AcQueue is the transmit queue of one access category with its binary
// exponential backoff state.
type AcQueue struct {
	AC       AccessCategory
	Params   EdcaParams
	CW       uint16
	Backoff  uint16
	Pending  [][]byte
	InFlight [][]byte
	Retries  int

	armed bool
}

// NewAcQueue creates a queue using the station EDCA defaults.
func NewAcQueue(ac AccessCategory) *AcQueue {
	return NewAcQueueWithParams(ac, DefaultSTAParams(ac))
}

func NewAcQueueWithParams(ac AccessCategory, p EdcaParams) *AcQueue {
	return &AcQueue{AC: ac, Params: p, CW: p.CWMinValue()}
}

// SetParams applies parameters learned from the AP, keeping CW in range.
func (q *AcQueue) SetParams(p EdcaParams) {
	q.Params = p
	if q.CW < p.CWMinValue() {
		q.CW = p.CWMinValue()
	}
	if q.CW > p.CWMaxValue() {
		q.CW = p.CWMaxValue()
	}
}

// TxSuccess resets the contention window after a successful exchange.
func (q *AcQueue) TxSuccess() {
	q.CW = q.Params.CWMinValue()
	q.Backoff = 0
}

// TxFailure doubles the window (2*(cw+1)-1), saturating at CWmax.
func (q *AcQueue) TxFailure() {
	next := (uint32(q.CW)+1)*2 - 1
	if cwMax := uint32(q.Params.CWMaxValue()); next > cwMax {
		next = cwMax
	}
	if next > uint32(q.CW) {
		q.CW = uint16(next)
	}
}

// NewBackoff draws a backoff in [0, CW] from a random value.
func (q *AcQueue) NewBackoff(rand uint16) {
	q.Backoff = uint16(uint32(rand) % (uint32(q.CW) + 1))
}

// Len returns the number of pending frames.
func (q *AcQueue) Len() int {
	return len(q.Pending)
}

// Rand supplies the random draws for backoff. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Uint32() uint32
}

// QueueStats counts queue events.
type QueueStats struct {
	Enqueued           uint64
	Dropped            uint64 // queue full
	RetryDropped       uint64
	InternalCollisions uint64
}

// TxQueues holds the four access category queues of a station and runs
// EDCA contention between them.
type TxQueues struct {
	MaxPending int
	RetryLimit int

	queues [len(AccessCategories)]*AcQueue
	rng    Rand
	stats  QueueStats
}

// NewTxQueues creates the four queues with station defaults.
func NewTxQueues(rng Rand, maxPending int) *TxQueues {
	t := &TxQueues{MaxPending: maxPending, RetryLimit: DefaultRetryLimit, rng: rng}
	for _, ac := range AccessCategories {
		t.queues[ac] = NewAcQueue(ac)
	}
	return t
}

// Queue returns the queue for ac.
func (t *TxQueues) Queue(ac AccessCategory) *AcQueue {
	if int(ac) >= len(t.queues) {
		ac = BestEffort
	}
	return t.queues[ac]
}

// ApplyParams installs the parameters of a WMM parameter element.
func (t *TxQueues) ApplyParams(e WmmParamElement) {
	for _, ac := range AccessCategories {
		t.queues[ac].SetParams(e.Params(ac))
	}
}

// Enqueue appends a frame. It returns false when the queue is full.
func (t *TxQueues) Enqueue(ac AccessCategory, frame []byte) bool {
	q := t.Queue(ac)
	if t.MaxPending > 0 && len(q.Pending) >= t.MaxPending {
		t.stats.Dropped++
		return false
	}
	q.Pending = append(q.Pending, frame)
	t.stats.Enqueued++
	return true
}

// Len returns the number of pending frames across all queues.
func (t *TxQueues) Len() int {
	n := 0
	for _, q := range t.queues {
		n += len(q.Pending)
	}
	return n
}

func (t *TxQueues) arm(q *AcQueue) {
	if !q.armed {
		q.NewBackoff(uint16(t.rng.Uint32()))
		q.armed = true
	}
}

func contendSlots(q *AcQueue) int {
	return int(q.Params.AIFSN) + int(q.Backoff)
}

// Contend picks the queue that wins the medium: the non-empty queue with the
// smallest AIFSN+backoff, ties going to the higher priority category. The
// losers count down by the winner's elapsed slots. A loser that expired in
// the same slot suffers an internal collision and doubles its window.
func (t *TxQueues) Contend() (AccessCategory, bool) {
	return t.ContendFunc(nil)
}

// ContendFunc is Contend restricted to the categories eligible accepts.
// A nil eligible admits every category.
func (t *TxQueues) ContendFunc(eligible func(AccessCategory) bool) (AccessCategory, bool) {
	var winner *AcQueue
	for i := len(t.queues) - 1; i >= 0; i-- {
		q := t.queues[i]
		if len(q.Pending) == 0 && len(q.InFlight) == 0 {
			continue
		}
		if eligible != nil && !eligible(q.AC) {
			continue
		}
		t.arm(q)
		if winner == nil || contendSlots(q) < contendSlots(winner) {
			winner = q
		}
	}
	if winner == nil {
		return BestEffort, false
	}

	elapsed := winner.Backoff
	for _, q := range t.queues {
		if q == winner || !q.armed {
			continue
		}
		if contendSlots(q) == contendSlots(winner) {
			t.stats.InternalCollisions++
			q.TxFailure()
			q.armed = false
			continue
		}
		if q.Backoff > elapsed {
			q.Backoff -= elapsed
		} else {
			q.Backoff = 0
		}
	}
	return winner.AC, true
}

// Dequeue moves up to limit frames of ac into flight and returns them.
// Frames already in flight (a retry) are returned as they are.
func (t *TxQueues) Dequeue(ac AccessCategory, limit int) [][]byte {
	q := t.Queue(ac)
	if len(q.InFlight) > 0 {
		return q.InFlight
	}
	n := len(q.Pending)
	if limit > 0 && n > limit {
		n = limit
	}
	q.InFlight = append([][]byte(nil), q.Pending[:n]...)
	q.Pending = q.Pending[n:]
	return q.InFlight
}

// Take moves pending frames of ac into flight, oldest first, while accept
// returns true and at most limit frames (0 for no limit). It returns the
// number moved.
func (t *TxQueues) Take(ac AccessCategory, limit int, accept func([]byte) bool) int {
	q := t.Queue(ac)
	n := 0
	for len(q.Pending) > 0 && (limit <= 0 || n < limit) {
		if !accept(q.Pending[0]) {
			break
		}
		q.InFlight = append(q.InFlight, q.Pending[0])
		q.Pending[0] = nil
		q.Pending = q.Pending[1:]
		n++
	}
	return n
}

// Complete reports the outcome of the exchange for ac. A failure keeps the
// frames in flight for retry until RetryLimit is reached, at which point
// they are dropped and their count returned.
func (t *TxQueues) Complete(ac AccessCategory, ok bool) int {
	q := t.Queue(ac)
	q.armed = false
	if ok {
		q.TxSuccess()
		q.InFlight = nil
		q.Retries = 0
		return 0
	}

	q.TxFailure()
	q.Retries++
	if q.Retries <= t.RetryLimit {
		return 0
	}
	dropped := len(q.InFlight)
	t.stats.RetryDropped += uint64(dropped)
	q.InFlight = nil
	q.Retries = 0
	q.TxSuccess()
	return dropped
}

// Stats returns a copy of the counters.
func (t *TxQueues) Stats() QueueStats {
	return t.stats
}
