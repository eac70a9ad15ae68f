package ratecontrol

const (
	// DefaultUpdateIntervalMs is how often the rate ranking is recomputed.
	DefaultUpdateIntervalMs = 100
	// SampleEvery makes every Nth TxRate call a sampling attempt.
	SampleEvery = 10
	// RetryChainLen is the number of steps in a multi-rate retry chain.
	RetryChainLen = 4

	probScale      = 1000
	defaultRetries = 2
	lowestRetries  = 4
	minHTTxTimeUs  = 20
)

// RateStats tracks delivery statistics for one rate. Probability and
// Throughput use a 0-1000 scale.
type RateStats struct {
	Attempts      uint32
	Success       uint32
	LastUpdate    uint64
	Throughput    uint32
	Probability   uint32 // EWMA: 3/4 old, 1/4 new
	PerfectTxTime uint32 // us, ideal airtime for a reference frame
}

// SuccessRatio is the lifetime success ratio on the 0-1000 scale.
func (s RateStats) SuccessRatio() uint32 {
	if s.Attempts == 0 {
		return 0
	}
	return uint32(uint64(s.Success) * probScale / uint64(s.Attempts))
}

// Update records one transmission outcome.
func (s *RateStats) Update(success bool, timestamp uint64) {
	s.Attempts++
	sample := uint32(0)
	if success {
		s.Success++
		sample = probScale
	}
	s.Probability = (s.Probability*3 + sample) / 4

	if s.PerfectTxTime > 0 {
		s.Throughput = s.Probability * 1000 / s.PerfectTxTime
	}
	s.LastUpdate = timestamp
}

// RateEntry is one row of the rate table.
type RateEntry struct {
	Rate       Rate
	Stats      RateStats
	RetryCount uint8
	Enabled    bool
}

func NewRateEntry(rate Rate, txTimeUs uint32) RateEntry {
	return RateEntry{
		Rate:       rate,
		Stats:      RateStats{PerfectTxTime: txTimeUs},
		RetryCount: defaultRetries,
		Enabled:    true,
	}
}

// RetryStep is one step of a retry chain: a rate table index and the
// number of attempts at that rate.
type RetryStep struct {
	Index int
	Count uint8
}

// Stats summarises the controller state.
type Stats struct {
	TotalPackets    uint64
	Updates         uint64
	BestRateIdx     int
	BestThroughput  uint32
	BestProbability uint32
}

// RateControl is the Minstrel-style selector for one peer. It is not safe
// for concurrent use; the owning radio serialises access.
type RateControl struct {
	UpdateIntervalMs uint64

	rates        []RateEntry
	bestTP       int
	secondTP     int
	bestProb     int
	lowest       int
	sampleIdx    int
	sampleCount  uint32
	totalPackets uint64
	updates      uint64
	lastUpdate   uint64
}

var defaultLegacy = [...]struct {
	rate   LegacyRate
	txTime uint32
}{
	{Rate6M, 200},
	{Rate9M, 150},
	{Rate12M, 100},
	{Rate18M, 80},
	{Rate24M, 60},
	{Rate36M, 45},
	{Rate48M, 35},
	{Rate54M, 30},
}

// New returns a controller over the eight OFDM rates followed by HT MCS 0-7.
func New() *RateControl {
	rc := &RateControl{UpdateIntervalMs: DefaultUpdateIntervalMs}
	for _, l := range defaultLegacy {
		rc.rates = append(rc.rates, NewRateEntry(LegacyRateOf(l.rate), l.txTime))
	}
	for i := 0; i < 8; i++ {
		rc.rates = append(rc.rates, NewRateEntry(HTRate(McsIndex(i)), uint32(100-i*10)))
	}
	rc.lowest = rc.computeLowest()
	rc.rank()
	return rc
}

// AddHTRates appends HT MCS 0..maxMCS with a coarser airtime model.
func (rc *RateControl) AddHTRates(maxMCS uint8) {
	for i := 0; i <= int(maxMCS); i++ {
		tx := 100 - i*8
		if tx < minHTTxTimeUs {
			tx = minHTTxTimeUs
		}
		rc.rates = append(rc.rates, NewRateEntry(HTRate(McsIndex(i)), uint32(tx)))
	}
	rc.lowest = rc.computeLowest()
	rc.rank()
}

// Len returns the size of the rate table.
func (rc *RateControl) Len() int {
	return len(rc.rates)
}

// Rates returns a copy of the rate table.
func (rc *RateControl) Rates() []RateEntry {
	return append([]RateEntry(nil), rc.rates...)
}

// Entry returns the row at idx.
func (rc *RateControl) Entry(idx int) (RateEntry, bool) {
	if idx < 0 || idx >= len(rc.rates) {
		return RateEntry{}, false
	}
	return rc.rates[idx], true
}

// SetEnabled includes or excludes a rate from selection, e.g. when the
// peer does not advertise it.
func (rc *RateControl) SetEnabled(idx int, enabled bool) bool {
	if idx < 0 || idx >= len(rc.rates) {
		return false
	}
	rc.rates[idx].Enabled = enabled
	rc.lowest = rc.computeLowest()
	rc.rank()
	return true
}

// TxRate picks the rate for the next transmission. Every SampleEvery-th
// call probes the next enabled rate round-robin; otherwise the best
// throughput rate is used.
func (rc *RateControl) TxRate() (int, RateEntry) {
	rc.sampleCount++
	if rc.sampleCount%SampleEvery == 0 {
		for range rc.rates {
			rc.sampleIdx = (rc.sampleIdx + 1) % len(rc.rates)
			if rc.rates[rc.sampleIdx].Enabled {
				break
			}
		}
		return rc.sampleIdx, rc.rates[rc.sampleIdx]
	}
	return rc.bestTP, rc.rates[rc.bestTP]
}

// RetryChain is the multi-rate retry schedule: best throughput, second best,
// most reliable, then the lowest rate.
func (rc *RateControl) RetryChain() [RetryChainLen]RetryStep {
	return [RetryChainLen]RetryStep{
		{rc.bestTP, defaultRetries},
		{rc.secondTP, defaultRetries},
		{rc.bestProb, defaultRetries},
		{rc.lowest, lowestRetries},
	}
}

// TxStatus feeds back the outcome of a transmission at idx. The ranking is
// recomputed at most once per UpdateIntervalMs. Returns true when it was.
func (rc *RateControl) TxStatus(idx int, success bool, timestamp uint64) bool {
	if idx >= 0 && idx < len(rc.rates) {
		rc.rates[idx].Stats.Update(success, timestamp)
	}
	rc.totalPackets++

	if timestamp < rc.lastUpdate {
		// clock went backwards; restart the interval
		rc.lastUpdate = timestamp
		return false
	}
	if timestamp-rc.lastUpdate < rc.UpdateIntervalMs {
		return false
	}
	rc.updateRates()
	rc.lastUpdate = timestamp
	return true
}

func (rc *RateControl) updateRates() {
	rc.updates++
	rc.rank()
}

// rank recomputes the best throughput, second best and most reliable
// enabled rates from the current statistics. Rates that never delivered
// do not qualify; a slot nothing qualifies for falls back to the lowest
// rate.
func (rc *RateControl) rank() {
	best, second, prob := -1, -1, -1
	for i, r := range rc.rates {
		if !r.Enabled {
			continue
		}
		if tp := r.Stats.Throughput; tp > 0 {
			switch {
			case best < 0 || tp > rc.rates[best].Stats.Throughput:
				best, second = i, best
			case second < 0 || tp > rc.rates[second].Stats.Throughput:
				second = i
			}
		}
		if p := r.Stats.Probability; p > 0 && (prob < 0 || p > rc.rates[prob].Stats.Probability) {
			prob = i
		}
	}
	rc.bestTP = orLowest(best, rc.lowest)
	rc.secondTP = orLowest(second, rc.lowest)
	rc.bestProb = orLowest(prob, rc.lowest)
}

func orLowest(idx, lowest int) int {
	if idx < 0 {
		return lowest
	}
	return idx
}

// computeLowest finds the enabled rate with the longest airtime.
func (rc *RateControl) computeLowest() int {
	lowest, worst := 0, uint32(0)
	for i, r := range rc.rates {
		if r.Enabled && r.Stats.PerfectTxTime > worst {
			lowest, worst = i, r.Stats.PerfectTxTime
		}
	}
	return lowest
}

func (rc *RateControl) BestThroughputIndex() int { return rc.bestTP }
func (rc *RateControl) SecondThroughputIndex() int { return rc.secondTP }
func (rc *RateControl) BestProbabilityIndex() int { return rc.bestProb }
func (rc *RateControl) LowestIndex() int { return rc.lowest }

func (rc *RateControl) Stats() Stats {
	return Stats{
		TotalPackets:    rc.totalPackets,
		Updates:         rc.updates,
		BestRateIdx:     rc.bestTP,
		BestThroughput:  rc.rates[rc.bestTP].Stats.Throughput,
		BestProbability: rc.rates[rc.bestProb].Stats.Probability,
	}
}
