package ratecontrol

const fixedRetries = 4

// Selector chooses transmit rates and learns from their outcome. Both the
// adaptive controller and a pinned rate satisfy it.
type Selector interface {
	TxRate() (int, RateEntry)
	RetryChain() [RetryChainLen]RetryStep
	TxStatus(idx int, success bool, timestamp uint64) bool
}

var (
	_ Selector = (*RateControl)(nil)
	_ Selector = (*FixedRate)(nil)
)

// FixedRate always transmits at one rate with a fixed retry budget.
type FixedRate struct {
	Rate       Rate
	RetryCount uint8
	Index      int // position in the default rate table, -1 if absent

	stats RateStats
}

func FixedLegacy(r LegacyRate) *FixedRate { return newFixed(LegacyRateOf(r)) }
func FixedHT(mcs McsIndex) *FixedRate { return newFixed(HTRate(mcs)) }

// NewFixedRate pins an arbitrary rate.
func NewFixedRate(r Rate) *FixedRate { return newFixed(r) }

func newFixed(r Rate) *FixedRate {
	return &FixedRate{Rate: r, RetryCount: fixedRetries, Index: DefaultIndex(r)}
}

// DefaultIndex returns the position of r in the table built by New, or -1.
func DefaultIndex(r Rate) int {
	for i, l := range defaultLegacy {
		if r == LegacyRateOf(l.rate) {
			return i
		}
	}
	if r.Kind == KindHT && r.MCS < 8 {
		return len(defaultLegacy) + int(r.MCS)
	}
	return -1
}

func (f *FixedRate) TxRate() (int, RateEntry) {
	return f.Index, RateEntry{Rate: f.Rate, Stats: f.stats, RetryCount: f.RetryCount, Enabled: true}
}

func (f *FixedRate) RetryChain() [RetryChainLen]RetryStep {
	return [RetryChainLen]RetryStep{{f.Index, f.RetryCount}}
}

// TxStatus only tracks statistics; the rate never changes.
func (f *FixedRate) TxStatus(_ int, success bool, timestamp uint64) bool {
	f.stats.Update(success, timestamp)
	return false
}
