package ratecontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateStats_Update(t *testing.T) {
	s := RateStats{PerfectTxTime: 200}
	s.Update(true, 5)
	assert.Equal(t, uint32(250), s.Probability)
	assert.Equal(t, uint32(1250), s.Throughput)
	assert.Equal(t, uint64(5), s.LastUpdate)

	s.Update(true, 6)
	assert.Equal(t, uint32(437), s.Probability) // (750+1000)/4

	s.Update(false, 7)
	s.Update(true, 8)
	assert.Equal(t, uint32(750), s.SuccessRatio())
	assert.Equal(t, uint32(4), s.Attempts)
}

func TestRateStats_ThroughputDecays(t *testing.T) {
	s := RateStats{PerfectTxTime: 100}
	s.Update(true, 0)
	for i := 0; i < 20; i++ {
		s.Update(false, 0)
	}
	assert.Zero(t, s.Probability)
	assert.Zero(t, s.Throughput)
}

func TestNew_Table(t *testing.T) {
	rc := New()
	require.Equal(t, 16, rc.Len())

	e, ok := rc.Entry(0)
	require.True(t, ok)
	assert.Equal(t, LegacyRateOf(Rate6M), e.Rate)
	assert.Equal(t, uint32(200), e.Stats.PerfectTxTime)
	assert.Equal(t, uint8(2), e.RetryCount)

	e, _ = rc.Entry(15)
	assert.Equal(t, HTRate(7), e.Rate)
	assert.Equal(t, uint32(30), e.Stats.PerfectTxTime)

	_, ok = rc.Entry(16)
	assert.False(t, ok)
	assert.Equal(t, 0, rc.LowestIndex())
}

func TestAddHTRates(t *testing.T) {
	rc := New()
	rc.AddHTRates(11)
	require.Equal(t, 28, rc.Len())

	e, _ := rc.Entry(16 + 1)
	assert.Equal(t, uint32(92), e.Stats.PerfectTxTime)
	e, _ = rc.Entry(16 + 11)
	assert.Equal(t, uint32(20), e.Stats.PerfectTxTime)
}

func TestTxRate_SamplesEveryTenthCall(t *testing.T) {
	rc := New()
	for i := 1; i <= 30; i++ {
		idx, _ := rc.TxRate()
		switch i {
		case 10:
			assert.Equal(t, 1, idx)
		case 20:
			assert.Equal(t, 2, idx)
		case 30:
			assert.Equal(t, 3, idx)
		default:
			assert.Equal(t, rc.BestThroughputIndex(), idx, "call %d", i)
		}
	}
}

func TestTxRate_SamplingSkipsDisabled(t *testing.T) {
	rc := New()
	require.True(t, rc.SetEnabled(1, false))
	for i := 0; i < 9; i++ {
		rc.TxRate()
	}
	idx, e := rc.TxRate()
	assert.Equal(t, 2, idx)
	assert.True(t, e.Enabled)
}

func TestTxStatus_UpdateCadence(t *testing.T) {
	rc := New()
	assert.False(t, rc.TxStatus(0, true, 50))
	assert.True(t, rc.TxStatus(0, true, 100))
	assert.False(t, rc.TxStatus(0, true, 199))
	assert.True(t, rc.TxStatus(0, true, 200))
	assert.Equal(t, uint64(2), rc.Stats().Updates)
	assert.Equal(t, uint64(4), rc.Stats().TotalPackets)

	// a clock step backwards restarts the interval instead of underflowing
	assert.False(t, rc.TxStatus(0, true, 100))
	assert.False(t, rc.TxStatus(0, true, 199))
	assert.True(t, rc.TxStatus(0, true, 200))

	assert.False(t, rc.TxStatus(99, true, 250), "unknown index is counted only")
	assert.Equal(t, uint64(8), rc.Stats().TotalPackets)
}

func TestRateControl_Converges(t *testing.T) {
	rc := New()
	for ts := uint64(1); ts <= 1000; ts += 5 {
		for idx := 0; idx < rc.Len(); idx++ {
			rc.TxStatus(idx, idx == 3, ts)
		}
	}
	assert.Equal(t, 3, rc.BestThroughputIndex())
	assert.Equal(t, 3, rc.BestProbabilityIndex())

	st := rc.Stats()
	e, _ := rc.Entry(3)
	assert.Equal(t, 3, st.BestRateIdx)
	assert.Equal(t, e.Stats.Throughput, st.BestThroughput)
	assert.Greater(t, st.BestProbability, uint32(990))
	assert.Equal(t, st.BestProbability*1000/80, st.BestThroughput)
}

func TestRateControl_SecondBest(t *testing.T) {
	rc := New()
	for ts := uint64(1); ts <= 500; ts += 10 {
		rc.TxStatus(2, true, ts)  // 12M
		rc.TxStatus(15, true, ts) // MCS7
	}
	assert.Equal(t, 15, rc.BestThroughputIndex())
	assert.Equal(t, 2, rc.SecondThroughputIndex())

	chain := rc.RetryChain()
	assert.Equal(t, RetryStep{15, 2}, chain[0])
	assert.Equal(t, RetryStep{2, 2}, chain[1])
	assert.Equal(t, RetryStep{0, 4}, chain[3])
}

func TestRetryChain_LowestFollowsEnabled(t *testing.T) {
	rc := New()
	rc.SetEnabled(0, false)
	assert.Equal(t, 1, rc.LowestIndex())
	assert.Equal(t, RetryStep{1, 4}, rc.RetryChain()[3])
	assert.False(t, rc.SetEnabled(-1, true))
}

func TestRateControl_SecondBestDiffersFromBest(t *testing.T) {
	rc := New()
	for ts := uint64(1); ts <= 301; ts += 100 {
		rc.TxStatus(3, true, ts)
	}
	require.Equal(t, uint64(3), rc.Stats().Updates)

	chain := rc.RetryChain()
	assert.Equal(t, 3, chain[0].Index)
	assert.NotEqual(t, chain[0].Index, chain[1].Index)
	assert.Equal(t, rc.LowestIndex(), rc.SecondThroughputIndex(), "nothing else delivered")
	assert.Equal(t, 3, rc.BestProbabilityIndex())
}

func TestRateControl_RankingIsRecomputedFromScratch(t *testing.T) {
	rc := New()
	// MCS7 wins the first interval.
	rc.TxStatus(15, true, 1)
	rc.TxStatus(15, true, 101)
	require.Equal(t, 15, rc.BestThroughputIndex())

	// Then it collapses while 24M keeps delivering.
	for ts := uint64(102); ts <= 1001; ts += 100 {
		rc.TxStatus(15, false, ts)
		rc.TxStatus(4, true, ts)
	}
	assert.Equal(t, 4, rc.BestThroughputIndex())
	assert.NotEqual(t, 4, rc.SecondThroughputIndex())
}

func TestSetEnabled_NeverSelectsDisabledRate(t *testing.T) {
	rc := New()
	require.True(t, rc.SetEnabled(0, false))
	idx, e := rc.TxRate()
	assert.Equal(t, 1, idx)
	assert.True(t, e.Enabled)

	for ts := uint64(1); ts <= 201; ts += 100 {
		rc.TxStatus(5, true, ts)
	}
	require.Equal(t, 5, rc.BestThroughputIndex())
	require.True(t, rc.SetEnabled(5, false))
	for _, step := range rc.RetryChain() {
		entry, ok := rc.Entry(step.Index)
		require.True(t, ok)
		assert.True(t, entry.Enabled, "chain index %d", step.Index)
	}
}
