package ratecontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRate(t *testing.T) {
	f := FixedLegacy(Rate54M)
	assert.Equal(t, 7, f.Index)
	assert.Equal(t, uint8(4), f.RetryCount)

	idx, e := f.TxRate()
	assert.Equal(t, 7, idx)
	assert.Equal(t, LegacyRateOf(Rate54M), e.Rate)
	assert.Equal(t, RetryStep{7, 4}, f.RetryChain()[0])

	assert.False(t, f.TxStatus(7, true, 10))
	_, e = f.TxRate()
	assert.Equal(t, uint32(1), e.Stats.Attempts)

	assert.Equal(t, 15, FixedHT(7).Index)
	assert.Equal(t, -1, NewFixedRate(VHTRate(3, 2)).Index)
	assert.Equal(t, -1, FixedLegacy(Rate11M).Index)
}

func TestDefaultIndexMatchesTable(t *testing.T) {
	rc := New()
	for i, e := range rc.Rates() {
		assert.Equal(t, i, DefaultIndex(e.Rate))
	}
}
