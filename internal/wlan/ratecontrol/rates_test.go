package ratecontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMcsRates(t *testing.T) {
	assert.Equal(t, uint32(6500), McsIndex(0).Rate20MHzKbps(false))
	assert.Equal(t, uint32(65000), McsIndex(7).Rate20MHzKbps(false))
	assert.Equal(t, uint32(72222), McsIndex(7).Rate20MHzKbps(true))
	assert.Equal(t, uint32(130000), McsIndex(7).Rate40MHzKbps(false))
	assert.Equal(t, uint32(13000), McsIndex(8).Rate20MHzKbps(false))
	assert.Equal(t, uint32(6500), McsIndex(31).Rate20MHzKbps(false))
}

func TestLegacyRates(t *testing.T) {
	assert.Equal(t, uint32(54000), Rate54M.Kbps())
	assert.Equal(t, uint32(5500), Rate5_5M.Kbps())
	assert.Equal(t, "54M", Rate54M.String())
	assert.Equal(t, "5.5M", Rate5_5M.String())
}

func TestRateString(t *testing.T) {
	assert.Equal(t, "6M", LegacyRateOf(Rate6M).String())
	assert.Equal(t, "MCS3", HTRate(3).String())
	assert.Equal(t, "VHT-MCS9x2", VHTRate(9, 2).String())
	assert.Equal(t, uint32(2*26000), HERate(3, 2).Kbps())
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want Rate
	}{
		{"54M", LegacyRateOf(Rate54M)},
		{"5.5m", LegacyRateOf(Rate5_5M)},
		{"6", LegacyRateOf(Rate6M)},
		{"mcs7", HTRate(7)},
		{" MCS0 ", HTRate(0)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "7M", "mcs10", "fast", "-6M", "100M"} {
		_, err := ParseRate(bad)
		assert.Error(t, err, bad)
	}
}
