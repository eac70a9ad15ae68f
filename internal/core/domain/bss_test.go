package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencyToChannel(t *testing.T) {
	tests := []struct {
		freq int
		want int
	}{
		{2412, 1},
		{2437, 6},
		{2472, 13},
		{2484, 14},
		{5180, 36},
		{5745, 149},
		{5955, 1},
		{900, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FrequencyToChannel(tt.freq), "freq %d", tt.freq)
	}
}

func TestScanResult_SNR(t *testing.T) {
	r := NewScanResult(MAC{1, 2, 3, 4, 5, 6}, 2412)
	r.Signal = -60
	r.Noise = -95
	assert.Equal(t, int8(35), r.SNR())

	r.Signal = 100
	r.Noise = -100
	assert.Equal(t, int8(127), r.SNR(), "should saturate")
}

func TestParseMAC(t *testing.T) {
	m, err := ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, m)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", m.String())

	_, err = ParseMAC("00:00:00:00:fe:80:00:00")
	assert.Error(t, err)
}
