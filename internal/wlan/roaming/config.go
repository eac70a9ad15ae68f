// Package roaming decides when a station should leave its current BSS and
// which candidate it should move to, and builds 802.11r transition frames.
package roaming

// Config tunes the roaming triggers. Times are in milliseconds.
type Config struct {
	Enabled             bool
	SignalThreshold     int8 // dBm; below this the manager starts evaluating
	SignalDelta         int8 // score margin a candidate needs over the current BSS
	BeaconMissThreshold uint8
	CooldownMs          uint64
	BackgroundScan      bool
	BgScanIntervalMs    uint64
	FastTransition      bool
	Prefer5GHz          bool
	Band5GHzBonus       int8
	Weights             ScoreWeights
}

// DefaultConfig returns the stock roaming configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		SignalThreshold:     -75,
		SignalDelta:         10,
		BeaconMissThreshold: 5,
		CooldownMs:          5000,
		BackgroundScan:      true,
		BgScanIntervalMs:    30000,
		FastTransition:      true,
		Prefer5GHz:          true,
		Band5GHzBonus:       5,
		Weights:             DefaultScoreWeights(),
	}
}

// ScoreWeights are the capability terms of the candidate score. They are
// heuristics and may be tuned per deployment.
type ScoreWeights struct {
	HE           int
	VHT          int
	HT           int
	WidthDivisor int // width term is MHz / WidthDivisor
	SNRDivisor   int // SNR term is dB / SNRDivisor
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{HE: 5, VHT: 3, HT: 1, WidthDivisor: 20, SNRDivisor: 2}
}
