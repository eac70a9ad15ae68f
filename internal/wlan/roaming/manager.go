package roaming

import (
	"cmp"
	"slices"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
)

// Manager tracks the current association and turns signal reports, beacon
// misses and scan results into roam decisions. It is not safe for
// concurrent use.
type Manager struct {
	cfg   Config
	state State
	stats Stats

	current    *domain.ScanResult
	candidates []Candidate
	ft         *FtInfo

	lastBgScan    uint64
	lastSignal    int8
	beaconMisses  uint8
	cooldownUntil uint64
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, lastSignal: -100}
}

// SetCurrentBSS records a new association.
func (m *Manager) SetCurrentBSS(bss domain.ScanResult) {
	m.current = &bss
	m.beaconMisses = 0
	m.candidates = m.candidates[:0]
	if ft, err := FtInfoFromBSS(bss); err == nil {
		m.ft = &ft
	} else {
		m.ft = nil
	}
}

// ClearCurrentBSS forgets the association, e.g. after a disconnect.
func (m *Manager) ClearCurrentBSS() {
	m.current = nil
	m.ft = nil
	m.state = StateIdle
}

// CurrentBSS returns the associated BSS, if any.
func (m *Manager) CurrentBSS() (domain.ScanResult, bool) {
	if m.current == nil {
		return domain.ScanResult{}, false
	}
	return *m.current, true
}

func (m *Manager) SetFtInfo(ft FtInfo) { m.ft = &ft }

// FtInfo returns the mobility domain of the current BSS, if it advertised one.
func (m *Manager) FtInfo() (FtInfo, bool) {
	if m.ft == nil {
		return FtInfo{}, false
	}
	return *m.ft, true
}

// UpdateSignal records a beacon's RSSI. A weak signal outside cooldown moves
// the manager to Evaluating; the caller then scans and calls
// EvaluateCandidates.
func (m *Manager) UpdateSignal(signal int8, now uint64) {
	m.lastSignal = signal
	m.beaconMisses = 0
	if m.cfg.Enabled && signal < m.cfg.SignalThreshold && now >= m.cooldownUntil {
		m.state = StateEvaluating
	}
}

func (m *Manager) LastSignal() int8 { return m.lastSignal }

// BeaconMissed counts one missed beacon.
func (m *Manager) BeaconMissed() {
	if m.beaconMisses < 255 {
		m.beaconMisses++
	}
}

func (m *Manager) BeaconMisses() uint8 { return m.beaconMisses }

// BeaconLost reports whether the miss threshold has been reached.
func (m *Manager) BeaconLost() bool {
	return m.beaconMisses >= m.cfg.BeaconMissThreshold
}

// ShouldBackgroundScan reports whether a periodic scan is due. An expired
// cooldown counts as idle.
func (m *Manager) ShouldBackgroundScan(now uint64) bool {
	idle := m.state == StateIdle || (m.state == StateCooldown && !m.InCooldown(now))
	return m.cfg.Enabled &&
		m.cfg.BackgroundScan &&
		m.current != nil &&
		idle &&
		now >= m.lastBgScan &&
		now-m.lastBgScan >= m.cfg.BgScanIntervalMs
}

func (m *Manager) StartBackgroundScan(now uint64) {
	m.state = StateBackgroundScanning
	m.lastBgScan = now
}

// EvaluateCandidates decides between staying, roaming and disconnecting
// given fresh scan results.
//
// After beacon loss any other BSS of the same ESS is acceptable and the
// cooldown does not apply; equal scores go to the later scan result. With
// none available the station disconnects.
// Otherwise candidates must beat the current BSS by more than SignalDelta,
// and no roam happens before the cooldown expires.
func (m *Manager) EvaluateCandidates(results []domain.ScanResult, now uint64) Decision {
	stay := Decision{Action: ActionStay}
	if !m.cfg.Enabled || m.current == nil {
		m.state = StateIdle
		return stay
	}
	cur := *m.current

	if m.BeaconLost() {
		best, found := domain.ScanResult{}, false
		bestScore := 0
		for _, r := range results {
			if r.SSID != cur.SSID || r.BSSID == cur.BSSID {
				continue
			}
			if s := m.ScoreCandidate(r); !found || s >= bestScore {
				best, bestScore, found = r, s, true
			}
		}
		if found {
			m.state = StatePreparingTransition
			return Decision{Action: ActionRoam, Target: best, Reason: ReasonBeaconLoss}
		}
		m.state = StateIdle
		return Decision{Action: ActionDisconnect, Reason: ReasonBeaconLoss}
	}

	reason := ReasonBetterAP
	if m.state == StateEvaluating {
		reason = ReasonLowSignal
	}

	curScore := m.ScoreCandidate(cur)
	m.candidates = m.candidates[:0]
	for _, r := range results {
		if r.SSID != cur.SSID || r.BSSID == cur.BSSID {
			continue
		}
		if s := m.ScoreCandidate(r); s > curScore+int(m.cfg.SignalDelta) {
			m.candidates = append(m.candidates, Candidate{BSS: r, Score: s, Reason: reason})
		}
	}
	slices.SortStableFunc(m.candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if now < m.cooldownUntil {
		m.state = StateCooldown
		return stay
	}
	if len(m.candidates) > 0 {
		m.state = StatePreparingTransition
		c := m.candidates[0]
		return Decision{Action: ActionRoam, Target: c.BSS, Reason: c.Reason}
	}
	m.state = StateIdle
	return stay
}

// ScoreCandidate ranks a BSS: RSSI, a 5 GHz bonus, the best PHY capability
// bonus, channel width and SNR.
func (m *Manager) ScoreCandidate(bss domain.ScanResult) int {
	w := m.cfg.Weights
	score := int(bss.Signal)
	if m.cfg.Prefer5GHz && bss.Is5GHz() {
		score += int(m.cfg.Band5GHzBonus)
	}
	switch {
	case bss.HE:
		score += w.HE
	case bss.VHT:
		score += w.VHT
	case bss.HT:
		score += w.HT
	}
	if w.WidthDivisor > 0 {
		score += bss.ChannelWidth / w.WidthDivisor
	}
	if w.SNRDivisor > 0 {
		score += int(bss.SNR()) / w.SNRDivisor
	}
	return score
}

// RoamStarted marks the beginning of a transition.
func (m *Manager) RoamStarted(now uint64) {
	m.state = StateTransitioning
	m.stats.RoamCount++
	m.stats.LastRoamTime = now
}

// RoamCompleted records the outcome, switches to newBSS on success and
// enters cooldown.
func (m *Manager) RoamCompleted(success bool, newBSS *domain.ScanResult, now uint64) {
	if success {
		m.stats.RoamSuccess++
		if newBSS != nil {
			m.SetCurrentBSS(*newBSS)
		}
	} else {
		m.stats.RoamFailed++
	}

	if n := m.stats.RoamCount; n > 0 {
		var elapsed uint64
		if now > m.stats.LastRoamTime {
			elapsed = now - m.stats.LastRoamTime
		}
		avg := (uint64(m.stats.AvgRoamTimeMs)*uint64(n-1) + elapsed) / uint64(n)
		m.stats.AvgRoamTimeMs = uint32(min(avg, uint64(^uint32(0))))
	}

	m.cooldownUntil = now + m.cfg.CooldownMs
	m.state = StateCooldown
	m.beaconMisses = 0
}

// InCooldown reports whether roaming is currently suppressed.
func (m *Manager) InCooldown(now uint64) bool {
	return now < m.cooldownUntil
}

// Candidates returns the candidates of the last evaluation, best first.
func (m *Manager) Candidates() []Candidate {
	return slices.Clone(m.candidates)
}

func (m *Manager) State() State { return m.state }
func (m *Manager) Stats() Stats { return m.stats }
func (m *Manager) Config() Config { return m.cfg }

// SetConfig replaces the configuration; state and statistics are kept.
func (m *Manager) SetConfig(cfg Config) { m.cfg = cfg }
