package power

// Manager is the power save state machine of one station. It is not safe
// for concurrent use.
type Manager struct {
	mode     Mode
	state    State
	listen   ListenInterval
	uapsd    UapsdConfig
	twt      *TwtParams
	stats    Stats
	buffered bool

	lastAccount uint64
	accounting  bool
}

func NewManager() *Manager {
	return &Manager{
		mode:   ModeActive,
		state:  StateAwake,
		listen: DefaultListenInterval(),
	}
}

// SetMode switches the power save mode. Active wakes the radio, U-APSD
// enables every category and TWT installs the default agreement.
func (m *Manager) SetMode(mode Mode) {
	m.mode = mode
	switch mode {
	case ModeActive:
		m.WakeUp()
	case ModeUAPSD:
		m.uapsd = UapsdAllEnabled()
	case ModeTWT:
		p := DefaultTwtParams()
		m.twt = &p
		m.stats.TwtSessions++
	}
}

func (m *Manager) Mode() Mode { return m.mode }
func (m *Manager) State() State { return m.state }

func (m *Manager) ListenInterval() ListenInterval { return m.listen }
func (m *Manager) SetListenInterval(li ListenInterval) { m.listen = li }
func (m *Manager) UapsdConfig() UapsdConfig { return m.uapsd }
func (m *Manager) SetUapsdConfig(c UapsdConfig) { m.uapsd = c }

func (m *Manager) SetTwtParams(p TwtParams) {
	m.twt = &p
	m.stats.TwtSessions++
}

// TwtParams returns the active TWT agreement, if any.
func (m *Manager) TwtParams() (TwtParams, bool) {
	if m.twt == nil {
		return TwtParams{}, false
	}
	return *m.twt, true
}

// WakeUp moves to Awake, counting the transition.
func (m *Manager) WakeUp() {
	if m.state != StateAwake {
		m.state = StateAwake
		m.stats.WakeCount++
	}
}

// EnterDoze dozes unless the mode is Active.
func (m *Manager) EnterDoze() {
	if m.mode != ModeActive {
		m.state = StateDoze
	}
}

// EnterDeepSleep sleeps unless the mode is Active.
func (m *Manager) EnterDeepSleep() {
	if m.mode != ModeActive {
		m.state = StateDeepSleep
	}
}

// SetBufferedAtAP records the AP's buffered-traffic indication (TIM bit or
// More Data). Buffered traffic always wakes the station.
func (m *Manager) SetBufferedAtAP(buffered bool) {
	m.buffered = buffered
	if buffered {
		m.stats.BufferedFramesRx++
		m.WakeUp()
	}
}

func (m *Manager) BufferedAtAP() bool { return m.buffered }

func (m *Manager) ShouldWakeForBeacon() bool {
	return m.mode == ModeLegacyPSM
}

func (m *Manager) ShouldWakeForDTIM() bool {
	return m.mode == ModeLegacyPSM || m.mode == ModeUAPSD
}

// NullFrameSent counts a null data frame used to signal a PM change.
func (m *Manager) NullFrameSent() {
	m.stats.NullFramesTx++
}

// UpdateStats adds externally measured awake and doze time.
func (m *Manager) UpdateStats(awakeMs, dozeMs uint64) {
	m.stats.AwakeTimeMs += awakeMs
	m.stats.DozeTimeMs += dozeMs
}

// Account attributes the time since the previous call to the current
// state. Call it before every transition to keep the duty cycle exact.
func (m *Manager) Account(now uint64) {
	if m.accounting && now > m.lastAccount {
		d := now - m.lastAccount
		if m.state == StateAwake {
			m.stats.AwakeTimeMs += d
		} else {
			m.stats.DozeTimeMs += d
		}
	}
	if !m.accounting || now > m.lastAccount {
		m.lastAccount = now
	}
	m.accounting = true
}

func (m *Manager) Stats() Stats { return m.stats }
