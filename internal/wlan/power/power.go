// Package power implements station power save: PSM, U-APSD and TWT mode
// handling, the Awake/Doze/DeepSleep state machine and its frames.
package power

// Mode is the power save mode negotiated with the AP.
type Mode int

const (
	ModeActive Mode = iota
	ModeLegacyPSM
	ModeUAPSD
	ModeTWT
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModeLegacyPSM:
		return "psm"
	case ModeUAPSD:
		return "uapsd"
	case ModeTWT:
		return "twt"
	default:
		return "unknown"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, bool) {
	for _, m := range []Mode{ModeActive, ModeLegacyPSM, ModeUAPSD, ModeTWT} {
		if m.String() == s {
			return m, true
		}
	}
	return ModeActive, false
}

// State is the radio power state.
type State int

const (
	StateAwake State = iota
	StateDoze
	StateDeepSleep
)

func (s State) String() string {
	switch s {
	case StateAwake:
		return "awake"
	case StateDoze:
		return "doze"
	case StateDeepSleep:
		return "deep_sleep"
	default:
		return "unknown"
	}
}

// UapsdConfig selects the delivery-enabled access categories. Bits follow
// the WMM QoS Info field of a station: VO, VI, BK, BE, then Max SP Length
// in bits 5-6.
type UapsdConfig struct {
	Voice       bool
	Video       bool
	BestEffort  bool
	Background  bool
	MaxSPLength uint8
}

const (
	uapsdVO = 0x01
	uapsdVI = 0x02
	uapsdBK = 0x04
	uapsdBE = 0x08
)

// UapsdAllEnabled enables U-APSD on every access category.
func UapsdAllEnabled() UapsdConfig {
	return UapsdConfig{Voice: true, Video: true, BestEffort: true, Background: true}
}

func (c UapsdConfig) QoSInfo() uint8 {
	var v uint8
	if c.Voice {
		v |= uapsdVO
	}
	if c.Video {
		v |= uapsdVI
	}
	if c.Background {
		v |= uapsdBK
	}
	if c.BestEffort {
		v |= uapsdBE
	}
	return v | (c.MaxSPLength&0x03)<<5
}

// ParseQoSInfo decodes a station QoS Info byte.
func ParseQoSInfo(v uint8) UapsdConfig {
	return UapsdConfig{
		Voice:       v&uapsdVO != 0,
		Video:       v&uapsdVI != 0,
		Background:  v&uapsdBK != 0,
		BestEffort:  v&uapsdBE != 0,
		MaxSPLength: (v >> 5) & 0x03,
	}
}

// TwtParams describes an individual TWT agreement.
type TwtParams struct {
	WakeIntervalExp      uint8
	WakeIntervalMantissa uint16
	MinWakeDuration      uint8 // units of 256 us
	Channel              uint8
	Implicit             bool
	FlowType             uint8
	Protection           bool
}

// DefaultTwtParams is roughly a one second wake interval.
func DefaultTwtParams() TwtParams {
	return TwtParams{
		WakeIntervalExp:      10,
		WakeIntervalMantissa: 1000,
		MinWakeDuration:      255,
		Implicit:             true,
	}
}

// WakeIntervalMicros is mantissa * 2^exp.
func (p TwtParams) WakeIntervalMicros() uint64 {
	return uint64(p.WakeIntervalMantissa) << p.WakeIntervalExp
}

// ListenInterval is how often a dozing station wakes for beacons.
type ListenInterval struct {
	BeaconPeriods uint16
	DTIMPeriods   uint8
}

func DefaultListenInterval() ListenInterval {
	return ListenInterval{BeaconPeriods: 10, DTIMPeriods: 1}
}

// Stats accumulates power save activity.
type Stats struct {
	AwakeTimeMs      uint64
	DozeTimeMs       uint64
	WakeCount        uint32
	BufferedFramesRx uint32
	NullFramesTx     uint32
	TwtSessions      uint32
}

// DutyCyclePercent is the share of accounted time spent awake, 100 when
// nothing has been accounted yet.
func (s Stats) DutyCyclePercent() float64 {
	total := s.AwakeTimeMs + s.DozeTimeMs
	if total == 0 {
		return 100
	}
	return float64(s.AwakeTimeMs) / float64(total) * 100
}
