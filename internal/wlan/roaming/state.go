package roaming

import "github.com/lcalzada-xor/wlanctl/internal/core/domain"

// State is the roaming state machine position.
type State int

const (
	StateIdle State = iota
	StateBackgroundScanning
	StateEvaluating
	StatePreparingTransition
	StateTransitioning
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBackgroundScanning:
		return "BackgroundScanning"
	case StateEvaluating:
		return "Evaluating"
	case StatePreparingTransition:
		return "PreparingTransition"
	case StateTransitioning:
		return "Transitioning"
	case StateCooldown:
		return "Cooldown"
	default:
		return "Unknown"
	}
}

// Reason explains why a roam was chosen.
type Reason int

const (
	ReasonLowSignal Reason = iota
	ReasonBeaconLoss
	ReasonLoadBalance
	ReasonUserRequest
	ReasonRegulatory
	ReasonBetterAP
)

func (r Reason) String() string {
	switch r {
	case ReasonLowSignal:
		return "low_signal"
	case ReasonBeaconLoss:
		return "beacon_loss"
	case ReasonLoadBalance:
		return "load_balance"
	case ReasonUserRequest:
		return "user_request"
	case ReasonRegulatory:
		return "regulatory"
	case ReasonBetterAP:
		return "better_ap"
	default:
		return "unknown"
	}
}

// Action is the outcome of an evaluation.
type Action int

const (
	ActionStay Action = iota
	ActionRoam
	ActionDisconnect
)

func (a Action) String() string {
	switch a {
	case ActionStay:
		return "stay"
	case ActionRoam:
		return "roam"
	case ActionDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Decision is returned by EvaluateCandidates. Target and Reason are only
// meaningful for ActionRoam.
type Decision struct {
	Action Action
	Target domain.ScanResult
	Reason Reason
}

// Candidate is a scored roam target.
type Candidate struct {
	BSS    domain.ScanResult
	Score  int
	Reason Reason
}

// Stats counts roams. AvgRoamTimeMs is a running mean over RoamCount.
type Stats struct {
	RoamCount     uint32
	RoamSuccess   uint32
	RoamFailed    uint32
	LastRoamTime  uint64
	AvgRoamTimeMs uint32
}
