// Package qos implements WMM/EDCA channel access: access categories,
// contention parameters, the WMM elements, traffic classification and the
// per-category transmit queues.
package qos

// AccessCategory is a WMM traffic class. Values are ordered by priority so
// a larger value always wins internal contention.
type AccessCategory uint8

const (
	Background AccessCategory = iota
	BestEffort
	Video
	Voice
)

// AccessCategories lists every category from lowest to highest priority.
var AccessCategories = [...]AccessCategory{Background, BestEffort, Video, Voice}

func (ac AccessCategory) String() string {
	switch ac {
	case Background:
		return "BK"
	case BestEffort:
		return "BE"
	case Video:
		return "VI"
	case Voice:
		return "VO"
	default:
		return "Unknown"
	}
}

// FromUserPriority maps an 802.1D user priority (0-7) to its category.
func FromUserPriority(up uint8) AccessCategory {
	switch up & 0x07 {
	case 1, 2:
		return Background
	case 4, 5:
		return Video
	case 6, 7:
		return Voice
	default:
		return BestEffort
	}
}

// FromTID maps a TID to its category. TIDs 8-15 (TSPEC) fold onto 0-7.
func FromTID(tid uint8) AccessCategory {
	return FromUserPriority(tid)
}

// UserPriority is the priority used when tagging frames of this category.
func (ac AccessCategory) UserPriority() uint8 {
	switch ac {
	case Background:
		return 1
	case Video:
		return 5
	case Voice:
		return 6
	default:
		return 0
	}
}

// TID is the traffic identifier used in QoS Control, equal to UserPriority.
func (ac AccessCategory) TID() uint8 {
	return ac.UserPriority()
}

// ACI is the access category index carried in the WMM parameter record.
func (ac AccessCategory) ACI() uint8 {
	switch ac {
	case Background:
		return 1
	case Video:
		return 2
	case Voice:
		return 3
	default:
		return 0
	}
}

// FromACI is the inverse of ACI.
func FromACI(aci uint8) AccessCategory {
	switch aci & 0x03 {
	case 1:
		return Background
	case 2:
		return Video
	case 3:
		return Voice
	default:
		return BestEffort
	}
}
