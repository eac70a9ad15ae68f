package qos

// AckPolicy is the acknowledgment policy carried in QoS Control.
type AckPolicy uint8

const (
	AckNormal AckPolicy = iota
	AckNone
	AckNoExplicit
	AckBlock
)

func (p AckPolicy) String() string {
	switch p {
	case AckNormal:
		return "Normal"
	case AckNone:
		return "NoAck"
	case AckNoExplicit:
		return "NoExplicitAck"
	case AckBlock:
		return "BlockAck"
	default:
		return "Unknown"
	}
}

// QosControl is the 16-bit QoS Control field of QoS data frames.
type QosControl struct {
	TID          uint8
	EOSP         bool
	AckPolicy    AckPolicy
	AMSDUPresent bool
	TXOPOrQueue  uint8
}

// NewQosControl returns a normal-ack control field for tid.
func NewQosControl(tid uint8) QosControl {
	return QosControl{TID: tid & 0x0F}
}

func (c QosControl) Uint16() uint16 {
	v := uint16(c.TID & 0x0F)
	if c.EOSP {
		v |= 1 << 4
	}
	v |= uint16(c.AckPolicy&0x03) << 5
	if c.AMSDUPresent {
		v |= 1 << 7
	}
	v |= uint16(c.TXOPOrQueue) << 8
	return v
}

// ParseQosControl decodes a QoS Control field.
func ParseQosControl(v uint16) QosControl {
	return QosControl{
		TID:          uint8(v & 0x0F),
		EOSP:         v&(1<<4) != 0,
		AckPolicy:    AckPolicy(v>>5) & 0x03,
		AMSDUPresent: v&(1<<7) != 0,
		TXOPOrQueue:  uint8(v >> 8),
	}
}
