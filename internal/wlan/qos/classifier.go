package qos

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	ipProtoTCP = 6
	ipProtoUDP = 17
	ipv6HdrLen = 40
)

// TrafficClassifier picks an access category for outgoing IP traffic.
// DSCP takes precedence; unmarked traffic (DSCP 0) falls back to the
// destination port when UsePorts is set.
type TrafficClassifier struct {
	UseDSCP  bool
	UsePorts bool
}

func NewTrafficClassifier() TrafficClassifier {
	return TrafficClassifier{UseDSCP: true, UsePorts: true}
}

// DSCPToAC maps a DSCP code point to its category.
func DSCPToAC(dscp uint8) AccessCategory {
	switch {
	case dscp == 46: // EF
		return Voice
	case dscp >= 16 && dscp <= 39: // AF2x-AF4x, CS2-CS4
		return Video
	case dscp >= 8 && dscp <= 15: // CS1, AF1x
		return Background
	default:
		return BestEffort
	}
}

// PortToAC maps a well-known destination port to its category.
func PortToAC(port uint16) AccessCategory {
	switch {
	case port == 5060, port == 5061, port >= 16384 && port <= 32767: // SIP, RTP
		return Voice
	case port == 554, port == 1935, port == 8554: // RTSP, RTMP
		return Video
	case port == 20, port == 21: // FTP
		return Background
	default:
		return BestEffort
	}
}

// Classify inspects a raw IPv4 or IPv6 header (with the transport header
// following it for port classification). Headers shorter than 20 bytes are
// BestEffort.
func (c TrafficClassifier) Classify(ip []byte) AccessCategory {
	if len(ip) < 20 {
		return BestEffort
	}
	version := ip[0] >> 4
	if version != 4 && version != 6 {
		return BestEffort
	}

	if c.UseDSCP {
		var dscp uint8
		if version == 4 {
			dscp = ip[1] >> 2
		} else {
			tc := (ip[0]&0x0F)<<4 | ip[1]>>4
			dscp = tc >> 2
		}
		if dscp != 0 {
			return DSCPToAC(dscp)
		}
	}

	if c.UsePorts {
		if port, ok := rawDstPort(ip, version); ok {
			return PortToAC(port)
		}
	}
	return BestEffort
}

func rawDstPort(ip []byte, version uint8) (uint16, bool) {
	var proto uint8
	var hdrLen int
	if version == 4 {
		proto = ip[9]
		hdrLen = int(ip[0]&0x0F) * 4
		if hdrLen < 20 {
			return 0, false
		}
	} else {
		proto = ip[6]
		hdrLen = ipv6HdrLen
	}
	if proto != ipProtoTCP && proto != ipProtoUDP {
		return 0, false
	}
	if len(ip) < hdrLen+4 {
		return 0, false
	}
	return uint16(ip[hdrLen+2])<<8 | uint16(ip[hdrLen+3]), true
}

// ClassifyPacket classifies a decoded packet. An 802.1Q priority is used
// for unmarked traffic before falling back to ports.
func (c TrafficClassifier) ClassifyPacket(pkt gopacket.Packet) AccessCategory {
	if c.UseDSCP {
		var dscp uint8
		if l := pkt.Layer(layers.LayerTypeIPv4); l != nil {
			dscp = l.(*layers.IPv4).TOS >> 2
		} else if l := pkt.Layer(layers.LayerTypeIPv6); l != nil {
			dscp = l.(*layers.IPv6).TrafficClass >> 2
		}
		if dscp != 0 {
			return DSCPToAC(dscp)
		}
	}

	if l := pkt.Layer(layers.LayerTypeDot1Q); l != nil {
		if pcp := l.(*layers.Dot1Q).Priority; pcp != 0 {
			return FromUserPriority(pcp)
		}
	}

	if c.UsePorts {
		if l := pkt.Layer(layers.LayerTypeTCP); l != nil {
			return PortToAC(uint16(l.(*layers.TCP).DstPort))
		}
		if l := pkt.Layer(layers.LayerTypeUDP); l != nil {
			return PortToAC(uint16(l.(*layers.UDP).DstPort))
		}
	}
	return BestEffort
}

// ClassifyEthernet decodes an Ethernet II frame and classifies its payload.
func (c TrafficClassifier) ClassifyEthernet(eth []byte) AccessCategory {
	pkt := gopacket.NewPacket(eth, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	return c.ClassifyPacket(pkt)
}
