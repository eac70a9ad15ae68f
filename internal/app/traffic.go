package app

import (
	"log/slog"
	"math/rand/v2"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
)

// flowProfile is one synthetic uplink flow.
type flowProfile struct {
	name    string
	tos     uint8
	dstPort uint16
	weight  float64
}

// Uplink mix: mostly best effort web traffic with some voice, video and bulk.
var flowMix = []flowProfile{
	{name: "web", tos: 0x00, dstPort: 443, weight: 0.55},
	{name: "voip", tos: 0xB8, dstPort: 5060, weight: 0.15}, // EF
	{name: "video", tos: 0x88, dstPort: 554, weight: 0.2},  // AF41
	{name: "backup", tos: 0x20, dstPort: 873, weight: 0.1}, // CS1
}

// trafficSource generates uplink IPv4/UDP Ethernet frames for a radio.
type trafficSource struct {
	rng     *rand.Rand
	src     domain.MAC
	gateway domain.MAC
	seq     uint32
}

func newTrafficSource(seed uint64, src domain.MAC) *trafficSource {
	return &trafficSource{
		rng:     rand.New(rand.NewPCG(seed, seed+1)),
		src:     src,
		gateway: domain.MAC{0x02, 0x00, 0x5e, 0x00, 0x00, 0x01},
	}
}

func (t *trafficSource) pick() flowProfile {
	r := t.rng.Float64()
	for _, f := range flowMix {
		if r < f.weight {
			return f
		}
		r -= f.weight
	}
	return flowMix[0]
}

// Burst returns between zero and limit frames.
func (t *trafficSource) Burst(limit int) [][]byte {
	n := t.rng.IntN(limit + 1)
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		frame, err := t.frame(t.pick())
		if err != nil {
			slog.Debug("traffic: serialize failed", "error", err)
			continue
		}
		out = append(out, frame)
	}
	return out
}

func (t *trafficSource) frame(f flowProfile) ([]byte, error) {
	t.seq++
	eth := &layers.Ethernet{
		SrcMAC:       t.src.HardwareAddr(),
		DstMAC:       t.gateway.HardwareAddr(),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		TOS:      f.tos,
		Id:       uint16(t.seq),
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{10, 0, 0, 2},
		DstIP:    net.IP{192, 0, 2, 10},
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(40000 + t.seq%1000), DstPort: layers.UDPPort(f.dstPort)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	payload := make([]byte, 64+t.rng.IntN(1200))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
