package app

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// logSink is the upper layer of the simulated stack: it decodes delivered
// frames and logs them at debug level.
type logSink struct {
	delivered atomic.Uint64
}

func (s *logSink) Deliver(radio string, eth []byte) {
	s.delivered.Add(1)
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	pkt := gopacket.NewPacket(eth, layers.LayerTypeEthernet, gopacket.NoCopy)
	l, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		slog.Debug("delivered undecodable frame", "radio", radio, "len", len(eth))
		return
	}
	slog.Debug("delivered",
		"radio", radio,
		"src", l.SrcMAC.String(),
		"dst", l.DstMAC.String(),
		"type", l.EthernetType.String(),
		"len", len(eth),
	)
}

// Delivered returns the number of frames handed to the sink.
func (s *logSink) Delivered() uint64 { return s.delivered.Load() }
