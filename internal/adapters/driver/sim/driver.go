// Package sim is a software radio: a handful of simulated access points of
// one ESS that answer A-MPDUs with Block-Acks, send beacons and push
// downlink traffic. It lets the control plane run without hardware.
package sim

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/core/ports"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/aggregation"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/power"
)

var (
	ErrNotAssociated = errors.New("sim: not associated")
	ErrUnknownBSS    = errors.New("sim: unknown BSS")
	ErrMalformed     = errors.New("sim: malformed frame")
)

var (
	_ ports.Driver      = (*Driver)(nil)
	_ ports.FrameSource = (*Driver)(nil)
)

const (
	frameBacklog = 256
	dtimPeriod   = 3
	// Each rate index step above the most robust one adds this much loss.
	lossPerRate = 0.02
	maxLoss     = 0.95
)

// Options configures the simulated radio.
type Options struct {
	Name             string
	MAC              domain.MAC // zero picks a random locally administered address
	SSID             string
	APs              int
	LossRate         float64 // base MPDU loss probability
	DownlinkRate     float64 // probability of a downlink burst per beacon
	Seed             uint64
	BeaconIntervalMs uint64
	Clock            func() uint64 // ms; defaults to wall time
}

// Stats counts simulator activity.
type Stats struct {
	Transmitted uint64
	MPDUs       uint64
	Lost        uint64
	Beacons     uint64
	Downlink    uint64
	RxDropped   uint64 // frames lost because the consumer fell behind
}

// Driver implements ports.Driver over simulated access points.
type Driver struct {
	opts Options

	mu       sync.Mutex
	gen      *generator
	aps      []*accessPoint
	assoc    *accessPoint
	aid      uint16
	dozing   bool
	dtim     uint8
	frames   chan ports.RxFrame
	closed   bool
	stats    Stats
	downlink uint64 // payload counter
}

// NewDriver creates a simulated radio with opts.APs access points.
func NewDriver(opts Options) *Driver {
	if opts.APs <= 0 {
		opts.APs = 1
	}
	if opts.BeaconIntervalMs == 0 {
		opts.BeaconIntervalMs = 100
	}
	if opts.Clock == nil {
		opts.Clock = func() uint64 { return uint64(time.Now().UnixMilli()) }
	}

	d := &Driver{
		opts:   opts,
		gen:    newGenerator(opts.Seed),
		frames: make(chan ports.RxFrame, frameBacklog),
	}
	if d.opts.MAC == (domain.MAC{}) {
		d.opts.MAC = d.gen.mac()
		d.opts.MAC[0] = 0x02
	}
	for i := 0; i < opts.APs; i++ {
		d.aps = append(d.aps, d.gen.newAP(opts.SSID))
	}
	return d
}

func (d *Driver) Name() string    { return d.opts.Name }
func (d *Driver) MAC() domain.MAC { return d.opts.MAC }

// Frames returns the receive channel. It is closed when Run returns.
func (d *Driver) Frames() <-chan ports.RxFrame { return d.frames }

// Run emits beacons and downlink traffic every beacon interval until ctx
// is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(d.opts.BeaconIntervalMs) * time.Millisecond)
	defer ticker.Stop()
	defer d.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Step()
		}
	}
}

func (d *Driver) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.frames)
	}
}

// Step advances the simulation by one beacon interval.
func (d *Driver) Step() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ap := range d.aps {
		d.gen.drift(ap, 2)
	}
	if d.assoc == nil {
		return
	}

	if d.dtim == 0 {
		d.dtim = dtimPeriod
	}
	d.dtim--

	if d.gen.rand.Float64() < d.opts.DownlinkRate {
		d.downlinkBurst()
	}

	// Beacons share the channel with data and get lost the same way.
	if d.gen.rand.Float64() < d.opts.LossRate {
		return
	}
	d.stats.Beacons++
	d.push(d.beacon(), false)
}

func (d *Driver) beacon() []byte {
	ap := d.assoc
	var tim power.TIM
	if len(ap.buffered) > 0 {
		tim = power.NewTIM(d.dtim, dtimPeriod, false, d.aid)
	} else {
		tim = power.NewTIM(d.dtim, dtimPeriod, false)
	}
	ies := slices.Clone(ap.bss.IEs)
	ies = append(ies, tim.Element().Bytes()...)
	return ieee80211.BuildBeacon(ap.bss.BSSID, ieee80211.Beacon{
		Timestamp:  d.opts.Clock() * 1000,
		Interval:   ap.bss.BeaconInterval,
		Capability: ap.bss.Capability,
		IEs:        ies,
	})
}

// downlinkBurst sends one to four QoS data frames of one TID as an A-MPDU,
// losing some of them on the way. A dozing station gets them buffered.
func (d *Driver) downlinkBurst() {
	ap := d.assoc
	tid := [...]uint8{0, 0, 5, 6}[d.gen.rand.IntN(4)]
	n := 1 + d.gen.rand.IntN(4)

	var mpdus [][]byte
	for i := 0; i < n; i++ {
		frame := d.downlinkFrame(ap, tid)
		d.stats.Downlink++
		if d.dozing {
			ap.buffered = append(ap.buffered, frame)
			continue
		}
		if d.gen.rand.Float64() < d.opts.LossRate {
			d.stats.Lost++
			continue
		}
		mpdus = append(mpdus, frame)
	}
	if len(mpdus) > 0 {
		d.push(buildAMPDU(mpdus), true)
	}
}

func (d *Driver) downlinkFrame(ap *accessPoint, tid uint8) []byte {
	d.downlink++
	eth := make([]byte, 14, 14+64)
	copy(eth[0:6], d.opts.MAC[:])
	copy(eth[6:12], ap.bss.BSSID[:])
	binary.BigEndian.PutUint16(eth[12:14], 0x0800)
	eth = binary.BigEndian.AppendUint64(eth, d.downlink)
	eth = append(eth, make([]byte, 56)...)

	frame, _ := ieee80211.EthernetToWifi(eth, ap.bss.BSSID, false)
	binary.LittleEndian.PutUint16(frame[22:24], ap.seq[tid]<<4)
	binary.LittleEndian.PutUint16(frame[24:26], uint16(tid))
	ap.seq[tid] = (ap.seq[tid] + 1) & aggregation.SeqMask
	return frame
}

func buildAMPDU(mpdus [][]byte) []byte {
	var out []byte
	for _, m := range mpdus {
		delim := aggregation.NewDelimiter(uint16(len(m))).Bytes()
		out = append(out, delim[:]...)
		out = append(out, m...)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
	}
	return out
}

// push queues a frame for the consumer without blocking. Caller holds mu.
func (d *Driver) push(data []byte, aggregated bool) {
	if d.closed || d.assoc == nil {
		return
	}
	select {
	case d.frames <- ports.RxFrame{
		Data:       data,
		RSSI:       d.assoc.bss.Signal,
		Timestamp:  d.opts.Clock(),
		Aggregated: aggregated,
	}:
	default:
		d.stats.RxDropped++
	}
}

// Transmit delivers frame to the associated AP, which answers A-MPDUs and
// BARs with a Block-Ack and reacts to power management signalling.
func (d *Driver) Transmit(ctx context.Context, frame []byte, rateIdx int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.assoc == nil {
		return ErrNotAssociated
	}
	d.stats.Transmitted++

	if delim, ok := aggregation.ParseDelimiter(frame); ok && delim.IsValid() {
		d.receiveAMPDU(frame, rateIdx)
		return nil
	}

	fc, ok := ieee80211.PeekFrameControl(frame)
	if !ok {
		return fmt.Errorf("%w: %d bytes", ErrMalformed, len(frame))
	}
	switch {
	case fc.Type == ieee80211.TypeControl && fc.Subtype == ieee80211.SubtypeBlockAckReq:
		req, _, _, ok := aggregation.ParseBlockAckRequest(frame)
		if !ok {
			return fmt.Errorf("%w: block ack request", ErrMalformed)
		}
		ba := aggregation.NewBlockAck(req.Control.TID, req.StartingSeq)
		resp := ba.Frame(d.opts.MAC, d.assoc.bss.BSSID)
		d.push(resp[:], false)
	case fc.Type == ieee80211.TypeControl && fc.Subtype == ieee80211.SubtypePSPoll:
		d.releaseBuffered(1)
	case fc.Type == ieee80211.TypeData && fc.Subtype == ieee80211.SubtypeNull:
		d.dozing = fc.PowerManagement
		if !d.dozing {
			d.releaseBuffered(len(d.assoc.buffered))
		}
	case fc.Type == ieee80211.TypeData:
		d.stats.MPDUs++
	}
	return nil
}

// releaseBuffered delivers up to n buffered frames, flagging More Data on
// all but the last one still held.
func (d *Driver) releaseBuffered(n int) {
	ap := d.assoc
	for i := 0; i < n && len(ap.buffered) > 0; i++ {
		frame := ap.buffered[0]
		ap.buffered = ap.buffered[1:]
		if len(ap.buffered) > 0 {
			frame[1] |= 0x20
		}
		d.push(frame, false)
	}
}

func (d *Driver) receiveAMPDU(ampdu []byte, rateIdx int) {
	loss := min(d.opts.LossRate+lossPerRate*float64(max(rateIdx, 0)), maxLoss)

	var ba *aggregation.BlockAck
	for _, mpdu := range aggregation.ParseAMPDU(ampdu) {
		h, _, ok := ieee80211.Parse(mpdu)
		if !ok {
			continue
		}
		d.stats.MPDUs++
		seq := h.SequenceNumber()
		if ba == nil {
			b := aggregation.NewBlockAck(h.TID(), seq)
			ba = &b
		}
		if d.gen.rand.Float64() < loss {
			d.stats.Lost++
			continue
		}
		// 12-bit distance so a window spanning the sequence wrap still maps.
		if off := int((seq - ba.StartingSeq) & aggregation.SeqMask); off < aggregation.WindowSize {
			ba.Bitmap[off/8] |= 1 << (off % 8)
		}
	}
	if ba != nil {
		resp := ba.Frame(d.opts.MAC, d.assoc.bss.BSSID)
		d.push(resp[:], false)
	}
}

// Scan returns every simulated AP with a fresh signal reading.
func (d *Driver) Scan(ctx context.Context) ([]domain.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.opts.Clock()
	out := make([]domain.ScanResult, 0, len(d.aps))
	for _, ap := range d.aps {
		d.gen.drift(ap, 3)
		ap.bss.LastSeen = now
		ap.bss.SeenCount++
		bss := ap.bss
		bss.IEs = slices.Clone(ap.bss.IEs)
		out = append(out, bss)
	}
	return out, nil
}

// Connect associates with the AP whose BSSID matches bss.
func (d *Driver) Connect(ctx context.Context, bss domain.ScanResult) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ap := range d.aps {
		if ap.bss.BSSID == bss.BSSID {
			d.assoc = ap
			d.aid = uint16(1 + d.gen.rand.IntN(2007))
			d.dozing = false
			// A new association starts every TID's session at sequence 0.
			ap.seq = [16]uint16{}
			ap.buffered = nil
			return d.aid, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownBSS, bss.BSSID)
}

func (d *Driver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assoc = nil
	d.aid = 0
	return nil
}

// SetSignal pins the signal of an AP, returning false if it does not exist.
func (d *Driver) SetSignal(bssid domain.MAC, signal int8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ap := range d.aps {
		if ap.bss.BSSID == bssid {
			ap.bss.Signal = signal
			return true
		}
	}
	return false
}

// Stats returns a copy of the counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
