// Package radio ties the protocol engines of one station interface
// together: it owns the per-TID aggregation state, the EDCA queues, rate
// control, roaming and power management of a radio and drives them through
// a ports.Driver.
package radio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/core/ports"
	"github.com/lcalzada-xor/wlanctl/internal/telemetry"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/aggregation"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/power"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/qos"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ratecontrol"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/roaming"
)

var (
	ErrNotAssociated = errors.New("radio: not associated")
	ErrNoNetwork     = errors.New("radio: no matching network")
	ErrInvalidFrame  = errors.New("radio: invalid frame")
	ErrQueueFull     = errors.New("radio: queue full")
)

const (
	numTIDs = 16

	defaultBlockAckTimeoutMs = 50
	defaultBeaconIntervalMs  = 102
	// Low-signal evaluations are not repeated more often than this.
	minScanIntervalMs = 1000
)

// Options configures a Radio. Zero values select the engine defaults.
type Options struct {
	Name              string
	SSID              string
	PowerMode         power.Mode
	Rate              ratecontrol.Selector // nil selects Minstrel
	RateUpdateMs      uint64
	AMPDUExponent     uint8
	MaxAggregate      int // MPDUs per A-MPDU
	QueueDepth        int
	BlockAckTimeoutMs uint64
	Roaming           roaming.Config
	Seed              uint64
}

// Stats counts radio level events. Engine counters live in their own
// statistics and are reported by Snapshot.
type Stats struct {
	AMPDUsSent   uint64 `json:"ampdus_sent"`
	MPDUsSent    uint64 `json:"mpdus_sent"`
	MPDUsAcked   uint64 `json:"mpdus_acked"`
	MPDUsRetried uint64 `json:"mpdus_retried"`
	MPDUsDropped uint64 `json:"mpdus_dropped"`
	BATimeouts   uint64 `json:"ba_timeouts"`
	BARsSent     uint64 `json:"bars_sent"`
	TxErrors     uint64 `json:"tx_errors"`
	Delivered    uint64 `json:"delivered"`
	Beacons      uint64 `json:"beacons"`
	PSPolls      uint64 `json:"ps_polls"`
	FTRequests   uint64 `json:"ft_requests"`
	RxMalformed  uint64 `json:"rx_malformed"`
	RxForeign    uint64 `json:"rx_foreign"`
}

// Radio is the control plane context of one station interface. Every
// exported method takes the radio lock, so frames of a radio are processed
// one at a time while separate radios run in parallel.
type Radio struct {
	opts   Options
	driver ports.Driver
	sink   ports.FrameSink
	logger *slog.Logger
	tracer trace.Tracer

	mu         sync.Mutex
	classifier qos.TrafficClassifier
	queues     *qos.TxQueues
	tx         [numTIDs]*aggregation.TxState
	rx         [numTIDs]*aggregation.RxState
	txRate     [numTIDs]int
	txSentAt   [numTIDs]uint64
	rate       ratecontrol.Selector
	roam       *roaming.Manager
	pm         *power.Manager

	associated bool
	bss        domain.ScanResult
	aid        uint16
	wmmCount   uint8

	lastBeacon       uint64
	beaconIntervalMs uint64
	missed           uint64
	lastScan         uint64
	scanned          bool

	stats Stats
}

// New creates a radio driving d. Delivered frames go to sink, which may be nil.
func New(opts Options, d ports.Driver, sink ports.FrameSink) *Radio {
	if opts.Name == "" {
		opts.Name = d.Name()
	}
	if opts.MaxAggregate <= 0 || opts.MaxAggregate > aggregation.WindowSize {
		opts.MaxAggregate = aggregation.WindowSize
	}
	if opts.BlockAckTimeoutMs == 0 {
		opts.BlockAckTimeoutMs = defaultBlockAckTimeoutMs
	}

	rate := opts.Rate
	if rate == nil {
		rc := ratecontrol.New()
		if opts.RateUpdateMs > 0 {
			rc.UpdateIntervalMs = opts.RateUpdateMs
		}
		rate = rc
	}

	pm := power.NewManager()
	pm.SetMode(opts.PowerMode)

	return &Radio{
		opts:             opts,
		driver:           d,
		sink:             sink,
		logger:           slog.Default().With("radio", opts.Name),
		tracer:           telemetry.Tracer("radio"),
		classifier:       qos.NewTrafficClassifier(),
		queues:           qos.NewTxQueues(rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5DEECE66D)), opts.QueueDepth),
		rate:             rate,
		roam:             roaming.NewManager(opts.Roaming),
		pm:               pm,
		beaconIntervalMs: defaultBeaconIntervalMs,
	}
}

func (r *Radio) Name() string { return r.opts.Name }

// Associated reports whether the radio is joined to a BSS.
func (r *Radio) Associated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.associated
}

// Join scans and associates with the best scoring BSS of the configured SSID.
func (r *Radio) Join(ctx context.Context, now uint64) (domain.ScanResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results, err := r.driver.Scan(ctx)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("scan: %w", err)
	}

	var best domain.ScanResult
	found, bestScore := false, 0
	for _, bss := range results {
		if bss.SSID != r.opts.SSID {
			continue
		}
		if s := r.roam.ScoreCandidate(bss); !found || s > bestScore {
			best, bestScore, found = bss, s, true
		}
	}
	if !found {
		return domain.ScanResult{}, fmt.Errorf("%w: %q", ErrNoNetwork, r.opts.SSID)
	}

	aid, err := r.driver.Connect(ctx, best)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("connect %s: %w", best.BSSID, err)
	}
	r.setBSS(best, aid, now)
	r.logger.Info("associated", "bssid", best.BSSID.String(), "ssid", best.SSID,
		"channel", best.Channel(), "signal", best.Signal, "aid", aid)
	return best, nil
}

// Disassociate leaves the current BSS. Queued frames are kept for the next
// association.
func (r *Radio) Disassociate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.associated {
		return ErrNotAssociated
	}
	if err := r.driver.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	r.dropAssociation("requested")
	return nil
}

// setBSS installs a new association. Caller holds mu.
func (r *Radio) setBSS(bss domain.ScanResult, aid uint16, now uint64) {
	r.requeueInFlight()

	r.associated = true
	r.bss = bss
	r.aid = aid
	r.roam.SetCurrentBSS(bss)
	r.roam.UpdateSignal(bss.Signal, now)

	r.lastBeacon = now
	r.missed = 0
	r.beaconIntervalMs = tuToMs(bss.BeaconInterval)

	if wmm, err := qos.FindWmmParamElement(bss.IEs); err == nil {
		r.applyWmm(wmm)
	}

	r.pm.Account(now)
	r.pm.SetBufferedAtAP(false)
	r.pm.SetMode(r.opts.PowerMode)
	r.pm.WakeUp()
}

// dropAssociation forgets the BSS. Caller holds mu.
func (r *Radio) dropAssociation(reason string) {
	r.requeueInFlight()
	r.associated = false
	r.bss = domain.ScanResult{}
	r.aid = 0
	r.roam.ClearCurrentBSS()
	telemetry.SignalStrength.DeleteLabelValues(r.opts.Name)
	r.logger.Warn("association lost", "reason", reason)
}

// requeueInFlight puts every unacknowledged MPDU back at the head of its
// queue and resets the Block-Ack sessions. A new agreement restarts the
// sequence space. Caller holds mu.
func (r *Radio) requeueInFlight() {
	for tid, ts := range r.tx {
		if ts == nil {
			continue
		}
		ac := qos.FromTID(uint8(tid))
		if frames := ts.Pending(); len(frames) > 0 {
			q := r.queues.Queue(ac)
			q.Pending = append(frames, q.Pending...)
		}
		r.queues.Complete(ac, true)
	}
	r.tx = [numTIDs]*aggregation.TxState{}
	r.rx = [numTIDs]*aggregation.RxState{}
}

// applyWmm installs the AP's EDCA parameters. Caller holds mu.
func (r *Radio) applyWmm(wmm qos.WmmParamElement) {
	r.queues.ApplyParams(wmm)
	r.wmmCount = wmm.Info.QoSInfo & 0x0F
}

func (r *Radio) txState(tid uint8) *aggregation.TxState {
	tid &= numTIDs - 1
	if r.tx[tid] == nil {
		r.tx[tid] = aggregation.NewTxState(tid, r.opts.AMPDUExponent, 0)
	}
	return r.tx[tid]
}

func (r *Radio) rxState(tid uint8) *aggregation.RxState {
	tid &= numTIDs - 1
	if r.rx[tid] == nil {
		r.rx[tid] = aggregation.NewRxState(tid)
	}
	return r.rx[tid]
}

// tuToMs converts time units (1024 us) to milliseconds.
func tuToMs(tu uint16) uint64 {
	if tu == 0 {
		return defaultBeaconIntervalMs
	}
	return max(uint64(tu)*1024/1000, 1)
}
