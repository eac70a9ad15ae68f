package radio

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lcalzada-xor/wlanctl/internal/telemetry"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/aggregation"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/power"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/roaming"
)

// Tick runs the periodic duties of the radio: reorder timeouts, Block-Ack
// timeouts, beacon loss supervision, roam evaluation and dozing when idle.
func (r *Radio) Tick(ctx context.Context, now uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rx := range r.rx {
		if rx != nil {
			r.deliver(rx.FlushExpired(now))
		}
	}
	defer r.observe(now)
	if !r.associated {
		return nil
	}

	var errs error
	for tid, ts := range r.tx {
		if ts == nil || !ts.AwaitingBA || now < r.txSentAt[tid]+r.opts.BlockAckTimeoutMs {
			continue
		}
		r.stats.BATimeouts++
		errs = errors.Join(errs, r.completeBA(ctx, aggregation.NewBlockAck(uint8(tid), ts.SSN), now))
	}

	if n := r.missedBeacons(now); n > r.missed {
		for ; r.missed < n; r.missed++ {
			r.roam.BeaconMissed()
		}
		r.logger.Debug("beacons missed", "count", r.roam.BeaconMisses())
	}

	switch {
	case r.roam.BeaconLost() && r.opts.Roaming.Enabled:
		errs = errors.Join(errs, r.roamLocked(ctx, now))
	case r.roam.ShouldBackgroundScan(now):
		r.roam.StartBackgroundScan(now)
		errs = errors.Join(errs, r.roamLocked(ctx, now))
	case r.roam.State() == roaming.StateEvaluating && (!r.scanned || now >= r.lastScan+minScanIntervalMs):
		errs = errors.Join(errs, r.roamLocked(ctx, now))
	}

	if r.associated {
		errs = errors.Join(errs, r.dozeIfIdle(ctx, now))
	}
	return errs
}

// missedBeacons is the number of beacon intervals elapsed since the last
// beacon, allowing half an interval of jitter.
func (r *Radio) missedBeacons(now uint64) uint64 {
	iv := r.beaconIntervalMs
	elapsed := now - r.lastBeacon
	if now < r.lastBeacon || elapsed <= iv/2 {
		return 0
	}
	return (elapsed - iv/2) / iv
}

// BeaconMissed records a beacon the driver knows was lost and starts a
// roam once the loss threshold is reached.
func (r *Radio) BeaconMissed(ctx context.Context, now uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.associated {
		return ErrNotAssociated
	}
	r.roam.BeaconMissed()
	if r.roam.BeaconLost() {
		return r.roamLocked(ctx, now)
	}
	return nil
}

// Roam scans and evaluates the candidates right away, then connects to the
// chosen BSS or disconnects after beacon loss. It returns the decision.
func (r *Radio) Roam(ctx context.Context, now uint64) (roaming.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.associated {
		return roaming.Decision{}, ErrNotAssociated
	}
	d, err := r.evaluate(ctx, now)
	if err != nil {
		return d, err
	}
	return d, r.apply(ctx, d, now)
}

func (r *Radio) roamLocked(ctx context.Context, now uint64) error {
	d, err := r.evaluate(ctx, now)
	if err != nil {
		return err
	}
	return r.apply(ctx, d, now)
}

// evaluate scans inside a span and runs the roaming decision. Caller holds mu.
func (r *Radio) evaluate(ctx context.Context, now uint64) (roaming.Decision, error) {
	ctx, span := r.tracer.Start(ctx, "roam.evaluate", trace.WithAttributes(
		attribute.String("radio", r.opts.Name),
		attribute.String("bssid", r.bss.BSSID.String()),
		attribute.String("state", r.roam.State().String()),
	))
	defer span.End()

	r.scanned, r.lastScan = true, now
	results, err := r.driver.Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return roaming.Decision{}, fmt.Errorf("scan: %w", err)
	}

	d := r.roam.EvaluateCandidates(results, now)
	reason := "none"
	if d.Action != roaming.ActionStay {
		reason = d.Reason.String()
	}
	telemetry.RoamDecisions.WithLabelValues(r.opts.Name, d.Action.String(), reason).Inc()
	span.SetAttributes(
		attribute.Int("candidates", len(results)),
		attribute.String("action", d.Action.String()),
		attribute.String("reason", reason),
	)
	return d, nil
}

// apply carries out a decision. Caller holds mu.
func (r *Radio) apply(ctx context.Context, d roaming.Decision, now uint64) error {
	switch d.Action {
	case roaming.ActionRoam:
		return r.transition(ctx, d, now)
	case roaming.ActionDisconnect:
		if err := r.driver.Disconnect(ctx); err != nil {
			return fmt.Errorf("disconnect: %w", err)
		}
		r.dropAssociation(d.Reason.String())
	}
	return nil
}

// transition reassociates with d.Target, announcing it over the DS first
// when both APs share a mobility domain. Caller holds mu.
func (r *Radio) transition(ctx context.Context, d roaming.Decision, now uint64) error {
	ctx, span := r.tracer.Start(ctx, "roam.transition", trace.WithAttributes(
		attribute.String("radio", r.opts.Name),
		attribute.String("from", r.bss.BSSID.String()),
		attribute.String("to", d.Target.BSSID.String()),
		attribute.String("reason", d.Reason.String()),
	))
	defer span.End()

	target := d.Target
	from := r.bss.BSSID
	ft, hasFT := r.roam.FtInfo()
	useFT := hasFT && r.opts.Roaming.FastTransition && ft.OverDS() && ft.SameMobilityDomain(target)
	if useFT {
		frame := roaming.BuildFTRequestFrame(r.driver.MAC(), from, target.BSSID, ft)
		if err := r.driver.Transmit(ctx, frame, 0); err != nil {
			r.stats.TxErrors++
			r.logger.Warn("FT request failed, falling back to reassociation", "error", err)
			useFT = false
		} else {
			r.stats.FTRequests++
		}
	}
	span.SetAttributes(attribute.Bool("ft_over_ds", useFT))

	r.roam.RoamStarted(now)
	aid, err := r.driver.Connect(ctx, target)
	if err != nil {
		r.roam.RoamCompleted(false, nil, now)
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
		return fmt.Errorf("connect %s: %w", target.BSSID, err)
	}
	r.roam.RoamCompleted(true, &target, now)
	r.setBSS(target, aid, now)

	r.logger.Info("roamed", "from", from.String(), "to", target.BSSID.String(),
		"reason", d.Reason.String(), "signal", target.Signal, "ft", useFT)
	return nil
}

// dozeIfIdle announces power save and dozes once nothing is queued, in
// flight or buffered at the AP. Caller holds mu.
func (r *Radio) dozeIfIdle(ctx context.Context, now uint64) error {
	if r.pm.Mode() == power.ModeActive || r.pm.State() != power.StateAwake {
		return nil
	}
	if r.queues.Len() > 0 || r.pm.BufferedAtAP() {
		return nil
	}
	for _, ts := range r.tx {
		if ts != nil && ts.PendingCount() > 0 {
			return nil
		}
	}

	r.pm.Account(now)
	if err := r.sendNull(ctx, true); err != nil {
		return err
	}
	r.pm.EnterDoze()
	return nil
}

// observe accounts power state time and refreshes the gauges. Caller holds mu.
func (r *Radio) observe(now uint64) {
	r.pm.Account(now)
	telemetry.PowerState.WithLabelValues(r.opts.Name).Set(float64(r.pm.State()))
}
