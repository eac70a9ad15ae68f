package radio

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/lcalzada-xor/wlanctl/internal/telemetry"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/aggregation"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/power"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/qos"
)

// Send classifies an Ethernet frame, converts it to a QoS data frame for
// the current BSS and queues it on its access category.
func (r *Radio) Send(eth []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.associated {
		return ErrNotAssociated
	}
	frame, ok := ieee80211.EthernetToWifi(eth, r.bss.BSSID, true)
	if !ok || len(frame) > aggregation.MaxMPDULength {
		return fmt.Errorf("%w: %d bytes", ErrInvalidFrame, len(eth))
	}

	ac := r.classifier.ClassifyEthernet(eth)
	binary.LittleEndian.PutUint16(frame[ieee80211.BaseHeaderLen:], qos.NewQosControl(ac.TID()).Uint16())

	if !r.queues.Enqueue(ac, frame) {
		telemetry.FramesDropped.WithLabelValues(r.opts.Name, "queue_full").Inc()
		return fmt.Errorf("%w: %s", ErrQueueFull, ac)
	}
	telemetry.FramesQueued.WithLabelValues(r.opts.Name, ac.String()).Inc()
	return nil
}

// Flush runs EDCA contention until every access category is either empty
// or waiting for a Block-Ack, sending one A-MPDU per win. It returns the
// number of A-MPDUs handed to the driver.
func (r *Radio) Flush(ctx context.Context, now uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.associated {
		return 0, ErrNotAssociated
	}

	idle := func(ac qos.AccessCategory) bool {
		ts := r.tx[ac.TID()]
		return ts == nil || !ts.AwaitingBA
	}

	sent := 0
	for {
		ac, ok := r.queues.ContendFunc(idle)
		if !ok {
			return sent, nil
		}
		tid := ac.TID()
		ts := r.txState(tid)

		if ts.PendingCount() == 0 {
			r.queues.Take(ac, r.opts.MaxAggregate, func(frame []byte) bool {
				// Frames queued before a roam still name the old AP.
				copy(frame[4:10], r.bss.BSSID[:])
				return ts.AddMPDU(frame)
			})
		}
		if ts.PendingCount() == 0 {
			return sent, nil
		}

		if err := r.wake(ctx, now); err != nil {
			return sent, err
		}

		idx, _ := r.rate.TxRate()
		mpdus := ts.PendingCount()
		ampdu := ts.BuildAMPDU()
		if err := r.driver.Transmit(ctx, ampdu, idx); err != nil {
			r.stats.TxErrors++
			ts.AwaitingBA = false
			for i := 0; i < mpdus; i++ {
				r.txStatus(idx, false, now)
			}
			if dropped := r.queues.Complete(ac, false); dropped > 0 {
				r.dropPending(ts, "retry_limit")
			}
			return sent, fmt.Errorf("transmit %s A-MPDU: %w", ac, err)
		}

		r.txRate[tid] = idx
		r.txSentAt[tid] = now
		r.stats.AMPDUsSent++
		r.stats.MPDUsSent += uint64(mpdus)
		telemetry.AMPDUsSent.WithLabelValues(r.opts.Name, ac.String()).Inc()
		sent++
	}
}

// wake brings a dozing station back before transmitting. PSM and TWT
// stations announce it with a null frame; a U-APSD uplink frame is itself
// the trigger. Caller holds mu.
func (r *Radio) wake(ctx context.Context, now uint64) error {
	if r.pm.State() == power.StateAwake {
		return nil
	}
	r.pm.Account(now)
	if r.pm.Mode() != power.ModeUAPSD {
		if err := r.sendNull(ctx, false); err != nil {
			return err
		}
	}
	r.pm.WakeUp()
	return nil
}

func (r *Radio) sendNull(ctx context.Context, doze bool) error {
	frame := power.BuildNullDataFrame(true, doze, r.bss.BSSID, r.driver.MAC())
	if err := r.driver.Transmit(ctx, frame[:], 0); err != nil {
		r.stats.TxErrors++
		return fmt.Errorf("transmit null frame: %w", err)
	}
	r.pm.NullFrameSent()
	return nil
}

// HandleBlockAck applies a Block-Ack received for an outstanding A-MPDU.
func (r *Radio) HandleBlockAck(ctx context.Context, ba aggregation.BlockAck, now uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completeBA(ctx, ba, now)
}

// completeBA retires the acknowledged MPDUs of the A-MPDU awaiting ba,
// feeds every MPDU outcome to rate control and reports the exchange to
// EDCA. Once the retry limit discards the remainder a BAR moves the
// recipient's window past them. Caller holds mu.
func (r *Radio) completeBA(ctx context.Context, ba aggregation.BlockAck, now uint64) error {
	tid := ba.Control.TID & (numTIDs - 1)
	ts := r.tx[tid]
	if ts == nil || !ts.AwaitingBA {
		return nil
	}

	seqs := ts.PendingSeqs()
	acked := ts.ProcessBA(ba)
	for _, seq := range seqs {
		ok := ba.AckedAt(int((seq - ba.StartingSeq) & aggregation.SeqMask))
		r.txStatus(r.txRate[tid], ok, now)
	}
	r.stats.MPDUsAcked += uint64(acked)
	telemetry.MPDUsAcked.WithLabelValues(r.opts.Name).Add(float64(acked))

	ac := qos.FromTID(tid)
	left := ts.PendingCount()
	if left == 0 {
		r.queues.Complete(ac, true)
		return nil
	}

	r.stats.MPDUsRetried += uint64(left)
	telemetry.MPDUsRetried.WithLabelValues(r.opts.Name).Add(float64(left))
	if dropped := r.queues.Complete(ac, false); dropped == 0 {
		return nil
	}
	r.dropPending(ts, "retry_limit")

	bar := ts.BlockAckRequest().Frame(r.bss.BSSID, r.driver.MAC())
	if err := r.driver.Transmit(ctx, bar[:], 0); err != nil {
		r.stats.TxErrors++
		return fmt.Errorf("transmit BAR: %w", err)
	}
	r.stats.BARsSent++
	return nil
}

func (r *Radio) dropPending(ts *aggregation.TxState, reason string) {
	n := ts.DropPending()
	r.stats.MPDUsDropped += uint64(n)
	telemetry.FramesDropped.WithLabelValues(r.opts.Name, reason).Add(float64(n))
	r.logger.Debug("dropped MPDUs", "tid", ts.TID, "count", n, "reason", reason)
}

// TxStatus reports the outcome of a single frame sent at rate index idx,
// for exchanges acknowledged outside a Block-Ack.
func (r *Radio) TxStatus(idx int, success bool, now uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txStatus(idx, success, now)
}

func (r *Radio) txStatus(idx int, success bool, now uint64) {
	if r.rate.TxStatus(idx, success, now) {
		telemetry.RateUpdates.WithLabelValues(r.opts.Name).Inc()
	}
}
