package radio

import (
	"context"
	"errors"
	"fmt"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/core/ports"
	"github.com/lcalzada-xor/wlanctl/internal/telemetry"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/aggregation"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/power"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/qos"
)

// Receive processes a frame from the driver: Block-Acks complete
// transmissions, beacons feed roaming and power save, and data frames are
// reordered per TID and delivered to the sink as Ethernet frames.
func (r *Radio) Receive(ctx context.Context, f ports.RxFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !f.Aggregated {
		return r.receiveMPDU(ctx, f.Data, f.RSSI, f.Timestamp)
	}
	var errs error
	for _, mpdu := range aggregation.ParseAMPDU(f.Data) {
		errs = errors.Join(errs, r.receiveMPDU(ctx, mpdu, f.RSSI, f.Timestamp))
	}
	return errs
}

func (r *Radio) receiveMPDU(ctx context.Context, data []byte, rssi int8, now uint64) error {
	fc, ok := ieee80211.PeekFrameControl(data)
	if !ok {
		r.stats.RxMalformed++
		return nil
	}
	switch fc.Type {
	case ieee80211.TypeControl:
		return r.receiveControl(ctx, fc, data, now)
	case ieee80211.TypeManagement:
		return r.receiveManagement(ctx, fc, data, rssi, now)
	case ieee80211.TypeData:
		return r.receiveData(ctx, data, now)
	}
	return nil
}

func (r *Radio) fromBSS(ta domain.MAC) bool {
	return r.associated && ta == r.bss.BSSID
}

func (r *Radio) receiveControl(ctx context.Context, fc ieee80211.FrameControl, data []byte, now uint64) error {
	switch fc.Subtype {
	case ieee80211.SubtypeBlockAck:
		ba, _, ta, ok := aggregation.ParseBlockAck(data)
		if !ok {
			r.stats.RxMalformed++
			return nil
		}
		if !r.fromBSS(ta) {
			r.stats.RxForeign++
			return nil
		}
		return r.completeBA(ctx, ba, now)

	case ieee80211.SubtypeBlockAckReq:
		req, _, ta, ok := aggregation.ParseBlockAckRequest(data)
		if !ok {
			r.stats.RxMalformed++
			return nil
		}
		if !r.fromBSS(ta) {
			r.stats.RxForeign++
			return nil
		}
		rx := r.rxState(req.Control.TID)
		r.deliver(rx.HandleBAR(req.StartingSeq))
		resp := rx.BuildBA().Frame(ta, r.driver.MAC())
		if err := r.driver.Transmit(ctx, resp[:], 0); err != nil {
			r.stats.TxErrors++
			return fmt.Errorf("transmit Block-Ack: %w", err)
		}
	}
	return nil
}

func (r *Radio) receiveManagement(ctx context.Context, fc ieee80211.FrameControl, data []byte, rssi int8, now uint64) error {
	switch fc.Subtype {
	case ieee80211.SubtypeBeacon:
		h, beacon, ok := ieee80211.ParseBeacon(data)
		if !ok {
			r.stats.RxMalformed++
			return nil
		}
		if !r.fromBSS(h.Address3) {
			return nil
		}
		return r.onBeacon(ctx, beacon, rssi, now)

	case ieee80211.SubtypeDeauth, ieee80211.SubtypeDisassoc:
		h, _, ok := ieee80211.Parse(data)
		if !ok {
			r.stats.RxMalformed++
			return nil
		}
		if r.fromBSS(h.Address2) && (h.Address1 == r.driver.MAC() || h.Address1 == domain.BroadcastMAC) {
			r.dropAssociation("deauthenticated by AP")
		}
	}
	return nil
}

// onBeacon refreshes link supervision, EDCA parameters and the TIM.
// Caller holds mu.
func (r *Radio) onBeacon(ctx context.Context, b ieee80211.Beacon, rssi int8, now uint64) error {
	r.stats.Beacons++
	r.lastBeacon = now
	r.missed = 0
	r.bss.Signal = rssi
	r.roam.UpdateSignal(rssi, now)
	telemetry.SignalStrength.WithLabelValues(r.opts.Name).Set(float64(rssi))
	if b.Interval > 0 {
		r.beaconIntervalMs = tuToMs(b.Interval)
	}

	if wmm, err := qos.FindWmmParamElement(b.IEs); err == nil && wmm.Info.QoSInfo&0x0F != r.wmmCount {
		r.applyWmm(wmm)
		r.logger.Info("EDCA parameters updated", "count", r.wmmCount)
	}

	ie, err := ieee80211.FindIE(b.IEs, ieee80211.IETIM)
	if err != nil {
		return nil
	}
	tim, err := power.ParseTIM(ie)
	if err != nil {
		r.stats.RxMalformed++
		return nil
	}
	if !tim.HasBuffered(r.aid) || r.pm.Mode() == power.ModeActive {
		r.pm.SetBufferedAtAP(false)
		return nil
	}
	r.pm.Account(now)
	r.pm.SetBufferedAtAP(true)
	return r.retrieveBuffered(ctx)
}

// retrieveBuffered asks the AP for frames it holds: one PS-Poll per frame
// in legacy power save, a wake announcement otherwise. Caller holds mu.
func (r *Radio) retrieveBuffered(ctx context.Context) error {
	if r.pm.Mode() != power.ModeLegacyPSM {
		return r.sendNull(ctx, false)
	}
	poll := power.BuildPSPollFrame(r.aid, r.bss.BSSID, r.driver.MAC())
	if err := r.driver.Transmit(ctx, poll[:], 0); err != nil {
		r.stats.TxErrors++
		return fmt.Errorf("transmit PS-Poll: %w", err)
	}
	r.stats.PSPolls++
	return nil
}

func (r *Radio) receiveData(ctx context.Context, data []byte, now uint64) error {
	h, _, ok := ieee80211.Parse(data)
	if !ok {
		r.stats.RxMalformed++
		return nil
	}
	if !r.fromBSS(h.Address2) {
		r.stats.RxForeign++
		return nil
	}

	var err error
	if h.FrameControl.MoreData {
		r.pm.SetBufferedAtAP(true)
		if r.pm.Mode() == power.ModeLegacyPSM {
			err = r.retrieveBuffered(ctx)
		}
	} else if r.pm.BufferedAtAP() {
		r.pm.SetBufferedAtAP(false)
	}

	switch h.FrameControl.Subtype {
	case ieee80211.SubtypeNull, ieee80211.SubtypeQoSNull:
		return err
	}
	if h.QoSControl == nil {
		r.deliver([][]byte{data})
		return err
	}
	rx := r.rxState(qos.ParseQosControl(*h.QoSControl).TID)
	before := rx.Stats()
	r.deliver(rx.RxMPDU(h.SequenceNumber(), data, now))
	if after := rx.Stats(); after.OutOfWindow+after.Duplicates > before.OutOfWindow+before.Duplicates {
		telemetry.FramesDropped.WithLabelValues(r.opts.Name, "reorder").Inc()
	}
	return err
}

// deliver converts in-order MPDUs to Ethernet and hands them to the sink.
// A-MSDUs yield one frame per subframe. Caller holds mu.
func (r *Radio) deliver(mpdus [][]byte) {
	for _, mpdu := range mpdus {
		h, n, ok := ieee80211.Parse(mpdu)
		if !ok {
			r.stats.RxMalformed++
			continue
		}
		if h.QoSControl != nil && qos.ParseQosControl(*h.QoSControl).AMSDUPresent {
			for _, m := range aggregation.ParseAMSDU(mpdu[n:]) {
				if eth, ok := ieee80211.LLCToEthernet(m.DA, m.SA, m.Payload); ok {
					r.emit(eth)
				} else {
					r.stats.RxMalformed++
				}
			}
			continue
		}
		eth, ok := ieee80211.WifiToEthernet(mpdu)
		if !ok {
			r.stats.RxMalformed++
			continue
		}
		r.emit(eth)
	}
}

func (r *Radio) emit(eth []byte) {
	r.stats.Delivered++
	telemetry.FramesReceived.WithLabelValues(r.opts.Name).Inc()
	if r.sink != nil {
		r.sink.Deliver(r.opts.Name, eth)
	}
}
