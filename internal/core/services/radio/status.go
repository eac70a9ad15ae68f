package radio

import (
	"github.com/lcalzada-xor/wlanctl/internal/wlan/aggregation"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/power"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/qos"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/roaming"
)

// Status is a point-in-time view of a radio for the API.
type Status struct {
	Name       string `json:"name"`
	MAC        string `json:"mac"`
	Associated bool   `json:"associated"`
	BSSID      string `json:"bssid,omitempty"`
	SSID       string `json:"ssid,omitempty"`
	Channel    int    `json:"channel,omitempty"`
	Signal     int8   `json:"signal,omitempty"`
	AID        uint16 `json:"aid,omitempty"`

	TxRate     string              `json:"tx_rate"`
	Queued     int                 `json:"queued"`
	QueueStats qos.QueueStats      `json:"queue_stats"`
	AwaitingBA []int               `json:"awaiting_ba,omitempty"`
	BufferedRx int                 `json:"buffered_rx"`
	Reorder    aggregation.RxStats `json:"reorder"`
	RoamState  string              `json:"roam_state"`
	RoamStats  roaming.Stats       `json:"roam_stats"`
	PowerMode  string              `json:"power_mode"`
	PowerState string              `json:"power_state"`
	PowerStats power.Stats         `json:"power_stats"`
	DutyCycle  float64             `json:"duty_cycle_percent"`
	BeaconMiss uint8               `json:"beacon_misses"`
	Stats      Stats               `json:"stats"`
}

// Snapshot returns the current state of the radio.
func (r *Radio) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, entry := r.rate.TxRate()
	s := Status{
		Name:       r.opts.Name,
		MAC:        r.driver.MAC().String(),
		Associated: r.associated,
		TxRate:     entry.Rate.String(),
		Queued:     r.queues.Len(),
		QueueStats: r.queues.Stats(),
		RoamState:  r.roam.State().String(),
		RoamStats:  r.roam.Stats(),
		PowerMode:  r.pm.Mode().String(),
		PowerState: r.pm.State().String(),
		PowerStats: r.pm.Stats(),
		DutyCycle:  r.pm.Stats().DutyCyclePercent(),
		BeaconMiss: r.roam.BeaconMisses(),
		Stats:      r.stats,
	}
	if r.associated {
		s.BSSID = r.bss.BSSID.String()
		s.SSID = r.bss.SSID
		s.Channel = r.bss.Channel()
		s.Signal = r.bss.Signal
		s.AID = r.aid
	}
	for tid, ts := range r.tx {
		if ts != nil && ts.AwaitingBA {
			s.AwaitingBA = append(s.AwaitingBA, tid)
		}
	}
	for _, rx := range r.rx {
		if rx != nil {
			s.BufferedRx += rx.BufferedCount()
			st := rx.Stats()
			s.Reorder.Delivered += st.Delivered
			s.Reorder.Buffered += st.Buffered
			s.Reorder.OutOfWindow += st.OutOfWindow
			s.Reorder.Duplicates += st.Duplicates
			s.Reorder.TimedOut += st.TimedOut
			s.Reorder.BARSkipped += st.BARSkipped
		}
	}
	return s
}
