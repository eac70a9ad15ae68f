package ports

import (
	"context"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
)

// RxFrame is a frame handed up by a driver. Aggregated frames carry a raw
// A-MPDU that still needs de-aggregation.
type RxFrame struct {
	Data       []byte
	RSSI       int8
	Timestamp  uint64 // ms
	Aggregated bool
}

// Driver is the radio hardware boundary: the control plane hands it frames
// and asks it to scan and associate.
type Driver interface {
	Name() string
	MAC() domain.MAC
	// Transmit sends a frame or A-MPDU at the rate index chosen by rate control.
	Transmit(ctx context.Context, frame []byte, rateIdx int) error
	// Scan returns the BSSs currently visible.
	Scan(ctx context.Context) ([]domain.ScanResult, error)
	// Connect associates with bss and returns the association ID.
	Connect(ctx context.Context, bss domain.ScanResult) (uint16, error)
	Disconnect(ctx context.Context) error
}

// FrameSource is implemented by drivers that push received frames.
// The channel is closed when the driver stops.
type FrameSource interface {
	Frames() <-chan RxFrame
}

// FrameSink receives Ethernet frames delivered by the control plane.
type FrameSink interface {
	Deliver(radio string, eth []byte)
}
