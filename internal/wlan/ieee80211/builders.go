package ieee80211

import (
	"encoding/binary"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
)

// Authentication algorithms
const (
	AuthOpenSystem uint16 = 0
	AuthSharedKey  uint16 = 1
	AuthFT         uint16 = 2
	AuthSAE        uint16 = 3
)

// 1, 2, 5.5, 11 (basic), 6, 9, 12, 18 Mbps
var probeRates = []byte{0x82, 0x84, 0x8B, 0x96, 0x0C, 0x12, 0x18, 0x24}

func managementHeader(subtype uint8, da, sa, bssid domain.MAC) []byte {
	h := MacHeader{
		FrameControl: FrameControl{Type: TypeManagement, Subtype: subtype},
		Address1:     da,
		Address2:     sa,
		Address3:     bssid,
	}
	return h.Bytes()
}

// BuildProbeRequest builds a broadcast probe request. An empty ssid
// produces the wildcard SSID element.
func BuildProbeRequest(source domain.MAC, ssid string) []byte {
	frame := managementHeader(SubtypeProbeReq, domain.BroadcastMAC, source, domain.BroadcastMAC)
	frame = append(frame, InformationElement{ID: IESSID, Data: []byte(ssid)}.Bytes()...)
	frame = append(frame, InformationElement{ID: IESupportedRates, Data: probeRates}.Bytes()...)
	return frame
}

// BuildAuthentication builds an authentication frame body with algorithm,
// transaction sequence and status code.
func BuildAuthentication(dst, src, bssid domain.MAC, algorithm, seq, status uint16) []byte {
	frame := managementHeader(SubtypeAuth, dst, src, bssid)
	frame = binary.LittleEndian.AppendUint16(frame, algorithm)
	frame = binary.LittleEndian.AppendUint16(frame, seq)
	frame = binary.LittleEndian.AppendUint16(frame, status)
	return frame
}

// BuildAction builds an action frame with the given body (category first).
func BuildAction(dst, src, bssid domain.MAC, body []byte) []byte {
	frame := managementHeader(SubtypeAction, dst, src, bssid)
	return append(frame, body...)
}

// BeaconFixedLen is the timestamp, interval and capability block that
// precedes the elements of beacons and probe responses.
const BeaconFixedLen = 12

// Beacon is the body of a beacon or probe response.
type Beacon struct {
	Timestamp  uint64
	Interval   uint16 // TU
	Capability uint16
	IEs        []byte
}

// BuildBeacon builds a broadcast beacon carrying ies verbatim.
func BuildBeacon(bssid domain.MAC, b Beacon) []byte {
	frame := managementHeader(SubtypeBeacon, domain.BroadcastMAC, bssid, bssid)
	frame = binary.LittleEndian.AppendUint64(frame, b.Timestamp)
	frame = binary.LittleEndian.AppendUint16(frame, b.Interval)
	frame = binary.LittleEndian.AppendUint16(frame, b.Capability)
	return append(frame, b.IEs...)
}

// ParseBeacon decodes a beacon or probe response. The returned IEs alias
// frame.
func ParseBeacon(frame []byte) (MacHeader, Beacon, bool) {
	h, n, ok := Parse(frame)
	if !ok || h.FrameControl.Type != TypeManagement {
		return h, Beacon{}, false
	}
	if h.FrameControl.Subtype != SubtypeBeacon && h.FrameControl.Subtype != SubtypeProbeResp {
		return h, Beacon{}, false
	}
	if len(frame) < n+BeaconFixedLen {
		return h, Beacon{}, false
	}
	body := frame[n:]
	return h, Beacon{
		Timestamp:  binary.LittleEndian.Uint64(body[0:8]),
		Interval:   binary.LittleEndian.Uint16(body[8:10]),
		Capability: binary.LittleEndian.Uint16(body[10:12]),
		IEs:        body[BeaconFixedLen:],
	}, true
}
