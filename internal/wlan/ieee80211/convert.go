package ieee80211

import (
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
)

const (
	ethHeaderLen  = 14
	llcSNAPLen    = 8
	ccmpHeaderLen = 8
)

var llcSNAPPrefix = [6]byte{0xAA, 0xAA, 0x03, 0x00, 0x00, 0x00}

// WifiToEthernet converts an 802.11 data frame carrying an LLC/SNAP
// encapsulated payload into an Ethernet II frame. Protected frames are
// assumed to be already decrypted but still carry the 8-byte CCMP header.
func WifiToEthernet(frame []byte) ([]byte, bool) {
	h, n, ok := Parse(frame)
	if !ok || h.FrameControl.Type != TypeData {
		return nil, false
	}

	off := n
	if h.FrameControl.Protected {
		off += ccmpHeaderLen
	}
	if len(frame) <= off+llcSNAPLen {
		return nil, false
	}

	llc := frame[off:]
	if llc[0] != 0xAA || llc[1] != 0xAA || llc[2] != 0x03 {
		return nil, false
	}

	dst, src, ok := ethernetAddrs(h)
	if !ok {
		return nil, false
	}

	body := frame[off+llcSNAPLen:]
	eth := make([]byte, 0, ethHeaderLen+len(body))
	eth = append(eth, dst[:]...)
	eth = append(eth, src[:]...)
	eth = append(eth, llc[6], llc[7])
	eth = append(eth, body...)
	return eth, true
}

// ethernetAddrs picks DA/SA according to the ToDS/FromDS combination.
func ethernetAddrs(h MacHeader) (dst, src domain.MAC, ok bool) {
	fc := h.FrameControl
	switch {
	case !fc.ToDS && !fc.FromDS: // IBSS
		return h.Address1, h.Address2, true
	case !fc.ToDS && fc.FromDS: // from AP
		return h.Address1, h.Address3, true
	case fc.ToDS && !fc.FromDS: // to AP
		return h.Address3, h.Address2, true
	default: // WDS
		if h.Address4 == nil {
			return dst, src, false
		}
		return h.Address3, *h.Address4, true
	}
}

// LLCToEthernet builds an Ethernet II frame from an LLC/SNAP encapsulated
// payload, as carried by A-MSDU subframes.
func LLCToEthernet(dst, src domain.MAC, llc []byte) ([]byte, bool) {
	if len(llc) < llcSNAPLen || [6]byte(llc[:6]) != llcSNAPPrefix {
		return nil, false
	}
	eth := make([]byte, 0, ethHeaderLen+len(llc)-llcSNAPLen)
	eth = append(eth, dst[:]...)
	eth = append(eth, src[:]...)
	eth = append(eth, llc[6], llc[7])
	return append(eth, llc[llcSNAPLen:]...), true
}

// EthernetToWifi wraps an Ethernet II frame into a QoS data frame with
// LLC/SNAP encapsulation. toAP selects the STA->AP direction, otherwise the
// frame is addressed AP->STA. Sequence and TID are left for the caller.
func EthernetToWifi(eth []byte, bssid domain.MAC, toAP bool) ([]byte, bool) {
	if len(eth) < ethHeaderLen {
		return nil, false
	}

	var dst, src domain.MAC
	copy(dst[:], eth[0:6])
	copy(src[:], eth[6:12])

	qos := uint16(0)
	h := MacHeader{
		FrameControl: FrameControl{
			Type:    TypeData,
			Subtype: SubtypeQoSData,
			ToDS:    toAP,
			FromDS:  !toAP,
		},
		QoSControl: &qos,
	}
	if toAP {
		h.Address1, h.Address2, h.Address3 = bssid, src, dst
	} else {
		h.Address1, h.Address2, h.Address3 = dst, bssid, src
	}

	out := h.Bytes()
	out = append(out, llcSNAPPrefix[:]...)
	out = append(out, eth[12], eth[13])
	out = append(out, eth[ethHeaderLen:]...)
	return out, true
}

// EtherType returns the EtherType of an Ethernet II frame.
func EtherType(eth []byte) (layers.EthernetType, bool) {
	if len(eth) < ethHeaderLen {
		return 0, false
	}
	return layers.EthernetType(uint16(eth[12])<<8 | uint16(eth[13])), true
}
