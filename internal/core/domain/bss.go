package domain

import (
	"fmt"
	"net"
)

// MAC is a 6-byte IEEE 802 hardware address.
type MAC [6]byte

// BroadcastMAC is the all-ones address.
var BroadcastMAC = MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// String formats the address as aa:bb:cc:dd:ee:ff.
func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// HardwareAddr returns a copy of the address as a net.HardwareAddr.
func (m MAC) HardwareAddr() net.HardwareAddr {
	out := make(net.HardwareAddr, 6)
	copy(out, m[:])
	return out
}

// ParseMAC parses a 48-bit address in any format accepted by net.ParseMAC.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	hw, err := net.ParseMAC(s)
	if err != nil {
		return m, err
	}
	if len(hw) != 6 {
		return m, fmt.Errorf("invalid MAC length %d: %s", len(hw), s)
	}
	copy(m[:], hw)
	return m, nil
}

// SecurityType is the security suite advertised by a BSS.
type SecurityType int

const (
	SecurityOpen SecurityType = iota
	SecurityWEP
	SecurityWPAPSK
	SecurityWPA2PSK
	SecurityWPA3SAE
	SecurityWPAEnterprise
	SecurityWPA2Enterprise
	SecurityWPA3Enterprise
)

func (s SecurityType) String() string {
	switch s {
	case SecurityOpen:
		return "OPEN"
	case SecurityWEP:
		return "WEP"
	case SecurityWPAPSK:
		return "WPA-PSK"
	case SecurityWPA2PSK:
		return "WPA2-PSK"
	case SecurityWPA3SAE:
		return "WPA3-SAE"
	case SecurityWPAEnterprise:
		return "WPA-EAP"
	case SecurityWPA2Enterprise:
		return "WPA2-EAP"
	case SecurityWPA3Enterprise:
		return "WPA3-EAP"
	}
	return "UNKNOWN"
}

// ScanResult is a single BSS entry reported by the driver layer.
type ScanResult struct {
	BSSID          MAC          `json:"bssid"`
	SSID           string       `json:"ssid"`
	Frequency      int          `json:"freq"`   // MHz
	Signal         int8         `json:"signal"` // dBm
	Noise          int8         `json:"noise"`  // dBm
	BeaconInterval uint16       `json:"beacon_interval"`
	Capability     uint16       `json:"capability"`
	TSF            uint64       `json:"tsf"`
	LastSeen       uint64       `json:"last_seen"` // local ms
	SeenCount      uint32       `json:"seen_count"`
	Security       SecurityType `json:"security"`
	WMM            bool         `json:"wmm"`
	HT             bool         `json:"ht"`
	VHT            bool         `json:"vht"`
	HE             bool         `json:"he"`
	ChannelWidth   int          `json:"bw"` // MHz
	IEs            []byte       `json:"-"`
}

// NewScanResult returns an entry with the driver defaults for fields a beacon did not fill in.
func NewScanResult(bssid MAC, frequency int) ScanResult {
	return ScanResult{
		BSSID:          bssid,
		Frequency:      frequency,
		Signal:         -100,
		Noise:          -95,
		BeaconInterval: 100,
		ChannelWidth:   20,
	}
}

// SNR returns signal minus noise, saturating at the int8 range.
func (r ScanResult) SNR() int8 {
	d := int(r.Signal) - int(r.Noise)
	if d > 127 {
		return 127
	}
	if d < -128 {
		return -128
	}
	return int8(d)
}

// IsESS reports an infrastructure BSS.
func (r ScanResult) IsESS() bool { return r.Capability&0x0001 != 0 }

// IsIBSS reports an ad-hoc BSS.
func (r ScanResult) IsIBSS() bool { return r.Capability&0x0002 != 0 }

// IsPrivacy reports WEP/WPA privacy in the capability field.
func (r ScanResult) IsPrivacy() bool { return r.Capability&0x0010 != 0 }

// Is5GHz reports whether the BSS operates at or above 5000 MHz.
func (r ScanResult) Is5GHz() bool { return r.Frequency >= 5000 }

// Channel derives the channel number from the frequency.
func (r ScanResult) Channel() int {
	return FrequencyToChannel(r.Frequency)
}

// FrequencyToChannel converts a center frequency in MHz to a channel number.
// Returns 0 for frequencies outside the 2.4/5/6 GHz bands.
func FrequencyToChannel(freq int) int {
	switch {
	case freq == 2484:
		return 14
	case freq >= 2412 && freq < 2484:
		return (freq - 2407) / 5
	case freq >= 5955 && freq <= 7115:
		return (freq - 5950) / 5
	case freq >= 5000 && freq < 5950:
		return (freq - 5000) / 5
	}
	return 0
}
