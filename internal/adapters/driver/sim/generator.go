package sim

import (
	"math/rand/v2"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/qos"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/roaming"
)

// Vendor OUI prefixes for generated BSSIDs
var vendorPrefixes = [...][3]byte{
	{0x00, 0x1E, 0xBD}, // Cisco
	{0x50, 0xC7, 0xBF}, // TP-Link
	{0xA0, 0x63, 0x91}, // Netgear
	{0x00, 0x14, 0xBF}, // Linksys
	{0x00, 0x1F, 0xC6}, // Asus
	{0x00, 0x17, 0x9A}, // D-Link
	{0x00, 0xE0, 0xFC}, // Huawei
}

var channels24GHz = []int{1, 6, 11}
var channels5GHz = []int{36, 40, 44, 48, 52, 56, 100, 104, 108, 112, 149, 153, 157, 161}

var securityTypes = []domain.SecurityType{domain.SecurityWPA2PSK, domain.SecurityWPA3SAE, domain.SecurityOpen}
var securityWeights = []float64{0.6, 0.25, 0.15}

// mobilityDomain is shared by every generated AP of the simulated ESS.
const mobilityDomain = 0xA1B2

// accessPoint is a simulated AP and the downlink state it keeps for the
// associated station.
type accessPoint struct {
	bss      domain.ScanResult
	seq      [16]uint16 // next sequence number per TID
	buffered [][]byte   // downlink held while the station dozes
}

type generator struct {
	rand *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rand: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

func (g *generator) mac() domain.MAC {
	prefix := vendorPrefixes[g.rand.IntN(len(vendorPrefixes))]
	return domain.MAC{prefix[0], prefix[1], prefix[2],
		byte(g.rand.IntN(256)), byte(g.rand.IntN(256)), byte(g.rand.IntN(256))}
}

func channelFrequency(ch int) int {
	if ch <= 14 {
		return 2407 + 5*ch
	}
	return 5000 + 5*ch
}

// newAP creates an AP of the ESS ssid. Roughly half of the APs sit on 5 GHz.
func (g *generator) newAP(ssid string) *accessPoint {
	is5GHz := g.rand.Float64() < 0.5
	var channel int
	if is5GHz {
		channel = channels5GHz[g.rand.IntN(len(channels5GHz))]
	} else {
		channel = channels24GHz[g.rand.IntN(len(channels24GHz))]
	}

	bss := domain.NewScanResult(g.mac(), channelFrequency(channel))
	bss.SSID = ssid
	bss.Signal = int8(-45 - g.rand.IntN(40)) // -45 to -84 dBm
	bss.Security = g.weightedChoice(securityTypes, securityWeights)
	bss.Capability = 0x0001
	if bss.Security != domain.SecurityOpen {
		bss.Capability |= 0x0010
	}
	bss.WMM = true
	bss.HT = true
	bss.ChannelWidth = 20
	if is5GHz {
		bss.VHT = g.rand.Float64() < 0.7
		bss.ChannelWidth = 40
		if bss.VHT {
			bss.ChannelWidth = 80
		}
	}
	bss.HE = g.rand.Float64() < 0.3

	ft := roaming.FtInfo{MDID: mobilityDomain, FTCapability: 0x01}
	bss.IEs = append(bss.IEs, ieee80211.InformationElement{ID: ieee80211.IESSID, Data: []byte(ssid)}.Bytes()...)
	bss.IEs = append(bss.IEs, ft.MobilityDomainElement().Bytes()...)
	bss.IEs = append(bss.IEs, qos.DefaultAPWmmParam().Element().Bytes()...)

	return &accessPoint{bss: bss}
}

// drift moves the signal by up to +-step dB, keeping it in [-95, -30].
func (g *generator) drift(ap *accessPoint, step int) {
	s := int(ap.bss.Signal) + g.rand.IntN(2*step+1) - step
	ap.bss.Signal = int8(min(max(s, -95), -30))
}

func (g *generator) weightedChoice(choices []domain.SecurityType, weights []float64) domain.SecurityType {
	total := 0.0
	for _, w := range weights {
		total += w
	}

	r := g.rand.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return choices[i]
		}
	}
	return choices[0]
}
