// Package ratecontrol selects transmit rates with a Minstrel-style
// statistical algorithm.
package ratecontrol

import (
	"fmt"
	"strconv"
	"strings"
)

// McsIndex is an HT/VHT/HE modulation and coding scheme index.
type McsIndex uint8

var mcs20Kbps = [...]uint32{6500, 13000, 19500, 26000, 39000, 52000, 58500, 65000, 13000, 26000}

// Rate20MHzKbps is the single-stream PHY rate on a 20 MHz channel. MCS 8
// and 9 are the two-stream MCS 0 and 1. Unknown indices report MCS 0.
func (m McsIndex) Rate20MHzKbps(shortGI bool) uint32 {
	base := mcs20Kbps[0]
	if int(m) < len(mcs20Kbps) {
		base = mcs20Kbps[m]
	}
	if shortGI {
		return base * 10 / 9
	}
	return base
}

// Rate40MHzKbps doubles the 20 MHz rate.
func (m McsIndex) Rate40MHzKbps(shortGI bool) uint32 {
	return m.Rate20MHzKbps(shortGI) * 2
}

// LegacyRate is a DSSS/OFDM rate in 500 kbps units, as carried in the
// Supported Rates element.
type LegacyRate uint8

const (
	Rate1M   LegacyRate = 2
	Rate2M   LegacyRate = 4
	Rate5_5M LegacyRate = 11
	Rate11M  LegacyRate = 22
	Rate6M   LegacyRate = 12
	Rate9M   LegacyRate = 18
	Rate12M  LegacyRate = 24
	Rate18M  LegacyRate = 36
	Rate24M  LegacyRate = 48
	Rate36M  LegacyRate = 72
	Rate48M  LegacyRate = 96
	Rate54M  LegacyRate = 108
)

func (r LegacyRate) Kbps() uint32 {
	return uint32(r) * 500
}

func (r LegacyRate) String() string {
	if r%2 == 1 {
		return fmt.Sprintf("%d.5M", r/2)
	}
	return fmt.Sprintf("%dM", r/2)
}

// RateKind is the PHY family of a rate.
type RateKind uint8

const (
	KindLegacy RateKind = iota
	KindHT
	KindVHT
	KindHE
)

func (k RateKind) String() string {
	switch k {
	case KindLegacy:
		return "Legacy"
	case KindHT:
		return "HT"
	case KindVHT:
		return "VHT"
	case KindHE:
		return "HE"
	default:
		return "Unknown"
	}
}

// Rate identifies one transmit rate. Legacy is set for KindLegacy, MCS for
// the others, and NSS for VHT and HE.
type Rate struct {
	Kind   RateKind
	Legacy LegacyRate
	MCS    McsIndex
	NSS    uint8
}

func LegacyRateOf(r LegacyRate) Rate { return Rate{Kind: KindLegacy, Legacy: r} }
func HTRate(mcs McsIndex) Rate { return Rate{Kind: KindHT, MCS: mcs} }
func VHTRate(mcs McsIndex, nss uint8) Rate { return Rate{Kind: KindVHT, MCS: mcs, NSS: nss} }
func HERate(mcs McsIndex, nss uint8) Rate { return Rate{Kind: KindHE, MCS: mcs, NSS: nss} }

// Kbps is the nominal 20 MHz long-GI rate.
func (r Rate) Kbps() uint32 {
	switch r.Kind {
	case KindLegacy:
		return r.Legacy.Kbps()
	case KindHT:
		return r.MCS.Rate20MHzKbps(false)
	default:
		nss := uint32(r.NSS)
		if nss == 0 {
			nss = 1
		}
		return r.MCS.Rate20MHzKbps(false) * nss
	}
}

func (r Rate) String() string {
	switch r.Kind {
	case KindLegacy:
		return r.Legacy.String()
	case KindHT:
		return fmt.Sprintf("MCS%d", r.MCS)
	default:
		return fmt.Sprintf("%s-MCS%dx%d", r.Kind, r.MCS, r.NSS)
	}
}

// ParseRate accepts a legacy rate in Mbps ("54M", "5.5M") or an HT MCS
// ("mcs7").
func ParseRate(s string) (Rate, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(v, "mcs"); ok {
		n, err := strconv.ParseUint(rest, 10, 8)
		if err != nil || n > 9 {
			return Rate{}, fmt.Errorf("invalid MCS %q", s)
		}
		return HTRate(McsIndex(n)), nil
	}
	v = strings.TrimSuffix(v, "m")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Rate{}, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	if f <= 0 || f > 54 {
		return Rate{}, fmt.Errorf("unsupported legacy rate %q", s)
	}
	units := LegacyRate(f * 2)
	for _, r := range [...]LegacyRate{Rate1M, Rate2M, Rate5_5M, Rate11M, Rate6M, Rate9M, Rate12M, Rate18M, Rate24M, Rate36M, Rate48M, Rate54M} {
		if r == units && float64(units) == f*2 {
			return LegacyRateOf(r), nil
		}
	}
	return Rate{}, fmt.Errorf("unsupported legacy rate %q", s)
}
