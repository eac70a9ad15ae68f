package qos

import "encoding/binary"

// EdcaParams are the contention parameters of one access category.
// CWMin and CWMax are exponents; the window is 2^n - 1 slots.
type EdcaParams struct {
	AIFSN     uint8
	CWMin     uint8
	CWMax     uint8
	TXOPLimit uint16 // units of 32 us, 0 means one MSDU
	ACM       bool
}

var apParams = [...]EdcaParams{
	Background: {AIFSN: 7, CWMin: 4, CWMax: 10},
	BestEffort: {AIFSN: 3, CWMin: 4, CWMax: 10},
	Video:      {AIFSN: 2, CWMin: 3, CWMax: 4, TXOPLimit: 94},
	Voice:      {AIFSN: 2, CWMin: 2, CWMax: 3, TXOPLimit: 47},
}

var staParams = [...]EdcaParams{
	Background: {AIFSN: 7, CWMin: 4, CWMax: 10},
	BestEffort: {AIFSN: 3, CWMin: 4, CWMax: 6},
	Video:      {AIFSN: 2, CWMin: 3, CWMax: 4, TXOPLimit: 94},
	Voice:      {AIFSN: 2, CWMin: 2, CWMax: 3, TXOPLimit: 47},
}

// DefaultAPParams returns the parameters an AP advertises for ac.
func DefaultAPParams(ac AccessCategory) EdcaParams {
	if int(ac) >= len(apParams) {
		ac = BestEffort
	}
	return apParams[ac]
}

// DefaultSTAParams returns the parameters a station uses for ac.
func DefaultSTAParams(ac AccessCategory) EdcaParams {
	if int(ac) >= len(staParams) {
		ac = BestEffort
	}
	return staParams[ac]
}

func cwValue(exp uint8) uint16 {
	if exp > 15 {
		exp = 15
	}
	return 1<<exp - 1
}

// CWMinValue is the minimum contention window in slots.
func (p EdcaParams) CWMinValue() uint16 { return cwValue(p.CWMin) }

// CWMaxValue is the maximum contention window in slots.
func (p EdcaParams) CWMaxValue() uint16 { return cwValue(p.CWMax) }

// TXOPMicros is the TXOP limit in microseconds.
func (p EdcaParams) TXOPMicros() uint32 {
	return uint32(p.TXOPLimit) * 32
}

// EncodeWMMAC serializes the 4-byte AC parameter record.
func (p EdcaParams) EncodeWMMAC() [4]byte {
	var b [4]byte
	b[0] = p.AIFSN & 0x0F
	if p.ACM {
		b[0] |= 0x10
	}
	b[1] = p.CWMin&0x0F | (p.CWMax&0x0F)<<4
	binary.LittleEndian.PutUint16(b[2:], p.TXOPLimit)
	return b
}

// DecodeWMMAC parses a 4-byte AC parameter record.
func DecodeWMMAC(b [4]byte) EdcaParams {
	return EdcaParams{
		AIFSN:     b[0] & 0x0F,
		ACM:       b[0]&0x10 != 0,
		CWMin:     b[1] & 0x0F,
		CWMax:     b[1] >> 4,
		TXOPLimit: binary.LittleEndian.Uint16(b[2:]),
	}
}
