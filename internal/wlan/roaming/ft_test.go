package roaming

import (
	"testing"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mdie = []byte{ieee80211.IEMobilityDomain, 3, 0x34, 0x12, 0x01}

func withMDIE(r domain.ScanResult) domain.ScanResult {
	ssid := ieee80211.InformationElement{ID: ieee80211.IESSID, Data: []byte(r.SSID)}
	r.IEs = append(ssid.Bytes(), mdie...)
	return r
}

func TestParseMobilityDomain(t *testing.T) {
	ft, err := ParseMobilityDomain([]byte{0x34, 0x12, 0x03})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), ft.MDID)
	assert.True(t, ft.OverDS())
	assert.True(t, ft.ResourceRequest())

	ft, err = ParseMobilityDomain([]byte{0x01, 0x00, 0x00})
	require.NoError(t, err)
	assert.False(t, ft.OverDS())

	_, err = ParseMobilityDomain([]byte{0x34, 0x12})
	assert.ErrorIs(t, err, ieee80211.ErrMalformedIE)
}

func TestFtInfoFromBSS(t *testing.T) {
	ap := withMDIE(bss(1, "lab", -60, 5180))
	ft, err := FtInfoFromBSS(ap)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), ft.MDID)
	assert.Equal(t, mdie, ft.MobilityDomainElement().Bytes())

	_, err = FtInfoFromBSS(bss(2, "lab", -60, 5180))
	assert.ErrorIs(t, err, ieee80211.ErrIENotFound)

	assert.True(t, ft.SameMobilityDomain(withMDIE(bss(3, "lab", -50, 5180))))
	assert.False(t, ft.SameMobilityDomain(bss(4, "lab", -50, 5180)))
}

func TestManagerLearnsMobilityDomain(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.SetCurrentBSS(withMDIE(bss(1, "lab", -60, 5180)))
	ft, ok := m.FtInfo()
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), ft.MDID)

	m.SetCurrentBSS(bss(2, "lab", -60, 5180))
	_, ok = m.FtInfo()
	assert.False(t, ok)

	m.SetFtInfo(FtInfo{MDID: 7})
	ft, _ = m.FtInfo()
	assert.Equal(t, uint16(7), ft.MDID)
}

func TestBuildFTRequest(t *testing.T) {
	sta := domain.MAC{0x02, 0, 0, 0, 0, 0xAA}
	target := domain.MAC{0x02, 0, 0, 0, 0, 0xBB}
	body := BuildFTRequest(sta, target, FtInfo{MDID: 0x1234, FTCapability: 0x01})

	require.Len(t, body, 19)
	assert.Equal(t, []byte{CategoryFT, ActionFTRequest}, body[:2])
	assert.Equal(t, sta[:], body[2:8])
	assert.Equal(t, target[:], body[8:14])
	assert.Equal(t, mdie, body[14:])
}

func TestBuildFTRequestFrame(t *testing.T) {
	sta := domain.MAC{0x02, 0, 0, 0, 0, 0xAA}
	cur := domain.MAC{0x02, 0, 0, 0, 0, 0x01}
	target := domain.MAC{0x02, 0, 0, 0, 0, 0xBB}
	frame := BuildFTRequestFrame(sta, cur, target, FtInfo{MDID: 0x1234, FTCapability: 0x01})

	h, n, ok := ieee80211.Parse(frame)
	require.True(t, ok)
	assert.Equal(t, ieee80211.TypeManagement, h.FrameControl.Type)
	assert.Equal(t, uint8(ieee80211.SubtypeAction), h.FrameControl.Subtype)
	assert.Equal(t, cur, h.Address1)
	assert.Equal(t, sta, h.Address2)
	assert.Equal(t, cur, h.Address3)
	assert.Equal(t, BuildFTRequest(sta, target, FtInfo{MDID: 0x1234, FTCapability: 0x01}), frame[n:])
}
