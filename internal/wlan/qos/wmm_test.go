package qos

import (
	"testing"

	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWmmInfoElement(t *testing.T) {
	sta := StaWmmInfo(0xFF)
	assert.Equal(t, [7]byte{0x00, 0x50, 0xF2, 2, 0, 1, 0x0F}, sta.Encode())

	ap := APWmmInfo(3, true)
	assert.Equal(t, uint8(0x83), ap.QoSInfo)
	assert.Equal(t, uint8(0x03), APWmmInfo(0x13, false).QoSInfo)

	ie := sta.Element()
	assert.Equal(t, uint8(ieee80211.IEVendorSpecific), ie.ID)
	assert.Equal(t, []byte{221, 7, 0x00, 0x50, 0xF2, 2, 0, 1, 0x0F}, ie.Bytes())
}

func TestWmmParamElementEncode(t *testing.T) {
	b := DefaultAPWmmParam().Encode()
	assert.Equal(t, []byte{0x00, 0x50, 0xF2, 2, 1, 1, 0x80, 0}, b[:8])
	assert.Equal(t, []byte{0x03, 0xA4, 0, 0}, b[8:12], "BE")
	assert.Equal(t, []byte{0x07, 0xA4, 0, 0}, b[12:16], "BK")
	assert.Equal(t, []byte{0x02, 0x43, 94, 0}, b[16:20], "VI")
	assert.Equal(t, []byte{0x02, 0x32, 47, 0}, b[20:24], "VO")
}

func TestWmmParamElementDecode(t *testing.T) {
	e := DefaultAPWmmParam()
	e.VO.ACM = true
	b := e.Encode()

	got, err := DecodeWmmParamElement(b[:])
	require.NoError(t, err)
	assert.Equal(t, e.BE, got.BE)
	assert.Equal(t, e.BK, got.BK)
	assert.Equal(t, e.VI, got.VI)
	assert.Equal(t, e.VO, got.VO)
	assert.Equal(t, e.VO, got.Params(Voice))
	assert.Equal(t, uint8(WMMSubtypeParam), got.Info.OUISubtype)

	_, err = DecodeWmmParamElement(b[:20])
	assert.ErrorIs(t, err, ieee80211.ErrMalformedIE)

	info := StaWmmInfo(0).Encode()
	_, err = DecodeWmmParamElement(append(info[:], make([]byte, 17)...))
	assert.ErrorIs(t, err, ieee80211.ErrMalformedIE)
}

func TestFindWmmParamElement(t *testing.T) {
	ssid := ieee80211.InformationElement{ID: ieee80211.IESSID, Data: []byte("lab")}
	ies := append(ssid.Bytes(), DefaultAPWmmParam().Element().Bytes()...)

	got, err := FindWmmParamElement(ies)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPParams(Video), got.VI)

	_, err = FindWmmParamElement(ssid.Bytes())
	assert.ErrorIs(t, err, ieee80211.ErrIENotFound)
}
