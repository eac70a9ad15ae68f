package ieee80211

import (
	"fmt"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	apMAC  = domain.MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	staMAC = domain.MAC{0x02, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE}
	dstMAC = domain.MAC{0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB}
	wdsMAC = domain.MAC{0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F}
)

// withFCS appends a zeroed FCS so gopacket's Dot11 decoder can trim it.
func withFCS(frame []byte) []byte {
	return append(append([]byte(nil), frame...), 0, 0, 0, 0)
}

func TestFrameControl_RoundTrip(t *testing.T) {
	for v := 0; v <= 0xFFFF; v += 7 {
		fc := ParseFrameControl(uint16(v))
		assert.Equal(t, uint16(v), fc.Uint16())
	}
}

func TestMacHeader_RoundTrip(t *testing.T) {
	for _, toDS := range []bool{false, true} {
		for _, fromDS := range []bool{false, true} {
			for _, qos := range []bool{false, true} {
				name := fmt.Sprintf("toDS=%v/fromDS=%v/qos=%v", toDS, fromDS, qos)
				t.Run(name, func(t *testing.T) {
					h := MacHeader{
						FrameControl: FrameControl{
							Type:     TypeData,
							Subtype:  SubtypeData,
							ToDS:     toDS,
							FromDS:   fromDS,
							Retry:    true,
							MoreData: true,
						},
						Duration: 0x1234,
						Address1: apMAC,
						Address2: staMAC,
						Address3: dstMAC,
					}
					h.SetSequence(0xABC, 3)
					wantLen := BaseHeaderLen
					if toDS && fromDS {
						a4 := wdsMAC
						h.Address4 = &a4
						wantLen += Addr4Len
					}
					if qos {
						h.FrameControl.Subtype = SubtypeQoSData
						q := uint16(0x0025)
						h.QoSControl = &q
						wantLen += QoSControlLen
					}

					b := h.Bytes()
					require.Len(t, b, wantLen)
					assert.Equal(t, wantLen, h.Len())

					got, n, ok := Parse(b)
					require.True(t, ok)
					assert.Equal(t, wantLen, n)
					assert.Equal(t, h, got)
				})
			}
		}
	}
}

func TestParse_Truncated(t *testing.T) {
	_, _, ok := Parse(make([]byte, 23))
	assert.False(t, ok, "shorter than base header")

	wds := MacHeader{FrameControl: FrameControl{Type: TypeData, ToDS: true, FromDS: true}}
	a4 := wdsMAC
	wds.Address4 = &a4
	b := wds.Bytes()
	_, _, ok = Parse(b[:28])
	assert.False(t, ok, "address4 announced but missing")

	q := uint16(5)
	qosHdr := MacHeader{FrameControl: FrameControl{Type: TypeData, Subtype: SubtypeQoSData}, QoSControl: &q}
	b = qosHdr.Bytes()
	_, _, ok = Parse(b[:25])
	assert.False(t, ok, "qos control announced but truncated")

	// Management frames never carry QoS control even with subtype bit 3.
	beacon := MacHeader{FrameControl: FrameControl{Type: TypeManagement, Subtype: SubtypeBeacon}}
	h, n, ok := Parse(beacon.Bytes())
	require.True(t, ok)
	assert.Equal(t, BaseHeaderLen, n)
	assert.Nil(t, h.QoSControl)
}

func TestMacHeader_GopacketAgrees(t *testing.T) {
	q := uint16(0x0006)
	h := MacHeader{
		FrameControl: FrameControl{Type: TypeData, Subtype: SubtypeQoSData, ToDS: true},
		Address1:     apMAC,
		Address2:     staMAC,
		Address3:     dstMAC,
		QoSControl:   &q,
	}
	h.SetSequence(1000, 2)

	var d layers.Dot11
	require.NoError(t, d.DecodeFromBytes(withFCS(h.Bytes()), gopacket.NilDecodeFeedback))

	assert.Equal(t, layers.Dot11TypeDataQOSData, d.Type)
	assert.Equal(t, h.Dot11Type(), d.Type)
	assert.True(t, d.Flags.ToDS())
	assert.Equal(t, apMAC.HardwareAddr(), d.Address1)
	assert.Equal(t, staMAC.HardwareAddr(), d.Address2)
	assert.Equal(t, dstMAC.HardwareAddr(), d.Address3)
	assert.Equal(t, uint16(1000), d.SequenceNumber)
	assert.Equal(t, uint16(1000), h.SequenceNumber())
	assert.Equal(t, uint8(2), h.FragmentNumber())
	assert.Equal(t, uint8(6), h.TID())
}

func TestDot11Type(t *testing.T) {
	assert.Equal(t, layers.Dot11TypeMgmtBeacon, Dot11Type(TypeManagement, SubtypeBeacon))
	assert.Equal(t, layers.Dot11TypeMgmtProbeReq, Dot11Type(TypeManagement, SubtypeProbeReq))
	assert.Equal(t, layers.Dot11TypeCtrlPowersavePoll, Dot11Type(TypeControl, SubtypePSPoll))
	assert.Equal(t, layers.Dot11TypeCtrlBlockAck, Dot11Type(TypeControl, SubtypeBlockAck))
	assert.Equal(t, layers.Dot11TypeDataNull, Dot11Type(TypeData, SubtypeNull))
}

func TestPeekFrameControl(t *testing.T) {
	fc, ok := PeekFrameControl([]byte{0xA4, 0x10})
	require.True(t, ok)
	assert.Equal(t, TypeControl, fc.Type)
	assert.Equal(t, SubtypePSPoll, fc.Subtype)
	assert.True(t, fc.PowerManagement)

	_, ok = PeekFrameControl([]byte{0xA4})
	assert.False(t, ok)
}
