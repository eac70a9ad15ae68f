package power

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ieee80211"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	apMAC  = domain.MAC{0x02, 0, 0, 0, 0, 0x01}
	staMAC = domain.MAC{0x02, 0, 0, 0, 0, 0xAA}
)

// decodeDot11 runs gopacket's decoder over a frame, appending the FCS it
// expects to find.
func decodeDot11(t *testing.T, frame []byte) *layers.Dot11 {
	t.Helper()
	var d layers.Dot11
	require.NoError(t, d.DecodeFromBytes(append(frame, 0, 0, 0, 0), gopacket.NilDecodeFeedback))
	return &d
}

func TestBuildPowerCapabilityIE(t *testing.T) {
	assert.Equal(t, []byte{33, 2, 0, 20}, BuildPowerCapabilityIE())
}

func TestBuildPSPollFrame(t *testing.T) {
	f := BuildPSPollFrame(5, apMAC, staMAC)
	assert.Equal(t, []byte{0xA4, 0x00, 0x05, 0xC0}, f[:4])
	assert.Equal(t, apMAC[:], f[4:10])
	assert.Equal(t, staMAC[:], f[10:16])

	d := decodeDot11(t, f[:])
	assert.Equal(t, layers.Dot11TypeCtrlPowersavePoll, d.Type)
	assert.Equal(t, uint16(5|0xC000), d.DurationID)
	assert.Equal(t, net.HardwareAddr(apMAC[:]), d.Address1)
	assert.Equal(t, net.HardwareAddr(staMAC[:]), d.Address2)
}

func TestBuildNullDataFrame(t *testing.T) {
	f := BuildNullDataFrame(true, true, apMAC, staMAC)
	assert.Equal(t, []byte{0x48, 0x11}, f[:2])

	h, n, ok := ieee80211.Parse(f[:])
	require.True(t, ok)
	assert.Equal(t, NullDataLen, n)
	assert.Equal(t, apMAC, h.Address1)
	assert.Equal(t, staMAC, h.Address2)
	assert.Equal(t, apMAC, h.Address3)

	d := decodeDot11(t, f[:])
	assert.Equal(t, layers.Dot11TypeDataNull, d.Type)
	assert.True(t, d.Flags.ToDS())
	assert.True(t, d.Flags.PowerManagement())

	f = BuildNullDataFrame(false, false, apMAC, staMAC)
	assert.Equal(t, []byte{0x48, 0x00}, f[:2])
	h, _, _ = ieee80211.Parse(f[:])
	assert.Equal(t, staMAC, h.Address1)
	assert.Equal(t, apMAC, h.Address2)
	assert.Equal(t, staMAC, h.Address3)
}
