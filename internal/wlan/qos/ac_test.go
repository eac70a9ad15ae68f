package qos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromUserPriority(t *testing.T) {
	want := []AccessCategory{BestEffort, Background, Background, BestEffort, Video, Video, Voice, Voice}
	for up, ac := range want {
		assert.Equal(t, ac, FromUserPriority(uint8(up)), "up %d", up)
	}
}

func TestAccessCategoryMappings(t *testing.T) {
	tests := []struct {
		ac   AccessCategory
		up   uint8
		aci  uint8
		name string
	}{
		{Background, 1, 1, "BK"},
		{BestEffort, 0, 0, "BE"},
		{Video, 5, 2, "VI"},
		{Voice, 6, 3, "VO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.up, tt.ac.UserPriority())
			assert.Equal(t, tt.up, tt.ac.TID())
			assert.Equal(t, tt.aci, tt.ac.ACI())
			assert.Equal(t, tt.ac, FromACI(tt.aci))
			assert.Equal(t, tt.ac, FromUserPriority(tt.up))
			assert.Equal(t, tt.name, tt.ac.String())
		})
	}
}

func TestQosControl(t *testing.T) {
	c := QosControl{TID: 5, EOSP: true, AckPolicy: AckBlock, AMSDUPresent: true, TXOPOrQueue: 0x20}
	assert.Equal(t, uint16(0x20F5), c.Uint16())
	assert.Equal(t, c, ParseQosControl(0x20F5))

	n := NewQosControl(0x1A)
	assert.Equal(t, uint8(0x0A), n.TID)
	assert.Equal(t, AckNormal, n.AckPolicy)
	assert.Equal(t, AckNone, ParseQosControl(1<<5).AckPolicy)
}
