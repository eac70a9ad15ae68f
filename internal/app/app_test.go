package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wlanctl/internal/config"
	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ratecontrol"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.TickMs = 10
	cfg.Sim.LossRate = 0
	return cfg
}

func TestNew_BuildsConfiguredRadios(t *testing.T) {
	cfg := testConfig()
	second := config.DefaultRadio("wlan1")
	second.MAC = "02:11:22:33:44:55"
	second.FixedRate = "mcs7"
	cfg.Radios = append(cfg.Radios, second)

	app, err := New(cfg)
	require.NoError(t, err)
	require.Equal(t, 2, app.Registry.Len())

	e, ok := app.Registry.Get("wlan1")
	require.True(t, ok)
	st := e.Radio.Snapshot()
	assert.Equal(t, "02:11:22:33:44:55", st.MAC)
	r, err := ratecontrol.ParseRate("mcs7")
	require.NoError(t, err)
	assert.Equal(t, r.String(), st.TxRate)
	assert.False(t, st.Associated)
}

func TestNew_RejectsBadRadio(t *testing.T) {
	cfg := testConfig()
	cfg.Radios[0].PowerMode = "hibernate"

	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRun_JoinsAndMovesTraffic(t *testing.T) {
	app, err := New(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Run(ctx))

	st := app.radios[0].driver.Stats()
	assert.NotZero(t, st.Transmitted)
	assert.Zero(t, app.Registry.Len(), "cleanup unregisters radios")
	assert.False(t, app.radios[0].radio.Associated())
}

func TestTrafficSource_Mix(t *testing.T) {
	src := newTrafficSource(3, domain.MAC{0x02, 0, 0, 0, 0, 1})
	frames := 0
	for i := 0; i < 50; i++ {
		for _, f := range src.Burst(4) {
			frames++
			assert.Greater(t, len(f), 14+20+8)
			assert.Equal(t, []byte{0x08, 0x00}, f[12:14])
		}
	}
	assert.NotZero(t, frames)
}
