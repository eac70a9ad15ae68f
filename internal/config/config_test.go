package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wlanctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sampleYAML = `
addr: ":7000"
logs:
  file: /tmp/wlanctl.log
  maxSizeMB: 50
radios:
  - name: wlan1
    powerMode: uapsd
    fixedRate: 24M
    roaming:
      signalThreshold: -70
`

func TestLoadArgs_Defaults(t *testing.T) {
	cfg, err := LoadArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	require.Len(t, cfg.Radios, 1)
	assert.Equal(t, "wlan0", cfg.Radios[0].Name)
	assert.Equal(t, "active", cfg.Radios[0].PowerMode)
	assert.True(t, cfg.Radios[0].Roaming.Enabled)
	assert.Equal(t, int8(-75), cfg.Radios[0].Roaming.SignalThreshold)
}

func TestLoadArgs_FileKeepsDefaultsForUnsetKeys(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := LoadArgs([]string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, 50, cfg.Logs.MaxSizeMB)
	assert.Equal(t, 7, cfg.Logs.MaxAgeDays)
	assert.Equal(t, path, cfg.RawFile)

	require.Len(t, cfg.Radios, 1)
	r := cfg.Radios[0]
	assert.Equal(t, "wlan1", r.Name)
	assert.Equal(t, "uapsd", r.PowerMode)
	assert.Equal(t, "24M", r.FixedRate)
	assert.Equal(t, 256, r.QueueDepth)
	assert.Equal(t, int8(-70), r.Roaming.SignalThreshold)
	assert.Equal(t, int8(10), r.Roaming.SignalDelta)
	assert.True(t, r.Roaming.Enabled)
}

func TestLoadArgs_Precedence(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("WLANCTL_CONFIG", path)
	t.Setenv("WLANCTL_ADDR", ":9000")

	cfg, err := LoadArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr, "env overrides file")

	cfg, err = LoadArgs([]string{"-addr", ":9100"})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr, "flag overrides env")
}

func TestLoadArgs_RadioList(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := LoadArgs([]string{"-config", path, "-radios", "wlan2, wlan1"})
	require.NoError(t, err)

	require.Len(t, cfg.Radios, 2)
	assert.Equal(t, "wlan2", cfg.Radios[0].Name)
	assert.Equal(t, "active", cfg.Radios[0].PowerMode)
	assert.Equal(t, "wlan1", cfg.Radios[1].Name)
	assert.Equal(t, "uapsd", cfg.Radios[1].PowerMode)
}

func TestLoadArgs_RadioEnvAppliesToNewRadios(t *testing.T) {
	t.Setenv("WLANCTL_POWER_MODE", "psm")

	cfg, err := LoadArgs([]string{"-radios", "wlan0,wlan5"})
	require.NoError(t, err)
	require.Len(t, cfg.Radios, 2)
	assert.Equal(t, "psm", cfg.Radios[0].PowerMode)
	assert.Equal(t, "psm", cfg.Radios[1].PowerMode)
}

func TestLoadArgs_Errors(t *testing.T) {
	_, err := LoadArgs([]string{"-no-such-flag"})
	assert.Error(t, err)

	_, err = LoadArgs([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	_, err = LoadArgs([]string{"-config", writeConfig(t, "radios: [\n")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no radios", func(c *Config) { c.Radios = nil }},
		{"zero tick", func(c *Config) { c.TickMs = 0 }},
		{"loss rate", func(c *Config) { c.Sim.LossRate = 1.5 }},
		{"duplicate radio", func(c *Config) { c.Radios = append(c.Radios, DefaultRadio("wlan0")) }},
		{"bad mac", func(c *Config) { c.Radios[0].MAC = "zz:00" }},
		{"power mode", func(c *Config) { c.Radios[0].PowerMode = "turbo" }},
		{"fixed rate", func(c *Config) { c.Radios[0].FixedRate = "7M" }},
		{"exponent", func(c *Config) { c.Radios[0].AMPDUExponent = 9 }},
		{"aggregate", func(c *Config) { c.Radios[0].MaxAggregate = 65 }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestRoamingConfig_Engine(t *testing.T) {
	rc := DefaultRadio("wlan0").Roaming
	rc.CooldownMs = 1234

	eng := rc.Engine()
	assert.Equal(t, uint64(1234), eng.CooldownMs)
	assert.Equal(t, int8(-75), eng.SignalThreshold)
	assert.Equal(t, 5, eng.Weights.HE)
}
