package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/aggregation"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/power"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ratecontrol"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/roaming"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Addr    string        `yaml:"addr"`
	Debug   bool          `yaml:"debug"`
	TickMs  int           `yaml:"tickMs"`
	Trace   TraceConfig   `yaml:"trace"`
	Logs    LogConfig     `yaml:"logs"`
	Sim     SimConfig     `yaml:"sim"`
	Radios  []RadioConfig `yaml:"-"`
	RawFile string        `yaml:"-"`
}

type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"` // empty writes to stderr
}

// LogConfig controls the rotating log file. An empty File logs to stdout only.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

// SimConfig drives the simulated driver.
type SimConfig struct {
	Seed     uint64  `yaml:"seed"`
	APs      int     `yaml:"aps"`
	SSID     string  `yaml:"ssid"`
	LossRate float64 `yaml:"lossRate"`
}

// RadioConfig is the per-radio control plane setup.
type RadioConfig struct {
	Name                 string        `yaml:"name"`
	MAC                  string        `yaml:"mac"`
	SSID                 string        `yaml:"ssid"`
	PowerMode            string        `yaml:"powerMode"`
	FixedRate            string        `yaml:"fixedRate"`
	AMPDUExponent        uint8         `yaml:"ampduExponent"`
	MaxAggregate         int           `yaml:"maxAggregate"`
	QueueDepth           int           `yaml:"queueDepth"`
	RateUpdateIntervalMs uint64        `yaml:"rateUpdateIntervalMs"`
	BlockAckTimeoutMs    uint64        `yaml:"blockAckTimeoutMs"`
	Roaming              RoamingConfig `yaml:"roaming"`
}

type RoamingConfig struct {
	Enabled             bool   `yaml:"enabled"`
	SignalThreshold     int8   `yaml:"signalThreshold"`
	SignalDelta         int8   `yaml:"signalDelta"`
	BeaconMissThreshold uint8  `yaml:"beaconMissThreshold"`
	CooldownMs          uint64 `yaml:"cooldownMs"`
	BackgroundScan      bool   `yaml:"backgroundScan"`
	BgScanIntervalMs    uint64 `yaml:"bgScanIntervalMs"`
	FastTransition      bool   `yaml:"fastTransition"`
	Prefer5GHz          bool   `yaml:"prefer5GHz"`
	Band5GHzBonus       int8   `yaml:"band5GHzBonus"`
}

// Default returns the built-in configuration with a single simulated radio.
func Default() *Config {
	return &Config{
		Addr:   ":8080",
		TickMs: 100,
		Logs: LogConfig{
			MaxSizeMB:  25,
			MaxAgeDays: 7,
			MaxBackups: 5,
		},
		Sim: SimConfig{
			Seed:     1,
			APs:      4,
			SSID:     "wlanctl-sim",
			LossRate: 0.05,
		},
		Radios: []RadioConfig{DefaultRadio("wlan0")},
	}
}

// DefaultRadio returns the defaults applied to every radio before its own
// settings.
func DefaultRadio(name string) RadioConfig {
	rc := roaming.DefaultConfig()
	return RadioConfig{
		Name:                 name,
		SSID:                 "wlanctl-sim",
		PowerMode:            power.ModeActive.String(),
		AMPDUExponent:        aggregation.ExponentHT64K,
		MaxAggregate:         32,
		QueueDepth:           256,
		RateUpdateIntervalMs: ratecontrol.DefaultUpdateIntervalMs,
		BlockAckTimeoutMs:    50,
		Roaming: RoamingConfig{
			Enabled:             rc.Enabled,
			SignalThreshold:     rc.SignalThreshold,
			SignalDelta:         rc.SignalDelta,
			BeaconMissThreshold: rc.BeaconMissThreshold,
			CooldownMs:          rc.CooldownMs,
			BackgroundScan:      rc.BackgroundScan,
			BgScanIntervalMs:    rc.BgScanIntervalMs,
			FastTransition:      rc.FastTransition,
			Prefer5GHz:          rc.Prefer5GHz,
			Band5GHzBonus:       rc.Band5GHzBonus,
		},
	}
}

// Engine converts the file representation into the roaming engine config.
func (r RoamingConfig) Engine() roaming.Config {
	return roaming.Config{
		Enabled:             r.Enabled,
		SignalThreshold:     r.SignalThreshold,
		SignalDelta:         r.SignalDelta,
		BeaconMissThreshold: r.BeaconMissThreshold,
		CooldownMs:          r.CooldownMs,
		BackgroundScan:      r.BackgroundScan,
		BgScanIntervalMs:    r.BgScanIntervalMs,
		FastTransition:      r.FastTransition,
		Prefer5GHz:          r.Prefer5GHz,
		Band5GHzBonus:       r.Band5GHzBonus,
		Weights:             roaming.DefaultScoreWeights(),
	}
}

// Load reads configuration from the process arguments and environment.
func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs builds the configuration in layers: defaults, then the YAML file
// named by -config or WLANCTL_CONFIG, then WLANCTL_* environment variables,
// then flags. Flags take precedence over everything.
func LoadArgs(args []string) (*Config, error) {
	probe := flag.NewFlagSet("wlanctl", flag.ContinueOnError)
	probe.SetOutput(io.Discard)
	configPath := bindFlags(probe, Default(), new(string))
	// The second parse reports flag errors.
	_ = probe.Parse(args)

	cfg := Default()
	if path := *configPath; path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	radios := cfg.applyEnv()

	fs := flag.NewFlagSet("wlanctl", flag.ContinueOnError)
	bindFlags(fs, cfg, &radios)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.setRadios(radios)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindFlags(fs *flag.FlagSet, cfg *Config, radios *string) *string {
	configPath := fs.String("config", getEnv("WLANCTL_CONFIG", ""), "Path to YAML configuration file")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	fs.IntVar(&cfg.TickMs, "tick", cfg.TickMs, "Control plane maintenance tick in milliseconds")
	fs.StringVar(radios, "radios", *radios, "Radio names to manage (comma separated)")
	fs.BoolVar(&cfg.Trace.Enabled, "trace", cfg.Trace.Enabled, "Export trace spans")
	fs.StringVar(&cfg.Trace.File, "trace-file", cfg.Trace.File, "Trace output file (default stderr)")
	fs.StringVar(&cfg.Logs.File, "log-file", cfg.Logs.File, "Rotating log file (empty to log to stdout only)")
	fs.IntVar(&cfg.Logs.MaxSizeMB, "log-max-size", cfg.Logs.MaxSizeMB, "Log file size in MB before rotation")
	fs.Uint64Var(&cfg.Sim.Seed, "sim-seed", cfg.Sim.Seed, "Simulated driver random seed")
	fs.IntVar(&cfg.Sim.APs, "sim-aps", cfg.Sim.APs, "Number of simulated access points")
	fs.Float64Var(&cfg.Sim.LossRate, "sim-loss", cfg.Sim.LossRate, "Simulated MPDU loss rate (0-1)")
	return configPath
}

type fileConfig struct {
	Config `yaml:",inline"`
	Radios []yaml.Node `yaml:"radios"`
}

// loadFile overlays the YAML file onto cfg. Each radio entry starts from
// DefaultRadio so a file only needs to name what it changes.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := fileConfig{Config: *c}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	*c = fc.Config
	c.RawFile = path

	if len(fc.Radios) == 0 {
		return nil
	}
	c.Radios = c.Radios[:0]
	for i := range fc.Radios {
		rc := DefaultRadio(fmt.Sprintf("wlan%d", i))
		if err := fc.Radios[i].Decode(&rc); err != nil {
			return fmt.Errorf("parse config %s: radio %d: %w", path, i, err)
		}
		c.Radios = append(c.Radios, rc)
	}
	return nil
}

// applyEnv overlays WLANCTL_* variables and returns the radio list from
// WLANCTL_RADIOS, or the current names.
func (c *Config) applyEnv() string {
	c.Addr = getEnv("WLANCTL_ADDR", c.Addr)
	c.Debug = getEnvBool("WLANCTL_DEBUG", c.Debug)
	c.TickMs = getEnvInt("WLANCTL_TICK_MS", c.TickMs)
	c.Trace.Enabled = getEnvBool("WLANCTL_TRACE", c.Trace.Enabled)
	c.Logs.File = getEnv("WLANCTL_LOG_FILE", c.Logs.File)
	c.Sim.Seed = uint64(getEnvInt("WLANCTL_SIM_SEED", int(c.Sim.Seed)))
	c.Sim.LossRate = getEnvFloat("WLANCTL_SIM_LOSS", c.Sim.LossRate)

	names := make([]string, len(c.Radios))
	for i, r := range c.Radios {
		names[i] = r.Name
	}
	radios := getEnv("WLANCTL_RADIOS", strings.Join(names, ","))

	for i := range c.Radios {
		applyRadioEnv(&c.Radios[i])
	}
	return radios
}

func applyRadioEnv(r *RadioConfig) {
	r.PowerMode = getEnv("WLANCTL_POWER_MODE", r.PowerMode)
	r.FixedRate = getEnv("WLANCTL_FIXED_RATE", r.FixedRate)
	r.Roaming.Enabled = getEnvBool("WLANCTL_ROAMING", r.Roaming.Enabled)
	r.Roaming.SignalThreshold = int8(getEnvInt("WLANCTL_ROAM_THRESHOLD", int(r.Roaming.SignalThreshold)))
}

// setRadios keeps configured radios whose names are listed and adds
// defaults for new names, in list order.
func (c *Config) setRadios(list string) {
	names := parseList(list)
	if len(names) == 0 {
		return
	}
	known := make(map[string]RadioConfig, len(c.Radios))
	for _, r := range c.Radios {
		known[r.Name] = r
	}
	out := make([]RadioConfig, 0, len(names))
	for _, n := range names {
		if r, ok := known[n]; ok {
			out = append(out, r)
			continue
		}
		r := DefaultRadio(n)
		applyRadioEnv(&r)
		out = append(out, r)
	}
	c.Radios = out
}

// Validate checks values the engines cannot recover from.
func (c *Config) Validate() error {
	if len(c.Radios) == 0 {
		return fmt.Errorf("%w: no radios configured", ErrInvalid)
	}
	if c.TickMs <= 0 {
		return fmt.Errorf("%w: tick must be positive", ErrInvalid)
	}
	if c.Sim.LossRate < 0 || c.Sim.LossRate > 1 {
		return fmt.Errorf("%w: sim loss rate %v outside [0,1]", ErrInvalid, c.Sim.LossRate)
	}

	seen := make(map[string]bool, len(c.Radios))
	for _, r := range c.Radios {
		if r.Name == "" {
			return fmt.Errorf("%w: radio without a name", ErrInvalid)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate radio %q", ErrInvalid, r.Name)
		}
		seen[r.Name] = true

		if r.MAC != "" {
			if _, err := domain.ParseMAC(r.MAC); err != nil {
				return fmt.Errorf("%w: radio %s: %v", ErrInvalid, r.Name, err)
			}
		}
		if _, ok := power.ParseMode(r.PowerMode); !ok {
			return fmt.Errorf("%w: radio %s: unknown power mode %q", ErrInvalid, r.Name, r.PowerMode)
		}
		if r.FixedRate != "" {
			if _, err := ratecontrol.ParseRate(r.FixedRate); err != nil {
				return fmt.Errorf("%w: radio %s: %v", ErrInvalid, r.Name, err)
			}
		}
		if r.AMPDUExponent > aggregation.ExponentHE2M {
			return fmt.Errorf("%w: radio %s: A-MPDU exponent %d", ErrInvalid, r.Name, r.AMPDUExponent)
		}
		if r.MaxAggregate <= 0 || r.MaxAggregate > aggregation.WindowSize {
			return fmt.Errorf("%w: radio %s: max aggregate %d", ErrInvalid, r.Name, r.MaxAggregate)
		}
	}
	return nil
}

func parseList(s string) []string {
	var out []string
	if s == "" {
		return out
	}
	parts := strings.Split(s, ",")
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
