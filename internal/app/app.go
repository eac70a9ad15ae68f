package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/wlanctl/internal/adapters/driver/sim"
	webserver "github.com/lcalzada-xor/wlanctl/internal/adapters/web/server"
	"github.com/lcalzada-xor/wlanctl/internal/config"
	"github.com/lcalzada-xor/wlanctl/internal/core/domain"
	"github.com/lcalzada-xor/wlanctl/internal/core/services/radio"
	"github.com/lcalzada-xor/wlanctl/internal/core/services/registry"
	"github.com/lcalzada-xor/wlanctl/internal/telemetry"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/power"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/ratecontrol"
)

const (
	// Frames offered per radio and tick, at most.
	uplinkBurst = 8
	// Probability of a downlink burst per simulated beacon.
	downlinkRate    = 0.3
	rejoinBackoffMs = 2000
)

// Application holds the core components of the application.
// It acts as the Facade for the entire system, orchestrating radios and servers.
type Application struct {
	Config    *config.Config
	Registry  *registry.Registry
	WebServer *webserver.Server

	radios []*radioRuntime
	sink   *logSink
	now    func() uint64
}

// radioRuntime binds a radio to its driver and traffic source.
type radioRuntime struct {
	radio    *radio.Radio
	driver   *sim.Driver
	traffic  *trafficSource
	nextJoin uint64
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
		sink:   &logSink{},
		now:    func() uint64 { return uint64(time.Now().UnixMilli()) },
	}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation
	telemetry.InitMetrics()
	app.Registry = registry.New()
	app.Registry.AddObserver(radioLogger{})

	// 2. Radios
	for i, rc := range app.Config.Radios {
		rt, err := app.buildRadio(uint64(i), rc)
		if err != nil {
			return fmt.Errorf("radio %s: %w", rc.Name, err)
		}
		if _, err := app.Registry.Add(rt.radio); err != nil {
			return err
		}
		app.radios = append(app.radios, rt)
	}

	// 3. Servers
	app.WebServer = webserver.NewServer(app.Config.Addr, app.Registry, app.now)
	return nil
}

func (app *Application) buildRadio(index uint64, rc config.RadioConfig) (*radioRuntime, error) {
	var mac domain.MAC
	if rc.MAC != "" {
		m, err := domain.ParseMAC(rc.MAC)
		if err != nil {
			return nil, err
		}
		mac = m
	}
	mode, ok := power.ParseMode(rc.PowerMode)
	if !ok {
		return nil, fmt.Errorf("%w: power mode %q", config.ErrInvalid, rc.PowerMode)
	}

	seed := app.Config.Sim.Seed + index
	drv := sim.NewDriver(sim.Options{
		Name:         rc.Name,
		MAC:          mac,
		SSID:         app.Config.Sim.SSID,
		APs:          app.Config.Sim.APs,
		LossRate:     app.Config.Sim.LossRate,
		DownlinkRate: downlinkRate,
		Seed:         seed,
		Clock:        app.now,
	})

	opts := radio.Options{
		Name:              rc.Name,
		SSID:              rc.SSID,
		PowerMode:         mode,
		RateUpdateMs:      rc.RateUpdateIntervalMs,
		AMPDUExponent:     rc.AMPDUExponent,
		MaxAggregate:      rc.MaxAggregate,
		QueueDepth:        rc.QueueDepth,
		BlockAckTimeoutMs: rc.BlockAckTimeoutMs,
		Roaming:           rc.Roaming.Engine(),
		Seed:              seed,
	}
	if rc.FixedRate != "" {
		r, err := ratecontrol.ParseRate(rc.FixedRate)
		if err != nil {
			return nil, err
		}
		opts.Rate = ratecontrol.NewFixedRate(r)
	}

	slog.Info("Radio configured", "radio", rc.Name, "mac", drv.MAC().String(),
		"ssid", rc.SSID, "power_mode", mode.String(), "fixed_rate", rc.FixedRate)
	return &radioRuntime{
		radio:   radio.New(opts, drv, app.sink),
		driver:  drv,
		traffic: newTrafficSource(seed, drv.MAC()),
	}, nil
}

// Run starts the application components and manages their execution lifecycle.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting wlanctl components...", "radios", len(app.radios))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 1+len(app.radios))
	var wg sync.WaitGroup

	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	for _, rt := range app.radios {
		go func() {
			if err := rt.driver.Run(ctx); err != nil {
				errChan <- fmt.Errorf("driver %s: %w", rt.radio.Name(), err)
			}
		}()
		wg.Add(2)
		go func() {
			defer wg.Done()
			app.runReceivePump(ctx, rt)
		}()
		go func() {
			defer wg.Done()
			app.runControlLoop(ctx, rt)
		}()
	}

	slog.Info("wlanctl ready. Press Ctrl+C to terminate.")

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Termination signal received")
	case runErr = <-errChan:
	}

	cancel()
	wg.Wait()
	return errors.Join(runErr, app.cleanup())
}

// runReceivePump feeds driver frames to the radio until the driver closes
// its channel.
func (app *Application) runReceivePump(ctx context.Context, rt *radioRuntime) {
	for f := range rt.driver.Frames() {
		if err := rt.radio.Receive(ctx, f); err != nil {
			slog.Debug("Receive error", "radio", rt.radio.Name(), "error", err)
		}
	}
}

// runControlLoop services one radio every tick: (re)joining, offering
// uplink traffic, flushing the queues and running the periodic duties.
func (app *Application) runControlLoop(ctx context.Context, rt *radioRuntime) {
	ticker := time.NewTicker(time.Duration(app.Config.TickMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		app.service(ctx, rt)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (app *Application) service(ctx context.Context, rt *radioRuntime) {
	now := app.now()
	logger := slog.With("radio", rt.radio.Name())

	if !rt.radio.Associated() && now >= rt.nextJoin {
		if _, err := rt.radio.Join(ctx, now); err != nil {
			logger.Warn("Join failed", "error", err)
			rt.nextJoin = now + rejoinBackoffMs
		}
	}

	if rt.radio.Associated() {
		for _, frame := range rt.traffic.Burst(uplinkBurst) {
			if err := rt.radio.Send(frame); err != nil {
				logger.Debug("Send failed", "error", err)
			}
		}
		if _, err := rt.radio.Flush(ctx, now); err != nil && !errors.Is(err, radio.ErrNotAssociated) {
			logger.Debug("Flush error", "error", err)
		}
	}

	if err := rt.radio.Tick(ctx, now); err != nil {
		logger.Warn("Tick error", "error", err)
	}
}

func (app *Application) cleanup() error {
	slog.Info("Cleaning up resources...")

	var errs error
	for _, rt := range app.radios {
		if rt.radio.Associated() {
			errs = errors.Join(errs, rt.radio.Disassociate(context.Background()))
		}
		st := rt.driver.Stats()
		slog.Info("Radio stopped", "radio", rt.radio.Name(),
			"transmitted", st.Transmitted, "lost", st.Lost, "beacons", st.Beacons)
		app.Registry.Remove(rt.radio.Name())
	}
	slog.Info("Frames delivered", "count", app.sink.Delivered())
	return errs
}

// radioLogger reports registry changes.
type radioLogger struct{}

func (radioLogger) OnRadioAdded(name string, id uuid.UUID) {
	slog.Info("Radio registered", "radio", name, "id", id.String())
}

func (radioLogger) OnRadioRemoved(name string, id uuid.UUID) {
	slog.Info("Radio unregistered", "radio", name, "id", id.String())
}
