package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/aqi"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/config"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/connectivity"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/gpio"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/logger"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/pid"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/purpleair"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/sensor"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/telemetry"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/vent"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/watchdog"
)

const (
	// A run of ticks where the hardware never responds means the process is
	// better off restarting under its service manager.
	failureRestartLimit = 10

	// How long a successful connectivity probe stays trusted.
	revalidateAfter = 30 * time.Second
)

type tickState struct {
	index       int
	indoorIndex int
	position    gpio.SwitchPosition
	decision    vent.Decision
}

type app struct {
	cfg *config.Config

	switchReader gpio.SwitchReader
	relay        gpio.Relay
	outdoor      *sensor.Manager
	indoor       *sensor.Manager
	control      *vent.Controller
	reporter     telemetry.Reporter
	policy       *telemetry.Policy
	petter       watchdog.Petter

	state   tickState
	applied bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")

	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}

	dog, err := watchdog.New(watchdog.Config{
		Timeout:       cfg.Watchdog.Timeout,
		CheckInterval: cfg.Watchdog.CheckInterval,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize watchdog")
	}

	a, err := newApp(cfg, dog)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize controller")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	dog.Start(ctx)

	loopErr := a.loop(ctx)

	dog.Stop()
	a.close()
	if err := pid.Remove(); err != nil {
		logger.Error().Err(err).Msg("failed to remove PID file")
	}

	if loopErr != nil {
		logger.Error().Err(loopErr).Msg("error in main loop")
		os.Exit(1)
	}

	logger.Info().Msg("Exiting...")
}

func newApp(cfg *config.Config, petter watchdog.Petter) (*app, error) {
	a := &app{
		cfg:    cfg,
		petter: petter,
		state:  tickState{index: -1, indoorIndex: -1, position: gpio.SwitchOff},
	}

	control, err := vent.NewController(cfg.Thresholds.Enable, cfg.Thresholds.Disable)
	if err != nil {
		return nil, err
	}
	a.control = control

	converter := aqi.New()

	guard, err := newGuard(cfg, petter)
	if err != nil {
		return nil, err
	}

	outdoor, err := newOutdoorManager(cfg, converter, guard, petter)
	if err != nil {
		return nil, err
	}
	a.outdoor = outdoor

	if cfg.Indoor.Address != "" {
		indoor, err := newIndoorManager(cfg, converter, guard, petter)
		if err != nil {
			return nil, err
		}
		a.indoor = indoor
	}

	reporter, err := telemetry.NewService(telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		URL:      cfg.Telemetry.URL,
		Interval: cfg.Telemetry.Interval,
		Timeout:  cfg.Telemetry.Timeout,
	})
	if err != nil {
		return nil, err
	}
	a.reporter = reporter
	a.policy = telemetry.NewPolicy(cfg.Telemetry.Interval)

	if err := a.openGPIO(); err != nil {
		reporter.Close()
		return nil, err
	}

	return a, nil
}

func newGuard(cfg *config.Config, petter watchdog.Petter) (*connectivity.Guard, error) {
	return connectivity.New(connectivity.Config{
		Prober:          connectivity.DialProber{Address: probeAddress(cfg)},
		Policy:          connectivity.FixedDelay(cfg.Connectivity.RetryDelay),
		Petter:          petter,
		AttemptTimeout:  cfg.Connectivity.AttemptTimeout,
		PetInterval:     cfg.Connectivity.PetInterval,
		RevalidateAfter: revalidateAfter,
	})
}

func newOutdoorManager(cfg *config.Config, converter aqi.Converter, guard sensor.Guard, petter watchdog.Petter) (*sensor.Manager, error) {
	var local, cloud purpleair.Source

	if cfg.Local.Address != "" {
		src, err := purpleair.NewLocalSource(purpleair.LocalConfig{
			Name:      "outdoor",
			Address:   cfg.Local.Address,
			Timeout:   cfg.Local.Timeout,
			Converter: converter,
		})
		if err != nil {
			return nil, err
		}
		local = src
	}

	if cfg.CloudConfigured() {
		src, err := purpleair.NewCloudSource(purpleair.CloudConfig{
			Name:      "outdoor",
			BaseURL:   cfg.Cloud.APIURL,
			APIKey:    cfg.Cloud.APIKey,
			SensorIDs: sensorIDs(cfg.Cloud.SensorIDs),
			MaxAge:    cfg.Cloud.MaxAge,
			Timeout:   cfg.Cloud.Timeout,
			Converter: converter,
		})
		if err != nil {
			return nil, err
		}
		cloud = src
	}

	return sensor.New(sensor.Config{
		Name:          "outdoor",
		Local:         local,
		Cloud:         cloud,
		LocalInterval: cfg.Local.PollInterval,
		CloudInterval: cfg.Cloud.PollInterval,
		LocalAttempts: cfg.Local.Attempts,
		RetryDelay:    cfg.Local.RetryDelay,
		Guard:         guard,
		Petter:        petter,
	})
}

func newIndoorManager(cfg *config.Config, converter aqi.Converter, guard sensor.Guard, petter watchdog.Petter) (*sensor.Manager, error) {
	src, err := purpleair.NewLocalSource(purpleair.LocalConfig{
		Name:      "indoor",
		Address:   cfg.Indoor.Address,
		Timeout:   cfg.Local.Timeout,
		Converter: converter,
	})
	if err != nil {
		return nil, err
	}

	// The indoor channel is advisory, so a single attempt per poll is enough.
	return sensor.New(sensor.Config{
		Name:          "indoor",
		Local:         src,
		LocalInterval: cfg.Indoor.PollInterval,
		LocalAttempts: 1,
		Guard:         guard,
		Petter:        petter,
	})
}

func (a *app) openGPIO() error {
	reader, err := gpio.NewRealSwitch(a.cfg.GPIO.Chip, a.cfg.GPIO.SwitchOnPin, a.cfg.GPIO.SwitchOffPin)
	if err != nil {
		if !a.cfg.Monitor {
			return err
		}
		logger.Warn().Err(err).Msg("Switch unavailable, monitor mode continues without it")
	} else {
		a.switchReader = reader
	}

	if a.cfg.Monitor {
		return nil
	}

	relay, err := gpio.NewRealRelay(a.cfg.GPIO.Chip, a.cfg.GPIO.RelayPins)
	if err != nil {
		if a.switchReader != nil {
			a.switchReader.Close()
			a.switchReader = nil
		}
		return err
	}
	a.relay = relay

	return nil
}

func (a *app) loop(ctx context.Context) error {
	errFactory := errors.New()

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	if a.cfg.Monitor {
		logger.Info().Msg("Monitor mode activated. Logging air quality status...")
	}

	// The first evaluation runs immediately so the relay reaches a known
	// state without waiting out a full tick.
	if err := a.tick(ctx, time.Now()); err != nil {
		logger.Error().Err(err).Msg("Tick failed")
	}

	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := a.tick(ctx, now); err != nil {
				consecutive++
				logger.Error().Err(err).Int("consecutive_failures", consecutive).Msg("Tick failed")
				if consecutive >= failureRestartLimit {
					return errFactory.Wrap(errors.ErrMainLoop, err)
				}
				continue
			}
			consecutive = 0
		}
	}
}

func (a *app) tick(ctx context.Context, now time.Time) error {
	a.petter.Pet()

	var tickErr error

	position := a.state.position
	if a.switchReader != nil {
		pos, err := a.switchReader.Read()
		if err != nil {
			tickErr = err
			logger.Warn().Err(err).Msg("Switch read failed, keeping previous position")
		} else {
			position = pos
		}
	}

	var reading *purpleair.Reading
	if position == gpio.SwitchAuto && position != a.state.position {
		// Flipping into automatic control refreshes the index immediately.
		reading = a.outdoor.ForcePoll(now)
	} else {
		reading = a.outdoor.Poll(now)
	}
	if reading != nil {
		a.state.index = reading.Index
	}

	if a.indoor != nil {
		if indoorReading := a.indoor.Poll(now); indoorReading != nil {
			a.state.indoorIndex = indoorReading.Index
		}
	}

	decision := a.control.Next(position, a.state.index, a.state.decision.Ventilating)
	changed := position != a.state.position || decision.Ventilating != a.state.decision.Ventilating

	if !a.cfg.Monitor && a.relay != nil && (decision.Ventilating != a.state.decision.Ventilating || !a.applied) {
		if err := a.relay.Set(decision.Ventilating); err != nil {
			tickErr = err
			logger.Error().Err(err).Bool("ventilating", decision.Ventilating).Msg("Relay drive failed")
		} else {
			a.applied = true
		}
	}

	if changed {
		logger.Info().
			Str("switch", position.String()).
			Int("aqi", a.state.index).
			Bool("ventilating", decision.Ventilating).
			Str("reason", decision.Reason.String()).
			Msg("Control state changed")
	}

	if a.policy.ShouldReport(now, position, decision.Ventilating) {
		snapshot := &telemetry.Snapshot{
			Timestamp:   now,
			Index:       a.state.index,
			IndoorIndex: a.state.indoorIndex,
			Switch:      position,
			Ventilating: decision.Ventilating,
			Reason:      decision.Reason.String(),
		}
		if err := a.reporter.Report(ctx, snapshot); err != nil {
			logger.Warn().Err(err).Msg("Telemetry submission failed")
		}
		a.policy.MarkReported(now, position, decision.Ventilating)
	}

	a.state.position = position
	a.state.decision = decision

	a.logTickState(now)

	return tickErr
}

func (a *app) logTickState(now time.Time) {
	if a.cfg.Debug {
		localDue, cloudDue := a.outdoor.NextDue(now)
		event := logger.Debug().
			Str("switch", a.state.position.String()).
			Int("aqi", a.state.index)
		if a.indoor != nil {
			event = event.Int("indoor_aqi", a.state.indoorIndex)
		}
		event.
			Int("enable_threshold", a.cfg.Thresholds.Enable).
			Int("disable_threshold", a.cfg.Thresholds.Disable).
			Bool("ventilating", a.state.decision.Ventilating).
			Str("reason", a.state.decision.Reason.String()).
			Bool("local_available", a.outdoor.Available(purpleair.KindLocal)).
			Bool("cloud_available", a.outdoor.Available(purpleair.KindCloud)).
			Dur("local_next_due", localDue).
			Dur("cloud_next_due", cloudDue).
			Bool("monitor", a.cfg.Monitor).
			Msg("")
	} else if a.cfg.Verbose || a.cfg.Monitor {
		logger.Info().
			Str("switch", a.state.position.String()).
			Int("aqi", a.state.index).
			Bool("ventilating", a.state.decision.Ventilating).
			Msg("")
	}
}

func (a *app) close() {
	if a.reporter != nil {
		if err := a.reporter.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close telemetry reporter")
		}
	}
	if a.relay != nil {
		if err := a.relay.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to release relay lines")
		}
	}
	if a.switchReader != nil {
		if err := a.switchReader.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to release switch lines")
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// Helper functions
func sensorIDs(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.Itoa(id))
	}

	return out
}

func probeAddress(cfg *config.Config) string {
	if cfg.Connectivity.ProbeAddress != "" {
		return cfg.Connectivity.ProbeAddress
	}
	if cfg.Local.Address != "" {
		return hostPort(cfg.Local.Address, "80")
	}
	if u, err := url.Parse(cfg.Cloud.APIURL); err == nil && u.Host != "" {
		if u.Port() != "" {
			return u.Host
		}
		if u.Scheme == "http" {
			return net.JoinHostPort(u.Hostname(), "80")
		}

		return net.JoinHostPort(u.Hostname(), "443")
	}

	return ""
}

func hostPort(addr, defaultPort string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}

	return net.JoinHostPort(addr, defaultPort)
}
