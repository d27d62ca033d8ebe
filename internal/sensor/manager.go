package sensor

import (
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/logger"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/purpleair"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/watchdog"
)

const (
	defaultLocalInterval = time.Minute
	defaultCloudInterval = 20 * time.Minute
	defaultAttempts      = 3
	defaultRetryDelay    = 500 * time.Millisecond
)

// Guard is the slice of the connectivity layer the manager needs: a
// blocking call that only returns once the link is usable.
type Guard interface {
	EnsureConnected()
}

// pollTimer tracks one source's cadence. The zero value is immediately due,
// which gives a fresh process its first reading without waiting out an
// interval.
type pollTimer struct {
	lastAttempt time.Time
	interval    time.Duration
}

func (t *pollTimer) due(now time.Time) bool {
	if t.lastAttempt.IsZero() {
		return true
	}

	return !now.Before(t.lastAttempt.Add(t.interval))
}

func (t *pollTimer) stamp(now time.Time) {
	t.lastAttempt = now
}

func (t *pollTimer) reset() {
	t.lastAttempt = time.Time{}
}

func (t *pollTimer) untilDue(now time.Time) time.Duration {
	if t.lastAttempt.IsZero() {
		return 0
	}

	remaining := t.lastAttempt.Add(t.interval).Sub(now)
	if remaining < 0 {
		return 0
	}

	return remaining
}

// Config holds the acquisition parameters for one measurement channel.
type Config struct {
	// Name labels the channel in logs, e.g. "outdoor" or "indoor".
	Name string

	// Local is the LAN sensor; nil when unconfigured.
	Local purpleair.Source

	// Cloud is the API fallback; nil when unconfigured.
	Cloud purpleair.Source

	// LocalInterval is the LAN polling cadence.
	LocalInterval time.Duration

	// CloudInterval is the API polling cadence. The API is rate limited, so
	// this runs far slower than the LAN cadence.
	CloudInterval time.Duration

	// LocalAttempts is the number of LAN tries per due poll.
	LocalAttempts int

	// RetryDelay separates LAN attempts within one poll.
	RetryDelay time.Duration

	// Guard, when set, is consulted before any fetch.
	Guard Guard

	// Petter is kept alive through fetches and retry waits. Defaults to
	// watchdog.Noop.
	Petter watchdog.Petter

	// Sleep is the wait primitive. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Manager owns polling cadence, fallback ordering, and per-source
// availability for one measurement channel. The LAN sensor is preferred;
// the cloud API only fills in when the LAN sensor is unconfigured or
// failing. All methods are called from the single control loop goroutine.
type Manager struct {
	name       string
	local      purpleair.Source
	cloud      purpleair.Source
	localTimer pollTimer
	cloudTimer pollTimer
	attempts   int
	retryDelay time.Duration
	guard      Guard
	petter     watchdog.Petter
	sleep      func(time.Duration)

	localAvailable bool
	cloudAvailable bool
}

func New(cfg Config) (*Manager, error) {
	if cfg.Local == nil && cfg.Cloud == nil {
		return nil, errors.New().New(errors.ErrNoSensors)
	}

	localInterval := cfg.LocalInterval
	if localInterval <= 0 {
		localInterval = defaultLocalInterval
	}

	cloudInterval := cfg.CloudInterval
	if cloudInterval <= 0 {
		cloudInterval = defaultCloudInterval
	}

	attempts := cfg.LocalAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	petter := cfg.Petter
	if petter == nil {
		petter = watchdog.Noop{}
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	name := cfg.Name
	if name == "" {
		name = "outdoor"
	}

	return &Manager{
		name:       name,
		local:      cfg.Local,
		cloud:      cfg.Cloud,
		localTimer: pollTimer{interval: localInterval},
		cloudTimer: pollTimer{interval: cloudInterval},
		attempts:   attempts,
		retryDelay: retryDelay,
		guard:      cfg.Guard,
		petter:     petter,
		sleep:      sleep,
	}, nil
}

func (m *Manager) Name() string {
	return m.name
}

// Poll runs one acquisition pass. It returns nil when no source produced a
// fresh reading this tick; the caller keeps its last known value in that
// case rather than treating the gap as an invalidation.
func (m *Manager) Poll(now time.Time) *purpleair.Reading {
	localDue := m.local != nil && m.localTimer.due(now)
	cloudDue := m.cloud != nil && m.cloudTimer.due(now)
	if !localDue && !cloudDue {
		return nil
	}

	if m.guard != nil {
		m.guard.EnsureConnected()
		m.petter.Pet()
	}

	if localDue {
		reading, ok := m.pollLocal(now)
		m.localTimer.stamp(now)
		if ok {
			// A fresh LAN reading satisfies the cloud cadence too, so a
			// same-tick API call is suppressed even when its timer is due.
			m.cloudTimer.stamp(now)
			return &reading
		}
	}

	if m.cloud != nil && m.cloudTimer.due(now) {
		reading, ok := m.pollCloud(now)
		m.cloudTimer.stamp(now)
		if ok {
			return &reading
		}
	}

	return nil
}

// ForcePoll discards both cadence timers and polls immediately.
func (m *Manager) ForcePoll(now time.Time) *purpleair.Reading {
	m.localTimer.reset()
	m.cloudTimer.reset()

	return m.Poll(now)
}

// Available reports whether the given source kind produced a usable value
// on its most recent attempt.
func (m *Manager) Available(kind purpleair.Kind) bool {
	if kind == purpleair.KindCloud {
		return m.cloudAvailable
	}

	return m.localAvailable
}

// NextDue returns how long until each source's next poll. Zero means due
// now; an unconfigured source is always reported as zero.
func (m *Manager) NextDue(now time.Time) (local, cloud time.Duration) {
	return m.localTimer.untilDue(now), m.cloudTimer.untilDue(now)
}

func (m *Manager) pollLocal(now time.Time) (purpleair.Reading, bool) {
	m.localAvailable = false

	for attempt := 1; attempt <= m.attempts; attempt++ {
		m.petter.Pet()

		reading, err := m.local.Fetch(now)
		if err == nil {
			m.localAvailable = true
			logger.Debug().
				Str("channel", m.name).
				Str("source", m.local.Name()).
				Int("aqi", reading.Index).
				Int("attempt", attempt).
				Msg("Local sensor read")

			return reading, true
		}

		logger.Debug().
			Str("channel", m.name).
			Str("source", m.local.Name()).
			Int("attempt", attempt).
			AnErr("cause", err).
			Msg("Local fetch failed")

		if attempt < m.attempts {
			m.wait(m.retryDelay)
		}
	}

	logger.Warn().
		Str("channel", m.name).
		Int("attempts", m.attempts).
		Msg("Local sensor unavailable")

	return purpleair.Reading{}, false
}

func (m *Manager) pollCloud(now time.Time) (purpleair.Reading, bool) {
	m.cloudAvailable = false

	// A single attempt: the cloud timer's long interval already rate-limits
	// retries across ticks.
	reading, err := m.cloud.Fetch(now)
	m.petter.Pet()
	if err != nil {
		logger.Warn().
			Str("channel", m.name).
			Str("source", m.cloud.Name()).
			AnErr("cause", err).
			Msg("Cloud fetch failed")

		return purpleair.Reading{}, false
	}

	m.cloudAvailable = true
	logger.Debug().
		Str("channel", m.name).
		Str("source", m.cloud.Name()).
		Int("aqi", reading.Index).
		Msg("Cloud sensors read")

	return reading, true
}

func (m *Manager) wait(delay time.Duration) {
	m.petter.Pet()
	m.sleep(delay)
	m.petter.Pet()
}
