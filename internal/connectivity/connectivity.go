package connectivity

import (
	"net"
	"sync"
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/logger"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/watchdog"
)

// State is the guard's view of the network link.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Prober makes one bounded attempt to verify the link.
type Prober interface {
	Probe(timeout time.Duration) error
}

// DialProber verifies reachability with a plain TCP dial.
type DialProber struct {
	Address string
}

func (p DialProber) Probe(timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", p.Address, timeout)
	if err != nil {
		return errors.New().Wrap(ErrProbeFailed, err).WithData(p.Address)
	}

	return conn.Close()
}

// Policy yields the wait before the next reconnect attempt. It only decides
// durations; the guard owns the actual waiting, so tests can substitute both
// independently.
type Policy interface {
	Delay(attempt int) time.Duration
}

// FixedDelay waits the same duration between every attempt.
type FixedDelay time.Duration

func (d FixedDelay) Delay(int) time.Duration {
	return time.Duration(d)
}

// Config holds the guard parameters.
type Config struct {
	// Prober verifies the link; required.
	Prober Prober

	// Policy spaces reconnect attempts; required.
	Policy Policy

	// Petter is kept alive through probe waits. Defaults to watchdog.Noop.
	Petter watchdog.Petter

	// AttemptTimeout bounds a single probe.
	AttemptTimeout time.Duration

	// PetInterval slices long waits so the petter is invoked at least once
	// per interval.
	PetInterval time.Duration

	// RevalidateAfter is how long a successful probe stays trusted before
	// EnsureConnected probes again. Zero means every call probes.
	RevalidateAfter time.Duration

	// Sleep is the wait primitive. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Prober == nil {
		return errFactory.WithMessage(ErrInvalidConfig, "connectivity prober is required")
	}
	if c.Policy == nil {
		return errFactory.WithMessage(ErrInvalidConfig, "connectivity retry policy is required")
	}
	if c.AttemptTimeout <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "connectivity attempt timeout must be positive")
	}
	if c.PetInterval <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "connectivity pet interval must be positive")
	}
	if c.RevalidateAfter < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "connectivity revalidate window must not be negative")
	}

	return nil
}

// Guard ensures the network link is usable before any sensor fetch. The
// daemon cannot do anything useful without connectivity, so the reconnect
// loop never gives up; the watchdog supervisor is the backstop that turns a
// hopeless link into a process restart.
type Guard struct {
	prober          Prober
	policy          Policy
	petter          watchdog.Petter
	attemptTimeout  time.Duration
	petInterval     time.Duration
	revalidateAfter time.Duration
	sleep           func(time.Duration)

	mu          sync.Mutex
	state       State
	lastSuccess time.Time
}

func New(cfg Config) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	petter := cfg.Petter
	if petter == nil {
		petter = watchdog.Noop{}
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	return &Guard{
		prober:          cfg.Prober,
		policy:          cfg.Policy,
		petter:          petter,
		attemptTimeout:  cfg.AttemptTimeout,
		petInterval:     cfg.PetInterval,
		revalidateAfter: cfg.RevalidateAfter,
		sleep:           sleep,
	}, nil
}

// State returns the current link state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state
}

// MarkDisconnected records an observed transport failure so the next
// EnsureConnected call probes again regardless of the revalidate window.
func (g *Guard) MarkDisconnected() {
	g.mu.Lock()
	g.state = StateDisconnected
	g.mu.Unlock()
}

// EnsureConnected blocks until the link is verified. It returns immediately
// when a recent probe is still trusted. The loop is deliberately unbounded;
// callers needing a bounded wait must wrap it themselves.
func (g *Guard) EnsureConnected() {
	if g.isFresh() {
		return
	}

	g.setState(StateConnecting)

	for attempt := 0; ; attempt++ {
		g.petter.Pet()

		err := g.prober.Probe(g.attemptTimeout)
		if err == nil {
			g.markConnected()
			if attempt > 0 {
				logger.Info().
					Int("attempts", attempt+1).
					Msg("Connectivity restored")
			}

			return
		}

		logger.Debug().
			Int("attempt", attempt+1).
			AnErr("cause", err).
			Msg("Connectivity probe failed")

		g.wait(g.policy.Delay(attempt))
	}
}

func (g *Guard) isFresh() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateConnected {
		return false
	}

	return time.Since(g.lastSuccess) < g.revalidateAfter
}

func (g *Guard) setState(state State) {
	g.mu.Lock()
	g.state = state
	g.mu.Unlock()
}

func (g *Guard) markConnected() {
	g.mu.Lock()
	g.state = StateConnected
	g.lastSuccess = time.Now()
	g.mu.Unlock()
}

// wait sleeps in pet-sized slices so the supervisor sees liveness across a
// long retry delay.
func (g *Guard) wait(delay time.Duration) {
	for remaining := delay; remaining > 0; remaining -= g.petInterval {
		g.petter.Pet()

		slice := g.petInterval
		if remaining < slice {
			slice = remaining
		}
		g.sleep(slice)
	}

	g.petter.Pet()
}
