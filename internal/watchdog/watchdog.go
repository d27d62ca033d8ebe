package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/logger"
)

// Petter acknowledges liveness. Anything performing blocking work takes a
// Petter and calls Pet often enough to stay under the supervisor timeout.
type Petter interface {
	Pet()
}

// Func adapts a plain function to a Petter.
type Func func()

func (f Func) Pet() { f() }

// Noop satisfies Petter where no supervisor is wired, such as tests.
type Noop struct{}

func (Noop) Pet() {}

// Config holds the supervisor parameters.
type Config struct {
	// Timeout is the longest allowed gap between pets.
	Timeout time.Duration

	// CheckInterval is how often the supervisor inspects the last pet.
	CheckInterval time.Duration

	// OnExpire runs once when the timeout elapses without a pet. When nil,
	// the supervisor logs fatally so the service manager restarts the
	// process.
	OnExpire func(sincePet time.Duration)
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Timeout <= 0 {
		return errFactory.New(ErrInvalidTimeout)
	}
	if c.CheckInterval <= 0 || c.CheckInterval >= c.Timeout {
		return errFactory.New(ErrInvalidCheckInterval)
	}

	return nil
}

// Watchdog supervises the control loop the way a hardware watchdog
// supervises firmware: the loop keeps petting it, and a missed deadline ends
// the process so the service manager brings up a fresh one. A tick stuck
// beyond recovery is handled by restart, not by in-process error handling.
type Watchdog struct {
	timeout  time.Duration
	interval time.Duration
	onExpire func(sincePet time.Duration)

	mu      sync.Mutex
	lastPet time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config) (*Watchdog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	onExpire := cfg.OnExpire
	if onExpire == nil {
		onExpire = func(sincePet time.Duration) {
			logger.Fatal().
				Dur("since_pet", sincePet).
				Msg("Watchdog expired, restarting")
		}
	}

	return &Watchdog{
		timeout:  cfg.Timeout,
		interval: cfg.CheckInterval,
		onExpire: onExpire,
		lastPet:  time.Now(),
		stop:     make(chan struct{}),
	}, nil
}

// Pet acknowledges liveness and rearms the timeout.
func (w *Watchdog) Pet() {
	w.mu.Lock()
	w.lastPet = time.Now()
	w.mu.Unlock()
}

// Start launches the supervisor. It runs until the context is canceled, Stop
// is called, or the timeout expires.
func (w *Watchdog) Start(ctx context.Context) {
	w.Pet()
	go w.run(ctx)
}

// Stop shuts the supervisor down without firing the expiry action.
func (w *Watchdog) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
}

func (w *Watchdog) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.mu.Lock()
			sincePet := time.Since(w.lastPet)
			w.mu.Unlock()

			if sincePet > w.timeout {
				w.onExpire(sincePet)
				return
			}
		}
	}
}
