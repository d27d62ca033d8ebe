package telemetry

import (
	"context"
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/gpio"
)

// Reporter defines the core domain interface
type Reporter interface {
	Report(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Snapshot represents one reported control state
type Snapshot struct {
	Timestamp   time.Time
	Index       int
	IndoorIndex int // negative when no indoor channel is configured
	Switch      gpio.SwitchPosition
	Ventilating bool
	Reason      string
}
