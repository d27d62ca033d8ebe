package telemetry

import (
	"net/url"
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
)

const (
	defaultInterval = 15 * time.Minute
	defaultTimeout  = 5 * time.Second
)

type Config struct {
	Enabled  bool
	URL      string
	Interval time.Duration
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: defaultInterval,
		Timeout:  defaultTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return errFactory.New(ErrInvalidURL)
	}
	if _, err := url.ParseRequestURI(c.URL); err != nil {
		return errFactory.Wrap(ErrInvalidURL, err)
	}
	if c.Interval <= 0 {
		return errFactory.New(ErrInvalidInterval)
	}
	return nil
}

func boolToState(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
