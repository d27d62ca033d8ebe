package watchdog

import "github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"

const (
	ErrInvalidTimeout       = errors.ErrorCode("watchdog_invalid_timeout")
	ErrInvalidCheckInterval = errors.ErrorCode("watchdog_invalid_check_interval")
)
