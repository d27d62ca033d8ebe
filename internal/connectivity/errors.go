package connectivity

import "github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig

	// Probe Errors
	ErrProbeFailed = errors.ErrorCode("connectivity_probe_failed")
)
