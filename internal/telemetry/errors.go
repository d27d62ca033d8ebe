package telemetry

import "github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig   = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidURL      = errors.ErrorCode("telemetry_invalid_url")
	ErrInvalidInterval = errors.ErrorCode("telemetry_invalid_interval")

	// Submission Errors
	ErrInvalidSnapshot = errors.ErrorCode("telemetry_invalid_snapshot")
	ErrSubmitFailed    = errors.ErrorCode("telemetry_submit_failed")
	ErrBadResponse     = errors.ErrorCode("telemetry_bad_response")
)
