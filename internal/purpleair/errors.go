package purpleair

import "github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"

const (
	// Fetch Errors
	ErrTransport = errors.ErrorCode("sensor_transport_failure")
	ErrBadStatus = errors.ErrorCode("sensor_bad_status")
	ErrMalformed = errors.ErrorCode("sensor_malformed_payload")
	ErrNoData    = errors.ErrorCode("sensor_no_data")
)

// IsTransport reports whether the fetch never reached the provider.
func IsTransport(err error) bool {
	return errors.HasCode(err, ErrTransport)
}

// IsNoData reports whether the provider answered but carried no usable
// numeric value. Unlike transport failures, retrying immediately will not
// help.
func IsNoData(err error) bool {
	return errors.HasCode(err, ErrNoData)
}

// IsRetryLater reports whether the failure was in reaching or speaking to
// the provider, where the next cadence interval is worth another attempt.
func IsRetryLater(err error) bool {
	return errors.HasCode(err, ErrTransport) || errors.HasCode(err, ErrBadStatus)
}
