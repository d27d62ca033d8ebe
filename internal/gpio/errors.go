package gpio

import "github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"

const (
	ErrChipOpenFailed    = errors.ErrorCode("gpio_chip_open_failed")
	ErrLineRequestFailed = errors.ErrorCode("gpio_line_request_failed")
	ErrReadFailed        = errors.ErrorCode("gpio_read_failed")
	ErrWriteFailed       = errors.ErrorCode("gpio_write_failed")
	ErrCloseFailed       = errors.ErrorCode("gpio_close_failed")
	ErrUnsupported       = errors.ErrorCode("gpio_unsupported_platform")
)
