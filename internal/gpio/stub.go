//go:build !linux

package gpio

import "github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"

// RealSwitch is not available on non-Linux platforms.
type RealSwitch struct{}

func NewRealSwitch(chipName string, onPin, offPin int) (*RealSwitch, error) {
	return nil, errors.New().WithMessage(ErrUnsupported, "gpio requires Linux")
}

func (s *RealSwitch) Read() (SwitchPosition, error) {
	return SwitchOff, errors.New().New(ErrUnsupported)
}

func (s *RealSwitch) Close() error {
	return nil
}

// RealRelay is not available on non-Linux platforms.
type RealRelay struct{}

func NewRealRelay(chipName string, pins []int) (*RealRelay, error) {
	return nil, errors.New().WithMessage(ErrUnsupported, "gpio requires Linux")
}

func (r *RealRelay) Set(on bool) error {
	return errors.New().New(ErrUnsupported)
}

func (r *RealRelay) Close() error {
	return nil
}
