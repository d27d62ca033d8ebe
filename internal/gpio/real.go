//go:build linux

package gpio

import (
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
)

// settleDelay separates the two samples of a debounced read.
const settleDelay = 5 * time.Millisecond

// RealSwitch reads the three-position switch from two input lines.
type RealSwitch struct {
	chip    *gpiocdev.Chip
	onLine  *gpiocdev.Line
	offLine *gpiocdev.Line
	deb     debouncer
}

// NewRealSwitch requests the two switch contact lines from the named chip.
// The contacts close to ground, so both lines are pulled up and read
// active-low.
func NewRealSwitch(chipName string, onPin, offPin int) (*RealSwitch, error) {
	errFactory := errors.New()

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, errFactory.Wrap(ErrChipOpenFailed, err)
	}

	onLine, err := chip.RequestLine(onPin, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	if err != nil {
		chip.Close()
		return nil, errFactory.Wrap(ErrLineRequestFailed, err).WithData(onPin)
	}

	offLine, err := chip.RequestLine(offPin, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	if err != nil {
		onLine.Close()
		chip.Close()
		return nil, errFactory.Wrap(ErrLineRequestFailed, err).WithData(offPin)
	}

	return &RealSwitch{
		chip:    chip,
		onLine:  onLine,
		offLine: offLine,
	}, nil
}

// Read samples the contact lines twice with a short settle delay between
// them and returns the debounced position.
func (s *RealSwitch) Read() (SwitchPosition, error) {
	first, err := s.sample()
	if err != nil {
		return SwitchOff, err
	}

	time.Sleep(settleDelay)

	second, err := s.sample()
	if err != nil {
		return SwitchOff, err
	}

	return s.deb.sample(first, second), nil
}

func (s *RealSwitch) sample() (SwitchPosition, error) {
	errFactory := errors.New()

	onRaw, err := s.onLine.Value()
	if err != nil {
		return SwitchOff, errFactory.Wrap(ErrReadFailed, err)
	}

	offRaw, err := s.offLine.Value()
	if err != nil {
		return SwitchOff, errFactory.Wrap(ErrReadFailed, err)
	}

	return MapSwitchLines(onRaw != 0, offRaw != 0), nil
}

// Close releases the switch lines and the chip handle.
func (s *RealSwitch) Close() error {
	errFactory := errors.New()

	var firstErr error
	if err := s.onLine.Close(); err != nil {
		firstErr = errFactory.Wrap(ErrCloseFailed, err)
	}
	if err := s.offLine.Close(); err != nil && firstErr == nil {
		firstErr = errFactory.Wrap(ErrCloseFailed, err)
	}
	if err := s.chip.Close(); err != nil && firstErr == nil {
		firstErr = errFactory.Wrap(ErrCloseFailed, err)
	}

	return firstErr
}

// RealRelay drives the redundant relay pair. Both lines always carry the
// same value; the second relay is a wiring-level backup.
type RealRelay struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewRealRelay requests the relay output lines, released (off) initially.
func NewRealRelay(chipName string, pins []int) (*RealRelay, error) {
	errFactory := errors.New()

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, errFactory.Wrap(ErrChipOpenFailed, err)
	}

	relay := &RealRelay{chip: chip}
	for _, pin := range pins {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			relay.Close()
			return nil, errFactory.Wrap(ErrLineRequestFailed, err).WithData(pin)
		}
		relay.lines = append(relay.lines, line)
	}

	return relay, nil
}

// Set drives every relay line to the requested state.
func (r *RealRelay) Set(on bool) error {
	errFactory := errors.New()

	value := 0
	if on {
		value = 1
	}

	for _, line := range r.lines {
		if err := line.SetValue(value); err != nil {
			return errFactory.Wrap(ErrWriteFailed, err)
		}
	}

	return nil
}

// Close releases the relay lines, leaving them de-energized, and closes the
// chip handle.
func (r *RealRelay) Close() error {
	errFactory := errors.New()

	var firstErr error
	for _, line := range r.lines {
		if err := line.SetValue(0); err != nil && firstErr == nil {
			firstErr = errFactory.Wrap(ErrCloseFailed, err)
		}
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = errFactory.Wrap(ErrCloseFailed, err)
		}
	}
	if err := r.chip.Close(); err != nil && firstErr == nil {
		firstErr = errFactory.Wrap(ErrCloseFailed, err)
	}

	return firstErr
}
