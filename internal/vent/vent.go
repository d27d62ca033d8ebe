package vent

import (
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/gpio"
)

// Reason explains why a decision landed on its ventilating value.
type Reason int

const (
	ReasonNoChange Reason = iota
	ReasonForcedOn
	ReasonForcedOff
	ReasonIndexLow
	ReasonIndexHigh
)

func (r Reason) String() string {
	switch r {
	case ReasonForcedOn:
		return "forced_on"
	case ReasonForcedOff:
		return "forced_off"
	case ReasonIndexLow:
		return "index_low"
	case ReasonIndexHigh:
		return "index_high"
	default:
		return "no_change"
	}
}

// Decision is the per-tick ventilation outcome.
type Decision struct {
	Ventilating bool
	Reason      Reason
}

// Controller decides whether to ventilate from the switch position and the
// current index value. In automatic mode it applies hysteresis: ventilation
// starts below the enable threshold, stops at or above the disable
// threshold, and holds its previous state in between, so a noisy index near
// a single setpoint cannot chatter the relay.
type Controller struct {
	enableThreshold  int
	disableThreshold int
}

// NewController validates the hysteresis band. The enable threshold must lie
// strictly below the disable threshold; anything else collapses the band.
func NewController(enableThreshold, disableThreshold int) (*Controller, error) {
	if enableThreshold >= disableThreshold {
		return nil, errors.New().New(errors.ErrInvalidThresholds).
			WithData(map[string]int{"enable": enableThreshold, "disable": disableThreshold})
	}

	return &Controller{
		enableThreshold:  enableThreshold,
		disableThreshold: disableThreshold,
	}, nil
}

// Next computes the decision for one tick. A negative index means no usable
// reading exists yet; in automatic mode that preserves the previous state
// rather than acting on data we do not have.
func (c *Controller) Next(position gpio.SwitchPosition, index int, previous bool) Decision {
	switch position {
	case gpio.SwitchOn:
		return Decision{Ventilating: true, Reason: ReasonForcedOn}
	case gpio.SwitchAuto:
		return c.auto(index, previous)
	default:
		return Decision{Ventilating: false, Reason: ReasonForcedOff}
	}
}

func (c *Controller) auto(index int, previous bool) Decision {
	if index < 0 {
		return Decision{Ventilating: previous, Reason: ReasonNoChange}
	}

	if index < c.enableThreshold {
		return Decision{Ventilating: true, Reason: ReasonIndexLow}
	}

	if index >= c.disableThreshold {
		return Decision{Ventilating: false, Reason: ReasonIndexHigh}
	}

	return Decision{Ventilating: previous, Reason: ReasonNoChange}
}
