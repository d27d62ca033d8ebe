package telemetry

import (
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/gpio"
)

// Policy decides when the control state is worth submitting: immediately
// after a switch or ventilation change, otherwise once the reporting
// interval has elapsed. The first consultation always reports.
type Policy struct {
	interval time.Duration

	reported   bool
	lastReport time.Time
	lastSwitch gpio.SwitchPosition
	lastVent   bool
}

func NewPolicy(interval time.Duration) *Policy {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Policy{interval: interval}
}

func (p *Policy) ShouldReport(now time.Time, position gpio.SwitchPosition, ventilating bool) bool {
	if !p.reported {
		return true
	}
	if position != p.lastSwitch || ventilating != p.lastVent {
		return true
	}
	return now.Sub(p.lastReport) >= p.interval
}

// MarkReported records that a submission was attempted, successful or not.
func (p *Policy) MarkReported(now time.Time, position gpio.SwitchPosition, ventilating bool) {
	p.reported = true
	p.lastReport = now
	p.lastSwitch = position
	p.lastVent = ventilating
}
