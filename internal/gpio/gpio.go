// Package gpio provides the override switch input and the ventilation relay
// output with hardware abstraction. The real implementation uses the Linux
// GPIO character device; the fake implementation allows testing without
// hardware.
package gpio

// SwitchPosition is the state of the three-position override switch.
type SwitchPosition int

const (
	SwitchOff SwitchPosition = iota
	SwitchAuto
	SwitchOn
)

// String returns the encoding used in logs and telemetry submissions.
func (p SwitchPosition) String() string {
	switch p {
	case SwitchOn:
		return "ON"
	case SwitchAuto:
		return "PURPLEAIR"
	default:
		return "OFF"
	}
}

// SwitchReader reads the current switch position.
type SwitchReader interface {
	// Read returns a debounced, freshly sampled position.
	Read() (SwitchPosition, error)

	// Close releases GPIO resources.
	Close() error
}

// Relay drives the ventilation relay output.
type Relay interface {
	// Set energizes or releases the relay. Writes are idempotent.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// MapSwitchLines converts the two switch contact levels to a position.
// The switch is a center-off toggle with both contacts read active-low
// against pull-ups: the handle resting on a contact makes that line active,
// the center position leaves both inactive. Both lines active cannot happen
// on a healthy switch and maps to Off.
func MapSwitchLines(onActive, offActive bool) SwitchPosition {
	switch {
	case onActive && offActive:
		return SwitchOff
	case onActive:
		return SwitchOn
	case offActive:
		return SwitchOff
	default:
		return SwitchAuto
	}
}

// debouncer adopts a new position only when two consecutive samples agree;
// otherwise it keeps reporting the last stable position. The zero value
// reports Off until a stable sample arrives.
type debouncer struct {
	stable SwitchPosition
}

func (d *debouncer) sample(first, second SwitchPosition) SwitchPosition {
	if first == second {
		d.stable = first
	}

	return d.stable
}
