package gpio

// FakeSwitch is a test double that returns scripted switch positions.
type FakeSwitch struct {
	// Positions contains scripted values; each Read consumes the next one
	// and the last value repeats once the script is exhausted.
	Positions []SwitchPosition

	// ReadError, if set, is returned by Read.
	ReadError error

	// Closed tracks whether Close was called.
	Closed bool

	index int
}

// NewFakeSwitch creates a FakeSwitch that plays back the given positions.
func NewFakeSwitch(positions ...SwitchPosition) *FakeSwitch {
	return &FakeSwitch{Positions: positions}
}

func (f *FakeSwitch) Read() (SwitchPosition, error) {
	if f.ReadError != nil {
		return SwitchOff, f.ReadError
	}

	if len(f.Positions) == 0 {
		return SwitchAuto, nil
	}

	position := f.Positions[f.index]
	if f.index < len(f.Positions)-1 {
		f.index++
	}

	return position, nil
}

func (f *FakeSwitch) Close() error {
	f.Closed = true
	return nil
}

// FakeRelay records relay writes for tests.
type FakeRelay struct {
	// Writes holds every state passed to Set, in order.
	Writes []bool

	// SetError, if set, is returned by Set.
	SetError error

	// Closed tracks whether Close was called.
	Closed bool
}

func (f *FakeRelay) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}

	f.Writes = append(f.Writes, on)

	return nil
}

func (f *FakeRelay) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recent state written, if any.
func (f *FakeRelay) Last() (bool, bool) {
	if len(f.Writes) == 0 {
		return false, false
	}

	return f.Writes[len(f.Writes)-1], true
}
