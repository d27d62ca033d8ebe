package purpleair

import "time"

// Kind identifies which provider produced a reading.
type Kind int

const (
	KindLocal Kind = iota
	KindCloud
)

func (k Kind) String() string {
	if k == KindCloud {
		return "cloud"
	}

	return "local"
}

// Reading is one successfully acquired index value. A reading is immutable;
// newer readings supersede older ones rather than mutating them.
type Reading struct {
	Index      int
	Source     Kind
	ObtainedAt time.Time
	Valid      bool
}

// Source fetches one provider's current value. Implementations keep at most
// one fetch in flight at a time.
type Source interface {
	Name() string
	Fetch(now time.Time) (Reading, error)
}
