package chrono

import (
	"time"
	_ "time/tzdata"
)

// DefaultLocation is where the portal (and its student) lives.
const DefaultLocation = "America/Argentina/Cordoba"

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the configured location.
	Now() time.Time
	Location() *time.Location
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime loads the named IANA location, an empty name means DefaultLocation.
func NewStandardTime(name string) (StandardTime, error) {
	if name == "" {
		name = DefaultLocation
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: location}, nil
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// FixedTime always returns the same instant, it is meant for tests.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At
}

func (f FixedTime) Location() *time.Location {
	return f.At.Location()
}

// LocaleLayout matches what es-AR renders for Date.toLocaleString().
const LocaleLayout = "2/1/2006, 15:04:05"

// FormatLocal renders t in the location of the given clock.
func FormatLocal(clock TimeAPI, t time.Time) string {
	return t.In(clock.Location()).Format(LocaleLayout)
}
