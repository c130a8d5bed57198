// Package policy decides whether a freshly read grade is worth a
// notification and assembles the message text.
package policy

import (
	"strings"

	"gradewatch/internal/state"
)

type Mode int

const (
	// OnChange notifies only when the grade differs from the persisted one.
	OnChange Mode = iota
	// AlwaysNotify notifies on every check and never touches persisted state.
	AlwaysNotify
)

func (m Mode) String() string {
	switch m {
	case OnChange:
		return "on-change"
	case AlwaysNotify:
		return "always"
	}
	return "unknown"
}

type Category int

const (
	Periodic Category = iota + 1
	Changed
	NewlyAvailable
)

func (c Category) String() string {
	switch c {
	case Periodic:
		return "periodic"
	case Changed:
		return "changed"
	case NewlyAvailable:
		return "newly-available"
	}
	return "none"
}

// notPublished is what the portal shows in a grade cell before the grade
// is loaded.
const notPublished = "0"

type Decision struct {
	Notify   bool
	Category Category
	Current  string
	// Previous is the persisted grade, only set when one was recorded.
	Previous string
}

// Decide applies the notification rules. Grades are compared trimmed, prior
// is ignored in AlwaysNotify mode.
func Decide(mode Mode, prior state.State, current string) Decision {
	current = strings.TrimSpace(current)
	d := Decision{Current: current}

	if mode == AlwaysNotify {
		d.Notify = true
		d.Category = Periodic
		return d
	}

	if !prior.Recorded() {
		if current != notPublished {
			d.Notify = true
			d.Category = NewlyAvailable
		}
		return d
	}

	d.Previous = strings.TrimSpace(*prior.Grade)
	if current != d.Previous {
		d.Notify = true
		d.Category = Changed
	}
	return d
}
