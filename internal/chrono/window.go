package chrono

import (
	"fmt"
	"strings"
	"time"
)

// Window is a daily time-of-day range [Start, End) expressed in minutes after
// midnight. A window where Start > End wraps around midnight. The zero Window
// is disabled and contains nothing.
type Window struct {
	Start int
	End   int
	set   bool
}

// NewWindow builds a window from hour/minute pairs.
func NewWindow(startHour, startMin, endHour, endMin int) Window {
	return Window{
		Start: startHour*60 + startMin,
		End:   endHour*60 + endMin,
		set:   true,
	}
}

// ParseWindow parses "HH:MM-HH:MM". An empty string, "off" or "none" yields a
// disabled window.
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "off", "none":
		return Window{}, nil
	}
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return Window{}, fmt.Errorf("parse window %q: expected HH:MM-HH:MM", s)
	}
	start, err := parseClock(from)
	if err != nil {
		return Window{}, fmt.Errorf("parse window %q: %w", s, err)
	}
	end, err := parseClock(to)
	if err != nil {
		return Window{}, fmt.Errorf("parse window %q: %w", s, err)
	}
	return Window{Start: start, End: end, set: true}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (w Window) Enabled() bool {
	return w.set && w.Start != w.End
}

// Contains reports whether the wall clock of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Enabled() {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	if w.Start < w.End {
		return minute >= w.Start && minute < w.End
	}
	return minute >= w.Start || minute < w.End
}

func (w Window) String() string {
	if !w.Enabled() {
		return "disabled"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}
