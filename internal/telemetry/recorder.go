package telemetry

import (
	"strings"
	"sync"
)

// Report kinds captured by Recorder.
const (
	KindBroken  = "broken"
	KindWarning = "warning"
	KindDebug   = "debug"
	KindCount   = "count"
)

// Report is a single call captured by Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory so tests can assert on
// what a component reported.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mu.Lock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
	r.mu.Unlock()
}

func (r *Recorder) ReportBroken(id string, params ...any)  { r.add(KindBroken, id, params) }
func (r *Recorder) ReportWarning(id string, params ...any) { r.add(KindWarning, id, params) }
func (r *Recorder) ReportDebug(msg string, params ...any)  { r.add(KindDebug, msg, params) }
func (r *Recorder) ReportCount(id string, count int64)     { r.add(KindCount, id, []any{count}) }

// Reports returns a copy of the captured reports of the given kind, an empty
// kind returns all of them.
func (r *Recorder) Reports(kind string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Report
	for _, rep := range r.reports {
		if kind == "" || rep.Kind == kind {
			out = append(out, rep)
		}
	}
	return out
}

// Has reports whether a report of the given kind has an id containing substr.
func (r *Recorder) Has(kind, substr string) bool {
	for _, rep := range r.Reports(kind) {
		if strings.Contains(rep.ID, substr) {
			return true
		}
	}
	return false
}
