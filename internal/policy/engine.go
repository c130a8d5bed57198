package policy

import (
	"context"
	"fmt"

	"gradewatch/internal/assert"
	"gradewatch/internal/chrono"
	"gradewatch/internal/portal"
	"gradewatch/internal/state"
	"gradewatch/internal/telemetry"
)

const (
	report_engine_load_state = "engine.load-state"
	report_engine_commit     = "engine.commit"
)

// Engine binds Decide to the state store and the clock.
type Engine struct {
	mode  Mode
	store state.Store
	clock chrono.TimeAPI
	tel   telemetry.API
}

func NewEngine(mode Mode, store state.Store, clock chrono.TimeAPI, tel telemetry.API) Engine {
	assert.NotNil(store, "state store")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "telemetry")
	return Engine{
		mode:  mode,
		store: store,
		clock: clock,
		tel:   telemetry.NewScopedAPI("policy", tel),
	}
}

func (e Engine) Mode() Mode {
	return e.mode
}

// Outcome is the result of evaluating a reading. Event is nil when nothing
// should be sent.
type Outcome struct {
	Decision Decision
	Event    *Event

	next *state.State
}

// Evaluate reads the prior state (OnChange only), decides and composes the
// message. Nothing is persisted until Commit.
func (e Engine) Evaluate(ctx context.Context, r portal.Reading) (Outcome, error) {
	var prior state.State
	if e.mode == OnChange {
		var err error
		prior, err = e.store.Load(ctx)
		if err != nil {
			e.tel.ReportBroken(report_engine_load_state, err)
			return Outcome{}, fmt.Errorf("load state: %w", err)
		}
	}

	d := Decide(e.mode, prior, r.Cell)
	out := Outcome{Decision: d}
	if d.Notify {
		ev := Compose(d, r, e.clock)
		out.Event = &ev
	}
	if e.mode == OnChange {
		next := state.New(d.Current, e.clock.Now())
		out.next = &next
	}

	e.tel.ReportDebug(
		"evaluated reading",
		"mode", e.mode.String(),
		"previous", prior.GradeOr("<none>"),
		"current", d.Current,
		"notify", d.Notify,
		"category", d.Category.String(),
	)
	return out, nil
}

// Commit persists the reading as the new baseline. It is a no-op in
// AlwaysNotify mode.
func (e Engine) Commit(ctx context.Context, out Outcome) error {
	if out.next == nil {
		return nil
	}
	err := e.store.Save(ctx, *out.next)
	if err != nil {
		e.tel.ReportBroken(report_engine_commit, err)
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
