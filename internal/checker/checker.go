// Package checker runs one complete grade check: log in, read the grade,
// decide, notify and persist.
package checker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"gradewatch/internal/assert"
	"gradewatch/internal/chrono"
	"gradewatch/internal/gradestore"
	"gradewatch/internal/notify"
	"gradewatch/internal/policy"
	"gradewatch/internal/portal"
	"gradewatch/internal/state"
	"gradewatch/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_checker_run     = "checker.run"
	report_checker_locked  = "checker.locked"
	report_checker_close   = "checker.close-session"
	report_checker_history = "checker.push-history"
	report_checker_checks  = "checker.checks"
)

var tracer = telemetry.Tracer("gradewatch/internal/checker")

// Locker guards a check against other processes.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

type Notifier interface {
	Send(ctx context.Context, message string) notify.Result
}

type History interface {
	Push(ctx context.Context, snap gradestore.Snapshot) error
}

type Target struct {
	Course string
	Column int
}

type Options struct {
	Driver      portal.Driver
	Credentials portal.Credentials
	Target      Target
	Engine      policy.Engine
	Notifier    Notifier
	Locker      Locker
	// History is optional, a nil History records nothing.
	History History
	Clock   chrono.TimeAPI
}

type Checker struct {
	opts   Options
	tel    telemetry.API
	checks int64
}

func New(opts Options, tel telemetry.API) *Checker {
	assert.NotNil(opts.Driver, "driver")
	assert.NotNil(opts.Notifier, "notifier")
	assert.NotNil(opts.Locker, "locker")
	assert.NotNil(opts.Clock, "clock")
	assert.NotNil(tel, "telemetry")
	assert.NotEmptyStr(opts.Target.Course, "course")
	return &Checker{
		opts: opts,
		tel:  telemetry.NewScopedAPI("checker", tel),
	}
}

// Report describes a completed check.
type Report struct {
	Reading  portal.Reading
	Decision policy.Decision
	// Delivery is nil when the decision was not to notify.
	Delivery *notify.Result
}

// Run performs a check and swallows its error: failures are logged with
// their stack and turned into a nil report.
func (c *Checker) Run(ctx context.Context) *Report {
	report, err := c.Check(ctx)
	if errors.Is(err, state.ErrLocked) {
		c.tel.ReportWarning(report_checker_locked, err)
		return nil
	}
	if err != nil {
		c.tel.ReportBroken(report_checker_run, err, string(debug.Stack()))
		return nil
	}
	return &report
}

// Check performs a check and returns its error. State is only persisted
// when every step before it succeeded.
func (c *Checker) Check(ctx context.Context) (report Report, err error) {
	ctx, span := tracer.Start(ctx, "checker:Check")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	c.checks++
	c.tel.ReportCount(report_checker_checks, c.checks)

	// Only on-change checks read and write state, so only they lock.
	if c.opts.Engine.Mode() == policy.OnChange {
		unlock, err := c.opts.Locker.Lock(ctx)
		if err != nil {
			return Report{}, err
		}
		defer func() {
			if unlockErr := unlock(); unlockErr != nil {
				c.tel.ReportWarning(report_checker_run, fmt.Errorf("unlock: %w", unlockErr))
			}
		}()
	}

	reading, err := c.read(ctx)
	if err != nil {
		return Report{}, err
	}
	span.SetAttributes(
		attribute.String("header", reading.Header),
		attribute.String("grade", reading.Cell),
	)

	out, err := c.opts.Engine.Evaluate(ctx, reading)
	if err != nil {
		return Report{}, err
	}
	report = Report{Reading: reading, Decision: out.Decision}

	if out.Event != nil {
		res := c.opts.Notifier.Send(ctx, out.Event.Message)
		report.Delivery = &res
		span.SetAttributes(attribute.String("delivery", res.Status.String()))
	} else {
		c.tel.ReportDebug("no notification", "grade", reading.Cell)
	}

	err = c.opts.Engine.Commit(ctx, out)
	if err != nil {
		return Report{}, err
	}

	c.record(ctx, reading)
	return report, nil
}

// read holds the portal session for as short as possible, it is closed
// before deciding.
func (c *Checker) read(ctx context.Context) (portal.Reading, error) {
	session, err := c.opts.Driver.Authenticate(ctx, c.opts.Credentials)
	if err != nil {
		return portal.Reading{}, fmt.Errorf("authenticate: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			c.tel.ReportWarning(report_checker_close, closeErr)
		}
	}()

	course, err := session.FindCourse(ctx, c.opts.Target.Course)
	if err != nil {
		return portal.Reading{}, fmt.Errorf("find course: %w", err)
	}
	header, cell, err := session.ReadGradeCell(ctx, course, c.opts.Target.Column)
	if err != nil {
		return portal.Reading{}, fmt.Errorf("read grade: %w", err)
	}

	reading := portal.Reading{
		Course:     c.opts.Target.Course,
		Header:     header,
		Cell:       cell,
		ObservedAt: c.opts.Clock.Now(),
	}
	c.tel.ReportDebug("grade read", "course", course.Label, "header", header, "cell", cell)
	return reading, nil
}

// record appends the reading to the history, a failure there does not fail
// the check since the state file is already up to date.
func (c *Checker) record(ctx context.Context, r portal.Reading) {
	if c.opts.History == nil {
		return
	}
	err := c.opts.History.Push(ctx, gradestore.Snapshot{
		Course: r.Course,
		Column: r.Header,
		Grade:  r.Cell,
		Time:   r.ObservedAt,
	})
	if err != nil {
		c.tel.ReportWarning(report_checker_history, err)
	}
}
