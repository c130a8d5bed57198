// Package notify delivers messages to the student, honoring quiet hours.
package notify

import (
	"context"
	"fmt"

	"gradewatch/internal/assert"
	"gradewatch/internal/chrono"
	"gradewatch/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_notifier_suppressed = "notifier.suppressed"
	report_notifier_send       = "notifier.send"
)

var tracer = telemetry.Tracer("gradewatch/internal/notify")

type Status int

const (
	Sent Status = iota + 1
	Suppressed
	Failed
)

func (s Status) String() string {
	switch s {
	case Sent:
		return "sent"
	case Suppressed:
		return "suppressed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is the outcome of a Send, Err is only set when Status is Failed.
type Result struct {
	Status Status
	Err    error
}

// Delivered reports whether the message actually left the process.
func (r Result) Delivered() bool {
	return r.Status == Sent
}

// Sender is a transport able to deliver a text message.
type Sender interface {
	Name() string
	Send(ctx context.Context, message string) error
}

// Notifier gates a Sender behind the quiet hours window.
type Notifier struct {
	sender Sender
	quiet  chrono.Window
	clock  chrono.TimeAPI
	tel    telemetry.API
}

func NewNotifier(sender Sender, quiet chrono.Window, clock chrono.TimeAPI, tel telemetry.API) Notifier {
	assert.NotNil(sender, "sender")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "telemetry")
	return Notifier{
		sender: sender,
		quiet:  quiet,
		clock:  clock,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
}

const previewRunes = 50

func preview(message string) string {
	runes := []rune(message)
	if len(runes) <= previewRunes {
		return message
	}
	return string(runes[:previewRunes]) + "..."
}

// Send delivers message unless the local time falls in the quiet window,
// suppressed messages are dropped (they are not queued or retried).
func (n Notifier) Send(ctx context.Context, message string) Result {
	ctx, span := tracer.Start(ctx, "notify:Send")
	defer span.End()
	span.SetAttributes(attribute.String("sender", n.sender.Name()))

	now := n.clock.Now()
	if n.quiet.Contains(now) {
		span.SetAttributes(attribute.Bool("suppressed", true))
		n.tel.ReportWarning(
			report_notifier_suppressed,
			"quiet_hours", n.quiet.String(),
			"local_time", now.Format("15:04"),
			"pending", preview(message),
		)
		return Result{Status: Suppressed}
	}

	err := n.sender.Send(ctx, message)
	if err != nil {
		err = fmt.Errorf("%s: %w", n.sender.Name(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.tel.ReportBroken(report_notifier_send, err)
		return Result{Status: Failed, Err: err}
	}

	n.tel.ReportDebug("message sent", "sender", n.sender.Name())
	return Result{Status: Sent}
}
