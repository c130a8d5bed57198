package notify

import (
	"context"
	"log/slog"
)

// LogSender only logs the message, it backs dry runs.
type LogSender struct{}

func (LogSender) Name() string {
	return "log"
}

func (LogSender) Send(ctx context.Context, message string) error {
	slog.InfoContext(ctx, "notification", "body", message)
	return nil
}
