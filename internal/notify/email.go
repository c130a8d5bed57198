package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

type EmailOptions struct {
	Server   string
	Port     int
	Username string
	Password string
	To       string
}

// EmailSender mails the message, the first line becomes the subject.
type EmailSender struct {
	opts EmailOptions
}

func NewEmailSender(opts EmailOptions) EmailSender {
	return EmailSender{opts: opts}
}

func (s EmailSender) Name() string {
	return "email"
}

func subject(message string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return "gradewatch"
	}
	return first
}

func (s EmailSender) Send(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("gradewatch <%s>", s.opts.Username)
	mail.To = []string{s.opts.To}
	mail.Subject = subject(message)
	mail.Text = []byte(message)

	addr := fmt.Sprintf("%s:%d", s.opts.Server, s.opts.Port)
	err := mail.Send(addr, smtp.PlainAuth("", s.opts.Username, s.opts.Password, s.opts.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	return err
}
