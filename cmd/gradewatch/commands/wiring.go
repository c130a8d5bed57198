package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gradewatch/internal/checker"
	"gradewatch/internal/chrono"
	"gradewatch/internal/config"
	"gradewatch/internal/gradestore"
	"gradewatch/internal/notify"
	"gradewatch/internal/policy"
	"gradewatch/internal/portal"
	"gradewatch/internal/state"
	"gradewatch/internal/telemetry"
	"gradewatch/lib/serviceutil"
)

// app holds every component of a check, built once from the config.
type app struct {
	cfg     config.Config
	clock   chrono.StandardTime
	tel     telemetry.API
	checker *checker.Checker

	history  *gradestore.Store
	shutdown func(context.Context) error
}

func newSender(cfg config.Config, tel telemetry.API) notify.Sender {
	switch cfg.Notify.Channel {
	case config.ChannelEmail:
		e := cfg.Notify.Email
		return notify.NewEmailSender(notify.EmailOptions{
			Server:   e.Server,
			Port:     e.Port,
			Username: e.Username,
			Password: e.Password,
			To:       e.To,
		})
	case config.ChannelLog:
		return notify.LogSender{}
	}
	t := cfg.Notify.Twilio
	return notify.NewTwilioSender(notify.TwilioOptions{
		ApiUrl:     t.ApiUrl,
		AccountSid: t.AccountSid,
		AuthToken:  t.AuthToken,
		From:       t.From,
		To:         t.To,
	}, tel)
}

func mode(cfg config.Config) policy.Mode {
	if cfg.NotifyAlways() {
		return policy.AlwaysNotify
	}
	return policy.OnChange
}

func newApp(ctx context.Context, cfg config.Config) (app, error) {
	clock, err := chrono.NewStandardTime(cfg.Timezone)
	if err != nil {
		return app{}, fmt.Errorf("load timezone: %w", err)
	}
	quiet, err := cfg.QuietWindow()
	if err != nil {
		return app{}, fmt.Errorf("parse quiet hours: %w", err)
	}

	shutdown, err := telemetry.Setup(ctx, "gradewatch", cfg.OtlpEndpoint)
	if err != nil {
		return app{}, fmt.Errorf("setup tracing: %w", err)
	}

	tel := telemetry.SlogAPI{}
	a := app{
		cfg:      cfg,
		clock:    clock,
		tel:      tel,
		shutdown: shutdown,
	}

	var history checker.History
	if cfg.HistoryDb != "" {
		store, err := gradestore.Open(cfg.HistoryDb)
		if err != nil {
			a.close()
			return app{}, err
		}
		a.history = &store
		history = store
	}

	stateStore := state.NewFileStore(cfg.StateFile)
	driver := portal.NewRodDriver(portal.RodOptions{
		BaseUrl:     cfg.Portal.BaseUrl,
		DomainIndex: cfg.Portal.DomainIndex,
		Timeout:     cfg.Portal.Timeout.Std(),
		RemoteUrl:   cfg.Browser.RemoteUrl,
		Bin:         cfg.Browser.Bin,
		Headful:     cfg.Browser.Headful,
	}, tel)

	a.checker = checker.New(checker.Options{
		Driver: driver,
		Credentials: portal.Credentials{
			Username: cfg.Portal.Username,
			Password: cfg.Portal.Password,
		},
		Target: checker.Target{
			Course: cfg.Portal.Course,
			Column: cfg.Portal.Column,
		},
		Engine:   policy.NewEngine(mode(cfg), stateStore, clock, tel),
		Notifier: notify.NewNotifier(newSender(cfg, tel), quiet, clock, tel),
		Locker:   stateStore,
		History:  history,
		Clock:    clock,
	}, tel)

	slog.Debug(
		"configured",
		"course", cfg.Portal.Course,
		"column", cfg.Portal.Column,
		"mode", mode(cfg).String(),
		"notifier", cfg.Notify.Channel,
		"quiet_hours", quiet.String(),
		"state_file", cfg.StateFile,
	)
	return a, nil
}

func (a app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Warn("failed to close history db", "err", err)
		}
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			slog.Warn("failed to flush traces", "err", err)
		}
	}
}

// mustApp loads and validates the config and builds the app, exiting on
// failure.
func mustApp(ctx context.Context) app {
	cfg, err := config.Load(sources())
	if err != nil {
		serviceutil.Fatal("invalid configuration", err)
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		serviceutil.Fatal("failed to initialize", err)
	}
	return a
}

func logReport(a app, report *checker.Report) {
	if report == nil {
		return
	}
	delivery := "not needed"
	if report.Delivery != nil {
		delivery = report.Delivery.Status.String()
	}
	slog.Info(
		"check complete",
		"column", report.Reading.Header,
		"grade", report.Reading.Cell,
		"notify", report.Decision.Notify,
		"category", report.Decision.Category.String(),
		"delivery", delivery,
		"at", chrono.FormatLocal(a.clock, report.Reading.ObservedAt),
	)
}
