package chrono

import (
	"fmt"

	"gradewatch/internal/telemetry"

	"github.com/robfig/cron/v3"
)

// Cron runs callbacks on cron specs in the clock's location. A job that is
// still running when its next tick fires is skipped, so runs never overlap.
type Cron struct {
	cron *cron.Cron
}

// NewCron is the constructor of Cron, it does not start the scheduler.
func NewCron(clock TimeAPI, tel telemetry.API) Cron {
	logger := cronLogger{tel: telemetry.NewScopedAPI("cron", tel)}
	cronner := cron.New(
		cron.WithLogger(logger),
		cron.WithLocation(clock.Location()),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)
	return Cron{cron: cronner}
}

// Add registers callback on spec, it accepts the standard 5 field format and
// descriptors like "@every 30m".
func (s Cron) Add(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

func (s Cron) Start() {
	s.cron.Start()
}

// Stop prevents new runs and returns a channel closed once the running job
// (if any) has finished.
func (s Cron) Stop() <-chan struct{} {
	return s.cron.Stop().Done()
}

type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i < len(keysAndValues)/2; i++ {
		idx := i * 2
		key := keysAndValues[idx]
		value := keysAndValues[idx+1]
		params = append(params, fmt.Sprintf("%v: %v", key, value))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(msg, l.formatParams(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	params := append([]any{fmt.Errorf("%s: %w", msg, err)}, l.formatParams(keysAndValues)...)
	l.tel.ReportBroken("job", params...)
}
