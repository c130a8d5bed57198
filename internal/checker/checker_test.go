package checker

import (
	"context"
	"os"
	"testing"
	"time"

	"gradewatch/internal/chrono"
	"gradewatch/internal/gradestore"
	"gradewatch/internal/notify"
	"gradewatch/internal/policy"
	"gradewatch/internal/portal"
	"gradewatch/internal/state"
	"gradewatch/internal/telemetry"
	"gradewatch/lib/testutil"

	"github.com/stretchr/testify/require"
)

const page = `
<ul>
	<li id="idCurso41"><span>Investigación Operativa - 4K1</span> <div><i></i></div></li>
</ul>
<table id="tabla41">
	<thead><tr><th>1er Parcial</th><th>2do Parcial</th></tr></thead>
	<tbody><tr><td>8</td><td>0</td></tr></tbody>
</table>`

type fakeSender struct {
	sent []string
}

func (f *fakeSender) Name() string {
	return "fake"
}

func (f *fakeSender) Send(ctx context.Context, message string) error {
	f.sent = append(f.sent, message)
	return nil
}

type fixture struct {
	driver  *portal.FakeDriver
	store   *state.FileStore
	sender  *fakeSender
	history gradestore.Store
	tel     *telemetry.Recorder
	checker *Checker
}

func clockAt(t *testing.T, hour int) chrono.FixedTime {
	t.Helper()
	loc, err := time.LoadLocation(chrono.DefaultLocation)
	require.NoError(t, err)
	return chrono.FixedTime{At: time.Date(2026, 10, 19, hour, 30, 0, 0, loc)}
}

func newFixture(t *testing.T, mode policy.Mode, column int, clock chrono.TimeAPI) fixture {
	t.Helper()

	quiet, err := chrono.ParseWindow("00:00-07:00")
	require.NoError(t, err)
	svc := testutil.SetupService(t, testutil.ServiceParams{Name: "checker"})

	f := fixture{
		driver:  &portal.FakeDriver{Html: page},
		store:   state.NewFileStore(svc.StateFile),
		sender:  &fakeSender{},
		history: svc.History,
		tel:     svc.Tel,
	}
	f.checker = New(Options{
		Driver:      f.driver,
		Credentials: portal.Credentials{Username: "legajo", Password: "clave"},
		Target:      Target{Course: "Investigación Operativa", Column: column},
		Engine:      policy.NewEngine(mode, f.store, clock, f.tel),
		Notifier:    notify.NewNotifier(f.sender, quiet, clock, f.tel),
		Locker:      f.store,
		History:     svc.History,
		Clock:       clock,
	}, f.tel)
	return f
}

func (f fixture) state(t *testing.T) state.State {
	t.Helper()
	s, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return s
}

func TestCheckFirstGrade(t *testing.T) {
	f := newFixture(t, policy.OnChange, 1, clockAt(t, 10))
	ctx := context.Background()

	report, err := f.checker.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, "1er Parcial", report.Reading.Header)
	require.Equal(t, "8", report.Reading.Cell)
	require.Equal(t, policy.NewlyAvailable, report.Decision.Category)
	require.NotNil(t, report.Delivery)
	require.True(t, report.Delivery.Delivered())

	require.Len(t, f.sender.sent, 1)
	require.Contains(t, f.sender.sent[0], "Nota: 8")
	require.Equal(t, "8", f.state(t).GradeOr(""))
	require.Equal(t, portal.Credentials{Username: "legajo", Password: "clave"}, f.driver.Creds)
	require.Equal(t, 1, f.driver.Opened)
	require.Equal(t, 1, f.driver.Closed)

	snaps, err := f.history.Pull(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Equal(t, "8", snaps[0].Grade)
	require.Equal(t, "1er Parcial", snaps[0].Column)

	// same grade again: nothing sent, baseline refreshed
	report, err = f.checker.Check(ctx)
	require.NoError(t, err)
	require.False(t, report.Decision.Notify)
	require.Nil(t, report.Delivery)
	require.Len(t, f.sender.sent, 1)
	require.Equal(t, "8", f.state(t).GradeOr(""))
}

func TestCheckUnpublishedGrade(t *testing.T) {
	f := newFixture(t, policy.OnChange, 2, clockAt(t, 10))

	report, err := f.checker.Check(context.Background())
	require.NoError(t, err)
	require.False(t, report.Decision.Notify)
	require.Empty(t, f.sender.sent)
	require.Equal(t, "0", f.state(t).GradeOr(""))
}

func TestCheckQuietHoursStillCommits(t *testing.T) {
	f := newFixture(t, policy.OnChange, 1, clockAt(t, 3))

	report, err := f.checker.Check(context.Background())
	require.NoError(t, err)
	require.True(t, report.Decision.Notify)
	require.Equal(t, notify.Suppressed, report.Delivery.Status)
	require.False(t, report.Delivery.Delivered())
	require.Empty(t, f.sender.sent)
	require.Equal(t, "8", f.state(t).GradeOr(""))
}

func TestCheckAlwaysNotify(t *testing.T) {
	f := newFixture(t, policy.AlwaysNotify, 1, clockAt(t, 10))

	for i := 0; i < 2; i++ {
		report, err := f.checker.Check(context.Background())
		require.NoError(t, err)
		require.Equal(t, policy.Periodic, report.Decision.Category)
	}
	require.Len(t, f.sender.sent, 2)
	_, err := os.Stat(f.store.Path())
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(f.store.Path() + ".lock")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheckFailureLeavesStateUntouched(t *testing.T) {
	testCases := []struct {
		name   string
		setup  func(f fixture)
		column int
		err    error
	}{
		{
			name:   "authentication",
			setup:  func(f fixture) { f.driver.AuthErr = portal.ErrAuth },
			column: 1,
			err:    portal.ErrAuth,
		},
		{
			name:   "course not found",
			setup:  func(f fixture) { f.driver.Html = `<ul><li id="idCurso1">Física</li></ul>` },
			column: 1,
			err:    portal.ErrCourseNotFound,
		},
		{
			name:   "table timeout",
			setup:  func(f fixture) { f.driver.ReadErr = portal.ErrTimeout },
			column: 1,
			err:    portal.ErrTimeout,
		},
		{
			name:   "missing column",
			setup:  func(f fixture) {},
			column: 7,
			err:    portal.ErrMissingElement,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, policy.OnChange, tc.column, clockAt(t, 10))
			ctx := context.Background()
			before := state.New("6", time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
			require.NoError(t, f.store.Save(ctx, before))
			tc.setup(f)

			_, err := f.checker.Check(ctx)
			require.ErrorIs(t, err, tc.err)

			require.Nil(t, f.checker.Run(ctx))
			require.True(t, f.tel.Has(telemetry.KindBroken, report_checker_run))

			require.Empty(t, f.sender.sent)
			require.Equal(t, "6", f.state(t).GradeOr(""))
			require.True(t, before.RecordedAt.Equal(*f.state(t).RecordedAt))
			require.Equal(t, f.driver.Opened, f.driver.Closed)

			snaps, err := f.history.Pull(ctx, "", 0)
			require.NoError(t, err)
			require.Empty(t, snaps)
		})
	}
}

func TestCheckSkippedWhileLocked(t *testing.T) {
	f := newFixture(t, policy.OnChange, 1, clockAt(t, 10))
	other := state.NewFileStore(f.store.Path())

	unlock, err := other.Lock(context.Background())
	require.NoError(t, err)

	require.Nil(t, f.checker.Run(context.Background()))
	require.True(t, f.tel.Has(telemetry.KindWarning, report_checker_locked))
	require.Equal(t, 0, f.driver.Opened)

	require.NoError(t, unlock())
	require.NotNil(t, f.checker.Run(context.Background()))
}

func TestCheckAlwaysNotifyIgnoresLock(t *testing.T) {
	f := newFixture(t, policy.AlwaysNotify, 1, clockAt(t, 10))
	other := state.NewFileStore(f.store.Path())

	unlock, err := other.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	require.NotNil(t, f.checker.Run(context.Background()))
	require.False(t, f.tel.Has(telemetry.KindWarning, report_checker_locked))
	require.Len(t, f.sender.sent, 1)
}
