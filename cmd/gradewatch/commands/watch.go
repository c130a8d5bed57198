package commands

import (
	"log/slog"
	"time"

	"gradewatch/internal/chrono"
	"gradewatch/internal/telemetry"
	"gradewatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

var watchNow bool

func init() {
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "Runs a check right away instead of waiting for the first tick.")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--now]",
	Short: "Runs checks on CHECK_SCHEDULE until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := serviceutil.SignalContext(cmd.Context())
		defer cancel()

		a := mustApp(ctx)
		defer a.close()

		cron := chrono.NewCron(a.clock, a.tel)
		err := cron.Add(a.cfg.Schedule, func() {
			logReport(a, a.checker.Run(ctx))
		})
		if err != nil {
			a.close()
			serviceutil.Fatal("invalid CHECK_SCHEDULE", err)
		}

		if watchNow {
			logReport(a, a.checker.Run(ctx))
		}

		telemetry.InstrumentPerfStats(ctx, a.tel, 10*time.Minute)
		cron.Start()
		slog.Info("watching", "schedule", a.cfg.Schedule, "course", a.cfg.Portal.Course)

		<-ctx.Done()
		slog.Info("stopping, waiting for the running check")
		<-cron.Stop()
	},
}
