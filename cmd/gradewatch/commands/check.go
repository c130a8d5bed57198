package commands

import (
	"errors"
	"log/slog"

	"gradewatch/internal/state"
	"gradewatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

var strict bool

func init() {
	checkCmd.Flags().BoolVar(&strict, "strict", false, "Exit with status 1 when the check fails.")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [--strict]",
	Short: "Runs a single check and exits.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustApp(ctx)
		defer a.close()

		if !strict {
			logReport(a, a.checker.Run(ctx))
			return
		}

		report, err := a.checker.Check(ctx)
		if errors.Is(err, state.ErrLocked) {
			slog.Warn("check skipped", "err", err)
			return
		}
		if err != nil {
			a.close()
			serviceutil.Fatal("check failed", err)
		}
		logReport(a, &report)
	},
}
