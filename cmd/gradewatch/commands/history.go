package commands

import (
	"fmt"

	"gradewatch/internal/chrono"
	"gradewatch/internal/config"
	"gradewatch/internal/gradestore"
	"gradewatch/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyAll   bool
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "The maximum amount of readings to print, 0 prints every reading.")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Prints readings of every course instead of only MATERIA.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>] [--all]",
	Short: "Prints the readings recorded in HISTORY_DB, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Read(sources())
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.HistoryDb == "" {
			serviceutil.Fatal("history is disabled", fmt.Errorf("HISTORY_DB is not set"))
		}
		clock, err := chrono.NewStandardTime(cfg.Timezone)
		if err != nil {
			serviceutil.Fatal("failed to load timezone", err)
		}

		store, err := gradestore.Open(cfg.HistoryDb)
		if err != nil {
			serviceutil.Fatal("failed to open history", err)
		}
		defer store.Close()

		course := cfg.Portal.Course
		if historyAll {
			course = ""
		}
		snapshots, err := store.Pull(cmd.Context(), course, historyLimit)
		if err != nil {
			store.Close()
			serviceutil.Fatal("failed to read history", err)
		}

		t := serviceutil.NewTable()
		t.AppendHeader(table.Row{"Observed at", "Course", "Column", "Grade"})
		for _, snap := range snapshots {
			t.AppendRow(table.Row{
				chrono.FormatLocal(clock, snap.Time),
				snap.Course,
				snap.Column,
				snap.Grade,
			})
		}
		t.Render()
	},
}
