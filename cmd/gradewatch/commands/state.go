package commands

import (
	"gradewatch/internal/chrono"
	"gradewatch/internal/config"
	"gradewatch/internal/state"
	"gradewatch/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(stateCmd)
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Prints the grade recorded by the last completed check.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Read(sources())
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		clock, err := chrono.NewStandardTime(cfg.Timezone)
		if err != nil {
			serviceutil.Fatal("failed to load timezone", err)
		}

		store := state.NewFileStore(cfg.StateFile)
		s, err := store.Load(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to read state", err)
		}

		recordedAt := "never"
		if s.RecordedAt != nil {
			recordedAt = chrono.FormatLocal(clock, *s.RecordedAt)
		}

		t := serviceutil.NewTable()
		t.AppendHeader(table.Row{"File", "Grade", "Recorded at"})
		t.AppendRow(table.Row{store.Path(), s.GradeOr("-"), recordedAt})
		t.Render()
	},
}
