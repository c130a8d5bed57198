package commands

import (
	"context"
	"fmt"
	"os"

	"gradewatch/internal/config"
	"gradewatch/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "gradewatch",
	Short: "gradewatch watches a course grade on the university portal and sends a WhatsApp message when it changes.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enables debug logging.")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json5", "The json5 config file, a missing file is ignored.")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "The dotenv file loaded before reading the environment, a missing file is ignored.")
}

func sources() config.Sources {
	return config.Sources{
		ConfigFile: configFile,
		EnvFile:    envFile,
	}
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
