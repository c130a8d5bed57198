package testutil

import (
	"path/filepath"
	"testing"

	"gradewatch/internal/gradestore"
	"gradewatch/internal/telemetry"
)

type ServiceParams struct {
	Name string
	// if unspecified, the history db is kept in memory
	HistoryPath string
}

type ServiceResult struct {
	Tel       *telemetry.Recorder
	History   gradestore.Store
	StateFile string
	Dir       string
}

// SetupService prepares what a check needs on disk in a fresh temp dir,
// everything is released when the test ends.
func SetupService(t testing.TB, params ServiceParams) ServiceResult {
	t.Helper()

	dir := t.TempDir()
	dsn := ":memory:"
	if params.HistoryPath != "" {
		dsn = filepath.Join(dir, params.HistoryPath)
	}
	history, err := gradestore.Open(dsn)
	if err != nil {
		t.Fatalf("setup %s: %v", params.Name, err)
	}
	t.Cleanup(func() {
		history.Close()
	})

	return ServiceResult{
		Tel:       &telemetry.Recorder{},
		History:   history,
		StateFile: filepath.Join(dir, "nota.json"),
		Dir:       dir,
	}
}
