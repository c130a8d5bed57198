package gradestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		res, err := store.Pull(ctx, "unknown-course", 0)
		require.NoError(t, err)
		require.Len(t, res, 0)
	}
	{
		start := time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC)
		pushes := []Snapshot{
			{Course: "Investigación Operativa", Column: "Parcial 1", Grade: "0", Time: start},
			{Course: "Investigación Operativa", Column: "Parcial 1", Grade: "7", Time: start.Add(time.Hour)},
			{Course: "Física II", Column: "Nota", Grade: "9", Time: start.Add(2 * time.Hour)},
			{Course: "Investigación Operativa", Column: "Parcial 1", Grade: "8", Time: start.Add(3 * time.Hour)},
		}
		for _, snap := range pushes {
			require.NoError(t, store.Push(ctx, snap))
		}

		res, err := store.Pull(ctx, "Investigación Operativa", 0)
		require.NoError(t, err)
		require.Len(t, res, 3)
		require.Equal(t, "8", res[0].Grade)
		require.Equal(t, "0", res[2].Grade)
		require.True(t, res[0].Time.Equal(start.Add(3*time.Hour)))

		limited, err := store.Pull(ctx, "Investigación Operativa", 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)

		all, err := store.Pull(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, all, 4)
		require.Equal(t, "Física II", all[1].Course)
	}
}

func TestOpenFileCreatesSchemaOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Push(context.Background(), Snapshot{
		Course: "c", Column: "col", Grade: "1", Time: time.Now(),
	}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	res, err := store.Pull(context.Background(), "c", 0)
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestOpenRequiresDsn(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
