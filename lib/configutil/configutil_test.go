package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type nested struct {
	Column int    `json:"column"`
	Course string `json:"course"`
}

type sample struct {
	Name   string `json:"name"`
	Nested nested `json:"nested"`
}

func write(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	write(t, name, `{
		// comments are fine in json5
		name: "base",
		nested: { column: 1, course: "Física" },
	}`)
	write(t, filepath.Join(dir, "config.local.json5"), `{ nested: { column: 3 } }`)

	cfg, err := ReadConfig[sample](name)
	require.NoError(t, err)
	require.Equal(t, "base", cfg.Name)
	require.Equal(t, 3, cfg.Nested.Column)
	require.Equal(t, "Física", cfg.Nested.Course)
}

func TestReadConfigMissing(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.json5")

	_, err := ReadConfig[sample](name)
	require.ErrorIs(t, err, os.ErrNotExist)

	cfg, err := ReadOptional[sample](name)
	require.NoError(t, err)
	require.Equal(t, sample{}, cfg)
}

func TestReadConfigInvalid(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.json5")
	write(t, name, `{ name: `)

	_, err := ReadConfig[sample](name)
	require.Error(t, err)
}

func TestLayerAndDefaults(t *testing.T) {
	base := sample{Name: "file", Nested: nested{Column: 2}}
	env := sample{Nested: nested{Course: "Análisis"}}

	merged, err := Layer(base, env)
	require.NoError(t, err)
	require.Equal(t, sample{Name: "file", Nested: nested{Column: 2, Course: "Análisis"}}, merged)

	filled, err := Defaults(sample{}, sample{Name: "default", Nested: nested{Column: 1}})
	require.NoError(t, err)
	require.Equal(t, "default", filled.Name)
	require.Equal(t, 1, filled.Nested.Column)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "config.local.json5", LocalPath("config.json5"))
	require.Equal(t, filepath.Join("a", "b.local.json"), LocalPath(filepath.Join("a", "b.json")))
}

type withPointer struct {
	Quiet *string `json:"quiet"`
}

func TestEmptyPointerSurvivesDefaults(t *testing.T) {
	empty := ""
	def := "00:00-07:00"

	cfg, err := Layer(withPointer{Quiet: &empty}, withPointer{})
	require.NoError(t, err)
	cfg, err = Defaults(cfg, withPointer{Quiet: &def})
	require.NoError(t, err)
	require.NotNil(t, cfg.Quiet)
	require.Equal(t, "", *cfg.Quiet)

	cfg, err = Defaults(withPointer{}, withPointer{Quiet: &def})
	require.NoError(t, err)
	require.Equal(t, def, *cfg.Quiet)
}
