package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"USUARIO", "PASSWORD", "URL_BASE", "MATERIA", "COLUMNA_NOTA", "DOMINIO_INDEX",
	"PORTAL_TIMEOUT", "NOTIFICAR_SIEMPRE", "NOTIFIER", "QUIET_HOURS", "TIMEZONE",
	"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_WHATSAPP_FROM", "MI_WHATSAPP",
	"TWILIO_API_URL", "STATE_FILE", "HISTORY_DB", "CHECK_SCHEDULE",
	"BROWSER_URL", "BROWSER_BIN", "BROWSER_HEADFUL",
	"SMTP_SERVER", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD", "MAIL_TO",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

// clearEnv unsets every key Load reads, t.Setenv restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func setTwilio(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_WHATSAPP_FROM", "whatsapp:+14155238886")
	t.Setenv("MI_WHATSAPP", "whatsapp:+5493510000000")
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("USUARIO", "12345")
	t.Setenv("PASSWORD", "secret")
	t.Setenv("MATERIA", "Física II")
	t.Setenv("COLUMNA_NOTA", "3")
	t.Setenv("PORTAL_TIMEOUT", "45s")
	setTwilio(t)

	cfg, err := Load(Sources{})
	require.NoError(t, err)

	require.Equal(t, "12345", cfg.Portal.Username)
	require.Equal(t, "Física II", cfg.Portal.Course)
	require.Equal(t, 3, cfg.Portal.Column)
	require.Equal(t, 45*time.Second, cfg.Portal.Timeout.Std())
	require.Equal(t, "https://a4.frc.utn.edu.ar/4", cfg.Portal.BaseUrl)
	require.Equal(t, 19, cfg.Portal.DomainIndex)
	require.Equal(t, ChannelTwilio, cfg.Notify.Channel)
	require.Equal(t, "nota.json", cfg.StateFile)
	require.False(t, cfg.NotifyAlways())

	window, err := cfg.QuietWindow()
	require.NoError(t, err)
	require.Equal(t, "00:00-07:00", window.String())
}

func TestNotifyAlwaysOnlyForLiteralTrue(t *testing.T) {
	table := []struct {
		value  string
		expect bool
	}{
		{value: "true", expect: true},
		{value: "TRUE", expect: false},
		{value: "1", expect: false},
		{value: "false", expect: false},
		{value: "", expect: false},
	}
	for _, row := range table {
		cfg := Config{Notify: Notify{Always: row.value}}
		require.Equal(t, row.expect, cfg.NotifyAlways(), row.value)
	}
}

func TestLoadLayers(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	configFile := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(configFile, []byte(`{
		portal: { username: "from-file", password: "pw", course: "Análisis", column: 2 },
		notify: { channel: "log", quiet_hours: "" },
		state_file: "/tmp/from-file.json",
	}`), 0600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MATERIA=Sistemas Operativos\nCOLUMNA_NOTA=4\n"), 0600))

	t.Setenv("USUARIO", "from-env")

	cfg, err := Load(Sources{ConfigFile: configFile, EnvFile: envFile})
	require.NoError(t, err)

	require.Equal(t, "from-env", cfg.Portal.Username)
	require.Equal(t, "pw", cfg.Portal.Password)
	require.Equal(t, "Sistemas Operativos", cfg.Portal.Course)
	require.Equal(t, 4, cfg.Portal.Column)
	require.Equal(t, ChannelLog, cfg.Notify.Channel)
	require.Equal(t, "/tmp/from-file.json", cfg.StateFile)

	window, err := cfg.QuietWindow()
	require.NoError(t, err)
	require.False(t, window.Enabled())
}

func TestLoadMissingFilesIsFine(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("USUARIO", "u")
	t.Setenv("PASSWORD", "p")
	t.Setenv("NOTIFIER", "log")

	_, err := Load(Sources{
		ConfigFile: filepath.Join(dir, "config.json5"),
		EnvFile:    filepath.Join(dir, ".env"),
	})
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Build(Config{
			Portal: Portal{Username: "u", Password: "p"},
			Notify: Notify{Channel: ChannelLog},
		}, Config{})
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing credentials", mutate: func(c *Config) { c.Portal.Password = "" }},
		{name: "zero column", mutate: func(c *Config) { c.Portal.Column = 0 }},
		{name: "unknown channel", mutate: func(c *Config) { c.Notify.Channel = "pigeon" }},
		{name: "twilio without credentials", mutate: func(c *Config) { c.Notify.Channel = ChannelTwilio }},
		{name: "email without server", mutate: func(c *Config) { c.Notify.Channel = ChannelEmail }},
		{name: "bad quiet hours", mutate: func(c *Config) { q := "7-0"; c.Notify.QuietHours = &q }},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}

	require.NoError(t, valid().Validate())
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestReadSkipsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATE_FILE", "/var/lib/gradewatch/nota.json")

	_, err := Load(Sources{})
	require.Error(t, err)

	cfg, err := Read(Sources{})
	require.NoError(t, err)
	require.Equal(t, "/var/lib/gradewatch/nota.json", cfg.StateFile)
	require.Equal(t, "@every 30m", cfg.Schedule)
}
