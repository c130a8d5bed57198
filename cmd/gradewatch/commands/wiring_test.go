package commands

import (
	"context"
	"testing"

	"gradewatch/internal/config"
	"gradewatch/internal/notify"
	"gradewatch/internal/policy"
	"gradewatch/internal/telemetry"
	"gradewatch/lib/testutil"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, channel string) config.Config {
	t.Helper()
	svc := testutil.SetupService(t, testutil.ServiceParams{Name: "commands"})
	cfg, err := config.Build(config.Config{
		Portal: config.Portal{Username: "legajo", Password: "clave"},
		Notify: config.Notify{
			Channel: channel,
			Twilio: config.Twilio{
				AccountSid: "AC1",
				AuthToken:  "token",
				From:       "+14155238886",
				To:         "+5493511234567",
			},
			Email: config.Email{Server: "smtp.example.com", Username: "me@example.com", To: "me@example.com"},
		},
		StateFile: svc.StateFile,
		HistoryDb: svc.Dir + "/history.db",
	}, config.Config{})
	require.NoError(t, err)
	return cfg
}

func TestNewSender(t *testing.T) {
	testCases := []struct {
		channel string
		name    string
	}{
		{channel: config.ChannelTwilio, name: "twilio"},
		{channel: config.ChannelEmail, name: "email"},
		{channel: config.ChannelLog, name: "log"},
	}
	for _, tc := range testCases {
		t.Run(tc.channel, func(t *testing.T) {
			sender := newSender(testConfig(t, tc.channel), &telemetry.Recorder{})
			require.Equal(t, tc.name, sender.Name())
		})
	}
	require.IsType(t, notify.LogSender{}, newSender(testConfig(t, config.ChannelLog), &telemetry.Recorder{}))
}

func TestMode(t *testing.T) {
	cfg := testConfig(t, config.ChannelLog)
	require.Equal(t, policy.OnChange, mode(cfg))

	cfg.Notify.Always = "true"
	require.Equal(t, policy.AlwaysNotify, mode(cfg))

	cfg.Notify.Always = "TRUE"
	require.Equal(t, policy.OnChange, mode(cfg))
}

func TestNewApp(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t, config.ChannelLog))
	require.NoError(t, err)
	defer a.close()

	require.NotNil(t, a.checker)
	require.NotNil(t, a.history)
	require.Equal(t, "America/Argentina/Cordoba", a.clock.Location().String())
}
