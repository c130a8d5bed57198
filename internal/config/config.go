// Package config builds the immutable configuration of a gradewatch run.
//
// Values come from three layers, later layers win:
//  1. config.json5 (+ config.local.json5)
//  2. the process environment, after loading a .env file (existing variables win)
//  3. Default() for anything still unset
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gradewatch/internal/chrono"
	"gradewatch/lib/configutil"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ChannelTwilio = "twilio"
	ChannelEmail  = "email"
	ChannelLog    = "log"
)

type Portal struct {
	BaseUrl     string   `json:"base_url" env:"URL_BASE"`
	Username    string   `json:"username" env:"USUARIO"`
	Password    string   `json:"password" env:"PASSWORD"`
	Course      string   `json:"course" env:"MATERIA"`
	Column      int      `json:"column" env:"COLUMNA_NOTA"`
	DomainIndex int      `json:"domain_index" env:"DOMINIO_INDEX"`
	Timeout     Duration `json:"timeout" env:"PORTAL_TIMEOUT"`
}

type Browser struct {
	RemoteUrl string `json:"remote_url" env:"BROWSER_URL"`
	Bin       string `json:"bin" env:"BROWSER_BIN"`
	Headful   bool   `json:"headful" env:"BROWSER_HEADFUL"`
}

type Twilio struct {
	ApiUrl     string `json:"api_url" env:"TWILIO_API_URL"`
	AccountSid string `json:"account_sid" env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `json:"auth_token" env:"TWILIO_AUTH_TOKEN"`
	From       string `json:"from" env:"TWILIO_WHATSAPP_FROM"`
	To         string `json:"to" env:"MI_WHATSAPP"`
}

type Email struct {
	Server   string `json:"server" env:"SMTP_SERVER"`
	Port     int    `json:"port" env:"SMTP_PORT"`
	Username string `json:"username" env:"SMTP_USER"`
	Password string `json:"password" env:"SMTP_PASSWORD"`
	To       string `json:"to" env:"MAIL_TO"`
}

type Notify struct {
	// Always is compared against the literal "true", anything else means
	// notify on change.
	Always     string  `json:"always" env:"NOTIFICAR_SIEMPRE"`
	Channel    string  `json:"channel" env:"NOTIFIER"`
	QuietHours *string `json:"quiet_hours" env:"QUIET_HOURS"`
	Twilio     Twilio  `json:"twilio"`
	Email      Email   `json:"email"`
}

type Config struct {
	Portal       Portal  `json:"portal"`
	Browser      Browser `json:"browser"`
	Notify       Notify  `json:"notify"`
	Timezone     string  `json:"timezone" env:"TIMEZONE"`
	StateFile    string  `json:"state_file" env:"STATE_FILE"`
	HistoryDb    string  `json:"history_db" env:"HISTORY_DB"`
	Schedule     string  `json:"schedule" env:"CHECK_SCHEDULE"`
	OtlpEndpoint string  `json:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func strPtr(s string) *string {
	return &s
}

// Default returns the values used for every field left unset.
func Default() Config {
	return Config{
		Portal: Portal{
			BaseUrl:     "https://a4.frc.utn.edu.ar/4",
			Course:      "Investigación Operativa",
			Column:      1,
			DomainIndex: 19,
			Timeout:     Duration(30 * time.Second),
		},
		Notify: Notify{
			Channel:    ChannelTwilio,
			QuietHours: strPtr("00:00-07:00"),
			Twilio: Twilio{
				ApiUrl: "https://api.twilio.com",
			},
			Email: Email{
				Port: 587,
			},
		},
		Timezone:  chrono.DefaultLocation,
		StateFile: "nota.json",
		Schedule:  "@every 30m",
	}
}

// Sources names the files Load reads, empty names are skipped.
type Sources struct {
	ConfigFile string
	EnvFile    string
}

// Load reads every layer and validates the result.
func Load(src Sources) (Config, error) {
	cfg, err := Read(src)
	if err != nil {
		return Config{}, err
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that only inspect local
// files and do not need credentials.
func Read(src Sources) (Config, error) {
	var fileCfg Config
	if src.ConfigFile != "" {
		var err error
		fileCfg, err = configutil.ReadOptional[Config](src.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if src.EnvFile != "" {
		err := godotenv.Load(src.EnvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	envCfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	return merge(fileCfg, envCfg)
}

// Build layers env over file, fills defaults and validates.
func Build(fileCfg, envCfg Config) (Config, error) {
	cfg, err := merge(fileCfg, envCfg)
	if err != nil {
		return Config{}, err
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func merge(fileCfg, envCfg Config) (Config, error) {
	cfg, err := configutil.Layer(fileCfg, envCfg)
	if err != nil {
		return Config{}, err
	}
	cfg, err = configutil.Defaults(cfg, Default())
	if err != nil {
		return Config{}, err
	}
	cfg.Notify.Channel = strings.ToLower(strings.TrimSpace(cfg.Notify.Channel))
	return cfg, nil
}

// NotifyAlways reports whether every completed check should notify.
func (c Config) NotifyAlways() bool {
	return c.Notify.Always == "true"
}

// QuietWindow parses the configured quiet hours, an empty value disables them.
func (c Config) QuietWindow() (chrono.Window, error) {
	if c.Notify.QuietHours == nil {
		return chrono.Window{}, nil
	}
	return chrono.ParseWindow(*c.Notify.QuietHours)
}

func (c Config) Validate() error {
	var errs []error
	if c.Portal.Username == "" || c.Portal.Password == "" {
		errs = append(errs, fmt.Errorf("USUARIO and PASSWORD are required"))
	}
	if strings.TrimSpace(c.Portal.Course) == "" {
		errs = append(errs, fmt.Errorf("MATERIA must not be empty"))
	}
	if c.Portal.Column < 1 {
		errs = append(errs, fmt.Errorf("COLUMNA_NOTA must be >= 1, got %d", c.Portal.Column))
	}
	if c.Portal.DomainIndex < 0 {
		errs = append(errs, fmt.Errorf("DOMINIO_INDEX must be >= 0, got %d", c.Portal.DomainIndex))
	}
	if _, err := c.QuietWindow(); err != nil {
		errs = append(errs, fmt.Errorf("QUIET_HOURS: %w", err))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}

	switch c.Notify.Channel {
	case ChannelTwilio:
		t := c.Notify.Twilio
		if t.AccountSid == "" || t.AuthToken == "" || t.From == "" || t.To == "" {
			errs = append(errs, fmt.Errorf(
				"TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_WHATSAPP_FROM and MI_WHATSAPP are required for the twilio notifier",
			))
		}
	case ChannelEmail:
		e := c.Notify.Email
		if e.Server == "" || e.Username == "" || e.To == "" {
			errs = append(errs, fmt.Errorf("SMTP_SERVER, SMTP_USER and MAIL_TO are required for the email notifier"))
		}
	case ChannelLog:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER %q", c.Notify.Channel))
	}

	return errors.Join(errs...)
}
