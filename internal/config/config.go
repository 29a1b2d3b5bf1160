package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"procurement-audit/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Session  SessionConfig  `mapstructure:"session"`
	Export   ExportConfig   `mapstructure:"export"`
	Alerting AlertingConfig `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig covers the dashboard HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// UploadConfig bounds file ingestion.
type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// AuditConfig defines the sensitivity slider.
type AuditConfig struct {
	DefaultSensitivity float64 `mapstructure:"default_sensitivity"`
	MinSensitivity     float64 `mapstructure:"min_sensitivity"`
	MaxSensitivity     float64 `mapstructure:"max_sensitivity"`
	SensitivityStep    float64 `mapstructure:"sensitivity_step"`
}

// SessionConfig governs in-memory session expiry.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	CookieName    string        `mapstructure:"cookie_name"`
}

// ExportConfig sets report and chart output.
type ExportConfig struct {
	FileName    string `mapstructure:"file_name"`
	ChartWidth  int    `mapstructure:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height"`
}

// AlertingConfig toggles risk notifications.
type AlertingConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	MaxListed   int            `mapstructure:"max_listed"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
	MinRiskRows int            `mapstructure:"min_risk_rows"`
}

// TelegramConfig describes the Telegram channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "priceaudit")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("upload.max_bytes", int64(32<<20))

	v.SetDefault("audit.default_sensitivity", 200.0)
	v.SetDefault("audit.min_sensitivity", 100.0)
	v.SetDefault("audit.max_sensitivity", 500.0)
	v.SetDefault("audit.sensitivity_step", 10.0)

	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.sweep_interval", "5m")
	v.SetDefault("session.cookie_name", "priceaudit_session")

	v.SetDefault("export.file_name", "final_audit_report.csv")
	v.SetDefault("export.chart_width", 1280)
	v.SetDefault("export.chart_height", 600)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.max_listed", 5)
	v.SetDefault("alerting.min_risk_rows", 1)
	v.SetDefault("alerting.timeout", "10s")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must be set")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be greater than zero")
	}
	a := c.Audit
	if a.MinSensitivity <= 0 || a.MaxSensitivity < a.MinSensitivity {
		return fmt.Errorf("audit sensitivity range [%g, %g] is invalid", a.MinSensitivity, a.MaxSensitivity)
	}
	if a.DefaultSensitivity < a.MinSensitivity || a.DefaultSensitivity > a.MaxSensitivity {
		return fmt.Errorf("audit.default_sensitivity %g outside [%g, %g]", a.DefaultSensitivity, a.MinSensitivity, a.MaxSensitivity)
	}
	if a.SensitivityStep <= 0 {
		return fmt.Errorf("audit.sensitivity_step must be greater than zero")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be greater than zero")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name must be set")
	}
	if c.Export.FileName == "" {
		return fmt.Errorf("export.file_name must be set")
	}
	if c.Export.ChartWidth <= 0 || c.Export.ChartHeight <= 0 {
		return fmt.Errorf("export chart dimensions must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	return nil
}

// DefaultSensitivity returns the configured slider default.
func (c *Config) DefaultSensitivity() decimal.Decimal {
	return decimal.NewFromFloat(c.Audit.DefaultSensitivity)
}

// ClampSensitivity keeps a user supplied threshold within the slider range.
// Zero or negative values fall back to the default.
func (c *Config) ClampSensitivity(v decimal.Decimal) decimal.Decimal {
	if !v.IsPositive() {
		return c.DefaultSensitivity()
	}
	lo := decimal.NewFromFloat(c.Audit.MinSensitivity)
	hi := decimal.NewFromFloat(c.Audit.MaxSensitivity)
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
