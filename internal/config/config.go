// Package config loads runtime settings from the environment, an optional
// .env file and an optional YAML file named by CONFIG_FILE.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the binaries read.
type Config struct {
	DatabaseURL    string `mapstructure:"database_url"`
	ServerPort     string `mapstructure:"server_port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	JWTSecret      string `mapstructure:"jwt_secret"`
	CompanyCode    string `mapstructure:"company_code"`
	MigrationsDir  string `mapstructure:"migrations_dir"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	OpenAIModel  string `mapstructure:"openai_model"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	DigestFrom   string `mapstructure:"digest_from"`
	DigestTo     string `mapstructure:"digest_to"`

	ViewRefreshSchedule string `mapstructure:"view_refresh_schedule"`
	DigestSchedule      string `mapstructure:"digest_schedule"`
}

var keys = []string{
	"database_url", "server_port", "allowed_origins", "jwt_secret", "company_code",
	"migrations_dir", "log_level", "log_format", "openai_api_key", "openai_model",
	"smtp_host", "smtp_port", "smtp_user", "smtp_password", "digest_from", "digest_to",
	"view_refresh_schedule", "digest_schedule",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("migrations_dir", "file://migrations")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("view_refresh_schedule", "@every 15m")
	v.SetDefault("digest_schedule", "0 7 * * *")
}

// Load reads .env (if present), then the environment, then the YAML file
// named by CONFIG_FILE. Environment variables win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()
	// AutomaticEnv only consults the environment for keys viper already
	// knows about, so bind each one explicitly for Unmarshal.
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %s", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &cfg, nil
}

// Validate checks the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

// MailEnabled reports whether the overdue digest has somewhere to go.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.DigestTo != ""
}

// DigestRecipients splits DIGEST_TO on commas.
func (c *Config) DigestRecipients() []string {
	var out []string
	for _, r := range strings.Split(c.DigestTo, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
