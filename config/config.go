// Package config loads payrolld settings from a TOML file, a .env file and
// the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/generic"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Payroll  PayrollConfig  `toml:"payroll"`
	CORS     CORSConfig     `toml:"cors"`
}

type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `toml:"path"` // ":memory:" for an ephemeral database
}

type PayrollConfig struct {
	DefaultHourlyRate string `toml:"default_hourly_rate"`
	WeekStartDay      int    `toml:"week_start_day"` // default for new workers, 0 = Sunday
}

type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ShutdownTimeout: "30s",
		},
		Database: DatabaseConfig{Path: "payroll.db"},
		Payroll: PayrollConfig{
			DefaultHourlyRate: "500",
			WeekStartDay:      1,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Environment overrides.
const (
	EnvPort        = "PAYROLL_PORT"
	EnvDB          = "PAYROLL_DB"
	EnvDefaultRate = "PAYROLL_DEFAULT_RATE"
	EnvWeekStart   = "PAYROLL_WEEK_START_DAY"
	EnvOrigins     = "PAYROLL_CORS_ORIGINS"
)

// Load reads path (optional), then .env (optional), then the environment.
// A missing file at path is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return generic.Invalid(EnvPort, "must be an integer")
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup(EnvDefaultRate); ok && v != "" {
		c.Payroll.DefaultHourlyRate = v
	}
	if v, ok := lookup(EnvWeekStart); ok && v != "" {
		day, err := strconv.Atoi(v)
		if err != nil {
			return generic.Invalid(EnvWeekStart, "must be an integer")
		}
		c.Payroll.WeekStartDay = day
	}
	if v, ok := lookup(EnvOrigins); ok && v != "" {
		c.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return generic.Invalid("server.port", "must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return generic.Invalid("database.path", "required")
	}
	if _, err := c.DefaultHourlyRate(); err != nil {
		return err
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	return generic.ValidateWeekStartDay(c.Payroll.WeekStartDay)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DefaultHourlyRate parses payroll.default_hourly_rate.
func (c Config) DefaultHourlyRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Payroll.DefaultHourlyRate)
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, generic.Invalid("payroll.default_hourly_rate", "must be a positive number")
	}
	return rate, nil
}

// ShutdownTimeout parses server.shutdown_timeout.
func (c Config) ShutdownTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 0, generic.Invalid("server.shutdown_timeout", "must be a positive duration like 30s")
	}
	return d, nil
}
