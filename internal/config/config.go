// Package config provides Viper-based configuration loading for the padetl tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// HTTPConfig holds settings shared by every outbound HTTP client.
type HTTPConfig struct {
	// Timeout bounds a single request including reading the body.
	Timeout time.Duration `mapstructure:"timeout"`
	// UserAgent is sent on game API requests.
	UserAgent string `mapstructure:"user_agent"`
	// RequestDelay is slept between consecutive asset downloads.
	RequestDelay time.Duration `mapstructure:"request_delay"`
}

// GameServerConfig describes one regional game server.
type GameServerConfig struct {
	// BaseURL points at the server's base JSON, which names the API endpoint
	// and current client version.
	BaseURL string `mapstructure:"base_url"`
	// APIName is the region code sent as the p parameter (e.g. "na", "ja").
	APIName string `mapstructure:"api_name"`
}

// AccountConfig identifies the player account used for API pulls.
type AccountConfig struct {
	UUID  string `mapstructure:"uuid"`
	IntID string `mapstructure:"intid"`
}

// KeygenConfig locates the Lua script that signs API requests.
type KeygenConfig struct {
	Script           string `mapstructure:"script"`
	InstructionLimit int    `mapstructure:"instruction_limit"`
}

// PortraitsConfig holds the thumbnail URL templates. Each template has a
// single %s verb for the monster id.
type PortraitsConfig struct {
	GamewithTemplate string `mapstructure:"gamewith_template"`
	PDXTemplate      string `mapstructure:"pdx_template"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig               `mapstructure:"logging"`
	Database  DatabaseConfig              `mapstructure:"database"`
	HTTP      HTTPConfig                  `mapstructure:"http"`
	Servers   map[string]GameServerConfig `mapstructure:"servers"`
	Account   AccountConfig               `mapstructure:"account"`
	Keygen    KeygenConfig                `mapstructure:"keygen"`
	Portraits PortraitsConfig             `mapstructure:"portraits"`
}

// ErrUnknownServer is returned by Server for a name with no configuration.
var ErrUnknownServer = errors.New("unknown game server")

// Server returns the configuration for the named server. Names are matched
// case-insensitively.
func (c Config) Server(name string) (GameServerConfig, error) {
	for k, v := range c.Servers {
		if strings.EqualFold(k, name) {
			return v, nil
		}
	}
	return GameServerConfig{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownServer, name, strings.Join(c.ServerNames(), ", "))
}

// ServerNames returns the configured server names in upper case, sorted.
func (c Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for k := range c.Servers {
		names = append(names, strings.ToUpper(k))
	}
	sort.Strings(names)
	return names
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHTTP(c.HTTP); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateServers(c.Servers); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Keygen.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("keygen.instruction_limit must be >= 0, got %d", c.Keygen.InstructionLimit))
	}
	if err := validatePortraits(c.Portraits); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHTTP(h HTTPConfig) error {
	var errs []string
	if h.Timeout <= 0 {
		errs = append(errs, "http.timeout must be positive")
	}
	if h.RequestDelay < 0 {
		errs = append(errs, "http.request_delay must not be negative")
	}
	if h.UserAgent == "" {
		errs = append(errs, "http.user_agent must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServers(servers map[string]GameServerConfig) error {
	if len(servers) == 0 {
		return errors.New("servers must define at least one game server")
	}
	var errs []string
	for _, name := range sortedKeys(servers) {
		s := servers[name]
		if s.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("servers.%s.base_url must not be empty", name))
		}
		if s.APIName == "" {
			errs = append(errs, fmt.Sprintf("servers.%s.api_name must not be empty", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePortraits(p PortraitsConfig) error {
	var errs []string
	if strings.Count(p.GamewithTemplate, "%s") != 1 {
		errs = append(errs, fmt.Sprintf("portraits.gamewith_template must contain exactly one %%s, got %q", p.GamewithTemplate))
	}
	if strings.Count(p.PDXTemplate, "%s") != 1 {
		errs = append(errs, fmt.Sprintf("portraits.pdx_template must contain exactly one %%s, got %q", p.PDXTemplate))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func sortedKeys(m map[string]GameServerConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads configuration from the given file path, applies .env and
// environment variable overrides, and validates the result. An empty path
// uses defaults and the environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variable overrides with PADETL_ prefix
	v.SetEnvPrefix("PADETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv loads path into the process environment if it exists. Values
// already present in the environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "padetl")
	v.SetDefault("database.password", "padetl")
	v.SetDefault("database.name", "padetl")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.user_agent", "GunghoPuzzleAndDungeon")
	v.SetDefault("http.request_delay", "100ms")

	v.SetDefault("servers", map[string]any{
		"na": map[string]any{
			"base_url": "http://patch-na-pad.gungho.jp/base-na-adr.json",
			"api_name": "na",
		},
		"jp": map[string]any{
			"base_url": "http://dl.padsv.gungho.jp/base_adr.json",
			"api_name": "ja",
		},
	})

	// Bound so that PADETL_ACCOUNT_UUID / PADETL_ACCOUNT_INTID are picked up
	// by Unmarshal even when the keys appear in no file.
	v.SetDefault("account.uuid", "")
	v.SetDefault("account.intid", "")

	v.SetDefault("keygen.script", "keygen.lua")
	v.SetDefault("keygen.instruction_limit", 0)

	v.SetDefault("portraits.gamewith_template", "https://gamewith.akamaized.net/article_tools/pad/gacha/%s.png")
	v.SetDefault("portraits.pdx_template", "http://www.puzzledragonx.com/en/img/book/%s.png")
}
