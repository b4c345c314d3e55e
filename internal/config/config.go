// Package config provides Viper-based configuration loading for the gotchi
// battle server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Name identifies this instance in logs and traces.
	Name string `mapstructure:"name"`
	// ShutdownTimeout bounds graceful shutdown of the lifecycle services.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

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

// GRPCConfig holds the battle service listener settings.
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
func (g GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// BattleConfig holds battle engine tunables.
type BattleConfig struct {
	// ScriptsDir is the directory of move modules.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// MovesetSize caps the moves a creature brings to battle.
	MovesetSize int `mapstructure:"moveset_size"`
	// ScriptInstructionLimit is the opcode budget of one script call; 0 uses
	// the scripting default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// ChallengeTimeout is how long a challenge waits for acceptance.
	ChallengeTimeout time.Duration `mapstructure:"challenge_timeout"`
	// ExpMultiple times the loser's level is the winner's experience.
	ExpMultiple int `mapstructure:"exp_multiple"`
	// LevelSpread bounds a CPU opponent's level around the challenger's.
	LevelSpread int `mapstructure:"level_spread"`
}

// StatusConfig points at the status definition directory. An empty Dir
// uses the built-in statuses only.
type StatusConfig struct {
	Dir string `mapstructure:"dir"`
}

// HistoryConfig controls the sqlite battle history.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Statuses StatusConfig   `mapstructure:"statuses"`
	History  HistoryConfig  `mapstructure:"history"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateServer(c.Server),
		validateDatabase(c.Database),
		validateLogging(c.Logging),
		validateGRPC(c.GRPC),
		validateBattle(c.Battle),
		validateHistory(c.History),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Name == "" {
		errs = append(errs, "server.name must not be empty")
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	return joined(errs)
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
	return joined(errs)
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

func validateGRPC(g GRPCConfig) error {
	var errs []string
	if g.Host == "" {
		errs = append(errs, "grpc.host must not be empty")
	}
	if g.Port < 1 || g.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be 1-65535, got %d", g.Port))
	}
	return joined(errs)
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.ScriptsDir == "" {
		errs = append(errs, "battle.scripts_dir must not be empty")
	}
	if b.MovesetSize < 1 {
		errs = append(errs, fmt.Sprintf("battle.moveset_size must be >= 1, got %d", b.MovesetSize))
	}
	if b.ScriptInstructionLimit < 0 {
		errs = append(errs, "battle.script_instruction_limit must not be negative")
	}
	if b.ChallengeTimeout <= 0 {
		errs = append(errs, "battle.challenge_timeout must be positive")
	}
	if b.ExpMultiple < 1 {
		errs = append(errs, fmt.Sprintf("battle.exp_multiple must be >= 1, got %d", b.ExpMultiple))
	}
	if b.LevelSpread < 0 {
		errs = append(errs, fmt.Sprintf("battle.level_spread must be >= 0, got %d", b.LevelSpread))
	}
	return joined(errs)
}

func validateHistory(h HistoryConfig) error {
	if h.Enabled && h.Path == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	return nil
}

// Load reads configuration from the given file path, applies GOTCHI_
// environment overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("GOTCHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "gotchi")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gotchi")
	v.SetDefault("database.password", "gotchi")
	v.SetDefault("database.name", "gotchi")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("battle.scripts_dir", "content/moves")
	v.SetDefault("battle.moveset_size", 4)
	v.SetDefault("battle.script_instruction_limit", 100000)
	v.SetDefault("battle.challenge_timeout", "2m")
	v.SetDefault("battle.exp_multiple", 10)
	v.SetDefault("battle.level_spread", 3)

	v.SetDefault("statuses.dir", "content/statuses")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "gotchi-history.db")
}
