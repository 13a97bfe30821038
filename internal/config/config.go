// Package config provides Viper-based configuration loading for the battle
// simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig holds battle pacing and scheduling settings.
type BattleConfig struct {
	// ChargeThreshold is the charge a unit needs to act.
	ChargeThreshold int `mapstructure:"charge_threshold"`
	// HistorySize bounds the completed-turn history.
	HistorySize int `mapstructure:"history_size"`
	// PredictionLength is how many upcoming turns TurnOrder reports.
	PredictionLength int `mapstructure:"prediction_length"`
	// AIThinkDelay pauses before an AI unit's first step each turn.
	AIThinkDelay time.Duration `mapstructure:"ai_think_delay"`
	// AIActionDelay pauses after every AI action.
	AIActionDelay time.Duration `mapstructure:"ai_action_delay"`
	// MoveStepDuration is the time a moving unit spends per cell.
	MoveStepDuration time.Duration `mapstructure:"move_step_duration"`
	// TickRate is the host loop frequency in ticks per second.
	TickRate int `mapstructure:"tick_rate"`
	// MaxTurns ends the battle in a draw after this many turns; 0 disables.
	MaxTurns int `mapstructure:"max_turns"`
}

// TickInterval returns the wall time between host ticks.
//
// Precondition: TickRate > 0.
func (b BattleConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(b.TickRate)
}

// ContentConfig locates the content library and the scenario to play.
type ContentConfig struct {
	Root     string `mapstructure:"root"`
	Scenario string `mapstructure:"scenario"`
	// InstructionLimit caps Lua opcodes per hook call; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// ArchiveConfig selects where finished battles are recorded.
type ArchiveConfig struct {
	// Backend is "none", "sqlite", or "postgres".
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
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
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Content  ContentConfig  `mapstructure:"content"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Database DatabaseConfig `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateBattle(c.Battle),
		validateContent(c.Content),
		validateArchive(c.Archive),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Archive.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
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

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.ChargeThreshold < 1 {
		errs = append(errs, fmt.Sprintf("battle.charge_threshold must be >= 1, got %d", b.ChargeThreshold))
	}
	if b.HistorySize < 1 {
		errs = append(errs, fmt.Sprintf("battle.history_size must be >= 1, got %d", b.HistorySize))
	}
	if b.PredictionLength < 0 {
		errs = append(errs, fmt.Sprintf("battle.prediction_length must be >= 0, got %d", b.PredictionLength))
	}
	if b.AIThinkDelay < 0 || b.AIActionDelay < 0 || b.MoveStepDuration < 0 {
		errs = append(errs, "battle delays must not be negative")
	}
	if b.TickRate < 1 {
		errs = append(errs, fmt.Sprintf("battle.tick_rate must be >= 1, got %d", b.TickRate))
	}
	if b.MaxTurns < 0 {
		errs = append(errs, fmt.Sprintf("battle.max_turns must be >= 0, got %d", b.MaxTurns))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.Root == "" {
		errs = append(errs, "content.root must not be empty")
	}
	if c.Scenario == "" {
		errs = append(errs, "content.scenario must not be empty")
	}
	if c.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.instruction_limit must be >= 0, got %d", c.InstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateArchive(a ArchiveConfig) error {
	switch a.Backend {
	case "none", "postgres":
		return nil
	case "sqlite":
		if a.SQLitePath == "" {
			return fmt.Errorf("archive.sqlite_path must not be empty for the sqlite backend")
		}
		return nil
	default:
		return fmt.Errorf("archive.backend must be one of [none, sqlite, postgres], got %q", a.Backend)
	}
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

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and TACTICS_ environment
// overrides applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TACTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
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
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.charge_threshold", 100)
	v.SetDefault("battle.history_size", 8)
	v.SetDefault("battle.prediction_length", 8)
	v.SetDefault("battle.ai_think_delay", "400ms")
	v.SetDefault("battle.ai_action_delay", "300ms")
	v.SetDefault("battle.move_step_duration", "120ms")
	v.SetDefault("battle.tick_rate", 60)
	v.SetDefault("battle.max_turns", 500)

	v.SetDefault("content.root", "content")
	v.SetDefault("content.scenario", "skirmish")
	v.SetDefault("content.instruction_limit", 0)

	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.sqlite_path", "battles.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tactics")
	v.SetDefault("database.password", "tactics")
	v.SetDefault("database.name", "tactics")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
}
