package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"bomblog/internal/game"
)

// EnvPrefix prefixes every environment override, e.g. BOMBLOG_DB_PATH.
const EnvPrefix = "BOMBLOG_"

type Config struct {
	General GeneralConfig `toml:"general"`
	Session SessionConfig `toml:"session"`
	Game    GameConfig    `toml:"game"`
	Paths   PathsConfig   `toml:"paths"`
}

type GeneralConfig struct {
	DBPath    string `toml:"db_path" env:"DB_PATH"`
	LogLevel  string `toml:"log_level" env:"LOG_LEVEL"`
	LogPretty bool   `toml:"log_pretty" env:"LOG_PRETTY"`
}

type SessionConfig struct {
	OpeningBalance  float64 `toml:"opening_balance" env:"OPENING_BALANCE"`
	DefaultStrategy string  `toml:"default_strategy" env:"DEFAULT_STRATEGY"`
	DefaultBet      float64 `toml:"default_bet" env:"DEFAULT_BET"`
}

type GameConfig struct {
	Multipliers []float64 `toml:"multipliers" env:"MULTIPLIERS" envSeparator:","`
}

// Table returns the configured multipliers as a lookup table.
func (g GameConfig) Table() game.MultiplierTable {
	return game.MultiplierTable(g.Multipliers)
}

type PathsConfig struct {
	ExportDir string `toml:"export_dir" env:"EXPORT_DIR"`
	BackupDir string `toml:"backup_dir" env:"BACKUP_DIR"`
}

// Load reads the TOML file at path on top of the defaults, then applies a
// .env file from the working directory and BOMBLOG_* environment variables.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.General.DBPath == "" {
		return fmt.Errorf("general.db_path is required")
	}
	if c.Session.OpeningBalance < 0 {
		return fmt.Errorf("session.opening_balance must not be negative, got %v", c.Session.OpeningBalance)
	}
	if c.Session.DefaultBet <= 0 {
		return fmt.Errorf("session.default_bet must be positive, got %v", c.Session.DefaultBet)
	}
	if c.Session.DefaultStrategy == "" {
		return fmt.Errorf("session.default_strategy is required")
	}
	for i, m := range c.Game.Multipliers {
		if m < 1 {
			return fmt.Errorf("game.multipliers[%d] must be at least 1, got %v", i, m)
		}
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DBPath:   "./data/bomb_game.db",
			LogLevel: "info",
		},
		Session: SessionConfig{
			OpeningBalance:  1.34,
			DefaultStrategy: "moderate",
			DefaultBet:      0.1,
		},
		Game: GameConfig{
			Multipliers: append([]float64(nil), game.DefaultMultipliers...),
		},
		Paths: PathsConfig{
			ExportDir: "./exports",
			BackupDir: "./backups",
		},
	}
}
