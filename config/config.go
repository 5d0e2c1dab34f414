package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete session configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Feed     FeedConfig     `json:"feed" yaml:"feed"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	// StartingCash is a decimal string so the value crosses the config
	// boundary without float rounding.
	StartingCash string `json:"starting_cash" yaml:"starting_cash"`
}

// ParseStartingCash converts the starting cash string to a decimal.
func (a AccountConfig) ParseStartingCash() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(a.StartingCash)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("starting cash %q is not positive", a.StartingCash)
	}
	return d, nil
}

// FeedConfig controls how ticks are delivered into the engine
type FeedConfig struct {
	Symbols    []string `json:"symbols" yaml:"symbols"`
	Interval   string   `json:"interval" yaml:"interval"` // e.g. "5s", "1m"
	ReplayFile string   `json:"replay_file,omitempty" yaml:"replay_file,omitempty"`
}

// ParseInterval converts the interval string to a time.Duration
func (f FeedConfig) ParseInterval() (time.Duration, error) {
	if f.Interval == "" {
		return 5 * time.Second, nil
	}
	return time.ParseDuration(f.Interval)
}

// JournalConfig contains trade-log parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "memory" or "sqlite"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// SnapshotConfig contains durable-store parameters
type SnapshotConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// ServerConfig contains the REST/websocket host parameters
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// LoadEnv loads a .env file when present and applies PAPERTRADE_*
// overrides on top of the file config. Missing .env is not an error.
func (c *Config) LoadEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("PAPERTRADE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PAPERTRADE_JOURNAL_DB"); v != "" {
		c.Journal.Type = "sqlite"
		c.Journal.DBPath = v
	}
	if v := os.Getenv("PAPERTRADE_SNAPSHOT_DB"); v != "" {
		c.Snapshot.DBPath = v
	}
	if v := os.Getenv("PAPERTRADE_SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.Account.ParseStartingCash(); err != nil {
		return fmt.Errorf("account.starting_cash: %w", err)
	}
	if len(c.Feed.Symbols) == 0 && c.Feed.ReplayFile == "" {
		return fmt.Errorf("feed.symbols or feed.replay_file is required")
	}
	if _, err := c.Feed.ParseInterval(); err != nil {
		return fmt.Errorf("feed.interval: %w", err)
	}
	if c.Journal.Type != "memory" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'memory' or 'sqlite'")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required for sqlite type")
	}
	if c.Snapshot.DBPath == "" {
		return fmt.Errorf("snapshot.db_path is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			StartingCash: "100000",
		},
		Feed: FeedConfig{
			Symbols:  []string{"AAPL", "MSFT", "GOOG"},
			Interval: "5s",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./papertrade.db",
		},
		Snapshot: SnapshotConfig{
			DBPath: "./papertrade.db",
		},
		Server: ServerConfig{
			Addr:           ":8090",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}
