// Package config loads the auction server configuration. Values come from
// built-in defaults, then the YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mcdev12/auctionhouse/go/internal/auction/session"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string        `yaml:"log_level" env:"LOG_LEVEL"`
	Server   ServerConfig  `yaml:"server"`
	Auction  AuctionConfig `yaml:"auction"`
	Events   EventsConfig  `yaml:"events"`
	Archive  ArchiveConfig `yaml:"archive"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" env:"PORT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	SendBufferSize  int           `yaml:"send_buffer_size" env:"WS_SEND_BUFFER_SIZE"`
}

type AuctionConfig struct {
	Capacity           int           `yaml:"capacity" env:"AUCTION_CAPACITY"`
	StartingBudget     int           `yaml:"starting_budget" env:"AUCTION_STARTING_BUDGET"`
	Teams              []string      `yaml:"teams" env:"AUCTION_TEAMS" envSeparator:","`
	CountdownTicks     int           `yaml:"countdown_ticks" env:"AUCTION_COUNTDOWN_TICKS"`
	TickInterval       time.Duration `yaml:"tick_interval" env:"AUCTION_TICK_INTERVAL"`
	StartDelay         time.Duration `yaml:"start_delay" env:"AUCTION_START_DELAY"`
	ExpirySlack        int           `yaml:"expiry_slack" env:"AUCTION_EXPIRY_SLACK"`
	MaxSessions        int           `yaml:"max_sessions" env:"AUCTION_MAX_SESSIONS"`
	ResetWhenAbandoned bool          `yaml:"reset_when_abandoned" env:"AUCTION_RESET_WHEN_ABANDONED"`
	// CatalogPath points at a players JSON file. Empty uses the bundled catalog.
	CatalogPath string `yaml:"catalog_path" env:"AUCTION_CATALOG_PATH"`
}

// EventsConfig configures the domain event stream. An empty NATSURL keeps
// events in the application log only.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url" env:"NATS_URL"`
	StreamName    string `yaml:"stream_name" env:"EVENTS_STREAM_NAME"`
	SubjectPrefix string `yaml:"subject_prefix" env:"EVENTS_SUBJECT_PREFIX"`
	BufferSize    int    `yaml:"buffer_size" env:"EVENTS_BUFFER_SIZE"`
	LogEvents     bool   `yaml:"log_events" env:"EVENTS_LOG"`
}

type ArchiveConfig struct {
	// Driver is "sqlite", "postgres" or empty to disable the archive.
	Driver     string `yaml:"driver" env:"ARCHIVE_DRIVER"`
	SQLitePath string `yaml:"sqlite_path" env:"ARCHIVE_SQLITE_PATH"`
}

func Default() Config {
	settings := session.DefaultSettings()
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:            "8080",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SendBufferSize:  256,
		},
		Auction: AuctionConfig{
			Capacity:           settings.Capacity,
			StartingBudget:     settings.StartingBudget,
			Teams:              settings.Teams,
			CountdownTicks:     settings.CountdownTicks,
			TickInterval:       settings.TickInterval,
			StartDelay:         settings.StartDelay,
			ExpirySlack:        settings.ExpirySlack,
			MaxSessions:        0,
			ResetWhenAbandoned: settings.ResetWhenAbandoned,
		},
		Events: EventsConfig{
			StreamName:    "AUCTION_EVENTS",
			SubjectPrefix: "auction.events",
			BufferSize:    1024,
			LogEvents:     true,
		},
		Archive: ArchiveConfig{
			Driver:     "sqlite",
			SQLitePath: "auction_archive.db",
		},
	}
}

type location struct {
	Path string `env:"CONFIG_PATH"`
}

// PathFromEnv returns the config file named by CONFIG_PATH, or "" when unset.
func PathFromEnv() (string, error) {
	loc, err := env.ParseAs[location]()
	if err != nil {
		return "", fmt.Errorf("failed to parse CONFIG_PATH: %w", err)
	}
	return loc.Path, nil
}

// Load reads .env (if present), the YAML file at path (if path is not
// empty) and the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if err := c.Auction.Settings().Validate(); err != nil {
		return fmt.Errorf("invalid auction config: %w", err)
	}
	if c.Auction.MaxSessions < 0 {
		return errors.New("auction max_sessions must not be negative")
	}
	if !slices.Contains([]string{"", "sqlite", "postgres"}, c.Archive.Driver) {
		return fmt.Errorf("unknown archive driver %q", c.Archive.Driver)
	}
	if c.Archive.Driver == "sqlite" && c.Archive.SQLitePath == "" {
		return errors.New("archive sqlite_path is required for the sqlite driver")
	}
	return nil
}

// Settings converts the auction section into session rules.
func (a AuctionConfig) Settings() session.Settings {
	return session.Settings{
		Capacity:           a.Capacity,
		StartingBudget:     a.StartingBudget,
		Teams:              a.Teams,
		CountdownTicks:     a.CountdownTicks,
		TickInterval:       a.TickInterval,
		StartDelay:         a.StartDelay,
		ExpirySlack:        a.ExpirySlack,
		ResetWhenAbandoned: a.ResetWhenAbandoned,
	}
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
