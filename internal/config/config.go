// Package config loads the server configuration from YAML. Every field has
// a default, so an empty or missing file yields a runnable server.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LemmyAI/ideaparty/internal/game"
	"github.com/LemmyAI/ideaparty/internal/logger"
	"github.com/LemmyAI/ideaparty/internal/room"
	"github.com/LemmyAI/ideaparty/internal/transport"
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrConfigNotFound = errors.New("configuration file not found")
)

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Logging struct {
	Env       string `yaml:"env"`     // dev|stage|prod, empty means APP_ENV
	Service   string `yaml:"service"` // ideaparty
	Version   string `yaml:"version"`
	Backend   string `yaml:"backend"` // std|zap
	Level     string `yaml:"level"`   // debug|info|warn|error
	AddSource bool   `yaml:"add_source"`
	Debug     bool   `yaml:"debug"`
}

// Game holds the phase timing knobs.
type Game struct {
	WritingTicks    int           `yaml:"writing_ticks"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	DisconnectGrace time.Duration `yaml:"disconnect_grace"`
	InboxSize       int           `yaml:"inbox_size"`
}

type Config struct {
	HTTP      HTTP             `yaml:"http"`
	Logging   Logging          `yaml:"logging"`
	Room      room.Config      `yaml:"room"`
	Game      Game             `yaml:"game"`
	Transport transport.Config `yaml:"transport"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:           ":3001",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Logging: Logging{
			Service: "ideaparty",
			Version: "v0.1.0",
			Level:   "info",
		},
		Room: room.DefaultConfig(),
		Game: Game{
			WritingTicks:    30,
			TickInterval:    time.Second,
			DisconnectGrace: 500 * time.Millisecond,
			InboxSize:       1024,
		},
		Transport: transport.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Addr == "":
		return fmt.Errorf("%w: http.addr is required", ErrInvalidConfig)
	case c.Room.MaxPlayers < 1:
		return fmt.Errorf("%w: room.max_players must be positive, got %d", ErrInvalidConfig, c.Room.MaxPlayers)
	case c.Room.FirstCode < 0:
		return fmt.Errorf("%w: room.first_code must not be negative", ErrInvalidConfig)
	case c.Room.RoomTTL > 0 && c.Room.CleanupPeriod <= 0:
		return fmt.Errorf("%w: room.cleanup_period must be positive when room.ttl is set", ErrInvalidConfig)
	case c.Game.WritingTicks < 1:
		return fmt.Errorf("%w: game.writing_ticks must be positive, got %d", ErrInvalidConfig, c.Game.WritingTicks)
	case c.Game.TickInterval <= 0:
		return fmt.Errorf("%w: game.tick_interval must be positive", ErrInvalidConfig)
	case c.Game.DisconnectGrace < 0:
		return fmt.Errorf("%w: game.disconnect_grace must not be negative", ErrInvalidConfig)
	case c.Game.InboxSize < 1:
		return fmt.Errorf("%w: game.inbox_size must be positive", ErrInvalidConfig)
	case c.Transport.SendBufferSize < 1:
		return fmt.Errorf("%w: transport.send_buffer must be positive", ErrInvalidConfig)
	case c.Transport.MaxMessageSize < 1:
		return fmt.Errorf("%w: transport.max_message_size must be positive", ErrInvalidConfig)
	case c.Transport.WriteTimeout <= 0:
		return fmt.Errorf("%w: transport.write_timeout must be positive", ErrInvalidConfig)
	case c.Transport.RateLimit < 0:
		return fmt.Errorf("%w: transport.rate_limit must not be negative", ErrInvalidConfig)
	case c.Transport.RateLimit > 0 && c.Transport.RateBurst < 1:
		return fmt.Errorf("%w: transport.rate_burst must be positive when rate_limit is set", ErrInvalidConfig)
	}
	switch logger.Backend(c.Logging.Backend) {
	case "", logger.BackendStd, logger.BackendZap:
	default:
		return fmt.Errorf("%w: logging.backend %q must be std or zap", ErrInvalidConfig, c.Logging.Backend)
	}
	if _, err := logger.ParseEnv(c.Logging.Env); err != nil {
		return fmt.Errorf("%w: logging.env: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Logging.level(); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (l Logging) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return lvl, nil
	}
	err := lvl.UnmarshalText([]byte(l.Level))
	return lvl, err
}

// LoggerConfig converts the logging section for logger.Init.
func (l Logging) LoggerConfig() logger.Config {
	lvl, _ := l.level()
	cfg := logger.Config{
		Service:   l.Service,
		Version:   l.Version,
		Level:     lvl,
		Backend:   logger.Backend(l.Backend),
		Debug:     l.Debug,
		AddSource: l.AddSource,
	}
	if l.Env != "" {
		cfg.Env, _ = logger.ParseEnv(l.Env)
	}
	return cfg
}

// Engine assembles the game engine settings.
func (c Config) Engine() game.Config {
	return game.Config{
		Room:            c.Room,
		WritingTicks:    c.Game.WritingTicks,
		TickInterval:    c.Game.TickInterval,
		DisconnectGrace: c.Game.DisconnectGrace,
		InboxSize:       c.Game.InboxSize,
	}
}
