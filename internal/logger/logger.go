// Package logger installs the process-wide slog logger. Development gets the
// stdlib text handler; stage and prod get a sampled zap JSON core behind
// slog-zap.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

// ParseEnv accepts dev, stage or prod in any case. Empty is dev.
func ParseEnv(raw string) (Env, error) {
	switch env := Env(strings.ToLower(strings.TrimSpace(raw))); env {
	case "":
		return EnvDev, nil
	case EnvDev, EnvStage, EnvProd:
		return env, nil
	}
	return EnvDev, fmt.Errorf("unknown environment %q", raw)
}

// envFromOS reads APP_ENV. Unknown values run as dev.
func envFromOS() Env {
	env, _ := ParseEnv(os.Getenv("APP_ENV"))
	return env
}

type Backend string

const (
	BackendStd Backend = "std" // text, for dev
	BackendZap Backend = "zap" // JSON via slog-zap
)

// Sampling caps zap output per second: the first Initial records with a
// given message pass, then every Thereafter-th.
type Sampling struct {
	Initial    int
	Thereafter int
}

// Config selects the backend and the attributes stamped on every record.
type Config struct {
	Service    string
	Version    string
	InstanceID string // default: hostname plus a short uuid

	Level     slog.Level
	Env       Env     // default: APP_ENV
	Backend   Backend // default: std in dev, zap otherwise
	Debug     bool
	AddSource bool // std backend only

	Sampling Sampling
}

var (
	output io.Writer = os.Stdout
	def    *slog.Logger
)

// Init builds the handler described by cfg and makes it the slog default.
func Init(cfg Config) *slog.Logger {
	cfg = withDefaults(cfg)
	def = slog.New(cfg.handler(output))
	slog.SetDefault(def)
	return def
}

// L returns the installed logger, initialising a dev logger on first use.
func L() *slog.Logger {
	if def == nil {
		return Init(Config{})
	}
	return def
}

func withDefaults(cfg Config) Config {
	if cfg.Env == "" {
		cfg.Env = envFromOS()
	}
	if cfg.Service == "" {
		cfg.Service = "ideaparty"
	}
	if cfg.InstanceID == "" {
		host, _ := os.Hostname()
		cfg.InstanceID = host + "-" + uuid.NewString()[:8]
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendZap
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		}
	}
	if cfg.Sampling.Initial <= 0 {
		cfg.Sampling.Initial = 100
	}
	if cfg.Sampling.Thereafter <= 0 {
		cfg.Sampling.Thereafter = 10
	}
	return cfg
}

// level resolves the effective level: Debug only lowers an unset level.
func (cfg Config) level() slog.Level {
	if cfg.Debug && cfg.Level == 0 {
		return slog.LevelDebug
	}
	return cfg.Level
}
