package logger

import (
	"io"
	"log/slog"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func (cfg Config) handler(w io.Writer) slog.Handler {
	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = zapHandler(cfg, w)
	default:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     cfg.level(),
			AddSource: cfg.AddSource,
		})
	}
	return h.WithAttrs(cfg.attrs())
}

func (cfg Config) attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
		slog.String("env", string(cfg.Env)),
		slog.String("instance", cfg.InstanceID),
	}
}

func zapHandler(cfg Config, w io.Writer) slog.Handler {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zapLevel(cfg.level()))
	core = zapcore.NewSamplerWithOptions(core, time.Second, cfg.Sampling.Initial, cfg.Sampling.Thereafter)

	return slogzap.Option{Level: cfg.level(), Logger: zap.New(core)}.NewZapHandler()
}

func zapLevel(lvl slog.Level) zapcore.Level {
	switch {
	case lvl <= slog.LevelDebug:
		return zapcore.DebugLevel
	case lvl <= slog.LevelInfo:
		return zapcore.InfoLevel
	case lvl <= slog.LevelWarn:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}
