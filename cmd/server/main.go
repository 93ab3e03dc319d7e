// Command server runs the party game server: a websocket endpoint for
// players plus health and stats endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/LemmyAI/ideaparty/internal/config"
	"github.com/LemmyAI/ideaparty/internal/game"
	"github.com/LemmyAI/ideaparty/internal/logger"
	"github.com/LemmyAI/ideaparty/internal/schedule"
	"github.com/LemmyAI/ideaparty/internal/transport"
)

// Options override values from the config file.
type Options struct {
	Config       string        `long:"config" short:"c" env:"CONFIG_PATH" description:"YAML configuration file"`
	Addr         string        `long:"addr" env:"ADDR" description:"HTTP listen address"`
	WritingTicks int           `long:"writing-ticks" description:"Countdown ticks before ideas are requested"`
	Grace        time.Duration `long:"grace" description:"Disconnect grace period"`
	Debug        bool          `long:"debug" short:"d" description:"Enable debug logging"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "dotenv not loaded: %v\n", err)
	}

	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyOptions(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.LoggerConfig())
	slog.Info("🎮 Server starting", "addr", cfg.HTTP.Addr, "config", opts.Config)

	ws := transport.NewWebSocket(cfg.Transport, cfg.HTTP.AllowedOrigins)
	engine := game.NewEngine(cfg.Engine(), ws, schedule.NewClock())
	engine.Start()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newRouter(cfg, ws, engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🎧 Listening", "addr", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("🛑 Shutting down...", "signal", sig.String())
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("❌ HTTP server failed", "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP shutdown", "err", err)
	}
	if err := ws.Close(); err != nil {
		slog.Warn("transport close", "err", err)
	}
	engine.Stop()
	slog.Info("👋 Bye!")
}

func applyOptions(cfg *config.Config, opts Options) {
	if opts.Addr != "" {
		cfg.HTTP.Addr = opts.Addr
	}
	if opts.WritingTicks > 0 {
		cfg.Game.WritingTicks = opts.WritingTicks
	}
	if opts.Grace > 0 {
		cfg.Game.DisconnectGrace = opts.Grace
	}
	if opts.Debug {
		cfg.Logging.Debug = true
		cfg.Logging.Level = "debug"
	}
}

type statsResponse struct {
	game.Stats
	Started     string `json:"started"`
	Connections int    `json:"connections"`
}

func newRouter(cfg config.Config, ws *transport.WebSocket, engine *game.Engine) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Handle("/ws", ws)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		st, err := engine.Stats()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, statsResponse{
			Stats:       st,
			Started:     humanize.Time(time.Now().Add(-st.Uptime)),
			Connections: ws.ConnCount(),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "err", err)
	}
}
