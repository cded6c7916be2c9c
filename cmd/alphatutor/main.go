// Command alphatutor is the main entry point for the alphabet tutor server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/kidsafe/alphatutor/internal/config"
	"github.com/kidsafe/alphatutor/internal/curriculum"
	"github.com/kidsafe/alphatutor/internal/health"
	"github.com/kidsafe/alphatutor/internal/httpapi"
	"github.com/kidsafe/alphatutor/internal/memory"
	"github.com/kidsafe/alphatutor/internal/observe"
	"github.com/kidsafe/alphatutor/internal/phoneme"
	"github.com/kidsafe/alphatutor/internal/safety"
	"github.com/kidsafe/alphatutor/internal/tutor"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// shutdownTimeout bounds graceful HTTP drain and telemetry flush.
const shutdownTimeout = 15 * time.Second

// maxTrackedSessions is the readiness cap on concurrently tracked sessions.
const maxTrackedSessions = 10000

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	envPath := flag.String("env", ".env", "path to an optional dotenv file")
	flag.Parse()

	// ── Dotenv (optional) ─────────────────────────────────────────────────────
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "alphatutor: load %s: %v\n", *envPath, err)
		return 1
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "alphatutor: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "alphatutor: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("alphatutor starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "alphatutor",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Core components ───────────────────────────────────────────────────────
	lessons := curriculum.New(cfg.Tutor.LessonsFile)
	sessions := memory.New(cfg.Tutor.MaxTurns)
	filter := safety.New(
		safety.WithCensorToken(cfg.Safety.CensorToken),
		safety.WithRedactionToken(cfg.Safety.RedactionToken),
	)
	scorer := phoneme.New()

	if err := metrics.RegisterActiveSessions(sessions.Len); err != nil {
		slog.Error("failed to register session gauge", "err", err)
		return 1
	}

	orch := tutor.New(lessons, filter, scorer, sessions, tutor.WithMetrics(metrics))

	// ── Background workers ────────────────────────────────────────────────────
	if ttl := cfg.Tutor.SessionIdleTTL.Std(); ttl > 0 {
		sessions.StartSweeper(ctx, ttl)
	}
	if cfg.Tutor.WatchLessons {
		watcher := curriculum.NewWatcher(lessons)
		defer watcher.Stop()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	checks := health.New(
		health.CurriculumChecker(lessons),
		health.SessionChecker(sessions, maxTrackedSessions),
	)
	api := httpapi.New(orch, sessions, lessons, scorer, checks,
		httpapi.WithMetrics(metrics),
		httpapi.WithParentalGate(cfg.Safety.ParentalGate),
	)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(drainCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      alphatutor — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Listen addr", cfg.Server.ListenAddr)
	lessons := cfg.Tutor.LessonsFile
	if lessons == "" {
		lessons = "(built-in fallback)"
	}
	printRow("Lessons file", lessons)
	printRow("Max turns", fmt.Sprintf("%d", cfg.Tutor.MaxTurns))
	if cfg.Tutor.SessionIdleTTL > 0 {
		printRow("Idle TTL", cfg.Tutor.SessionIdleTTL.Std().String())
	} else {
		printRow("Idle TTL", "(disabled)")
	}
	printRow("Lesson watcher", onOff(cfg.Tutor.WatchLessons))
	printRow("Parental gate", onOff(cfg.Safety.ParentalGate))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "(disabled)"
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
