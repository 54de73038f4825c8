package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fixado/dialog"
	"github.com/fixado/dialog/admin"
	"github.com/fixado/dialog/config"
	"github.com/fixado/dialog/core"
	"github.com/fixado/dialog/extract"
	"github.com/fixado/dialog/extract/anthropic"
	"github.com/fixado/dialog/extract/openai"
	"github.com/fixado/dialog/interrupt"
	"github.com/fixado/dialog/logging"
	"github.com/fixado/dialog/session"
	redissess "github.com/fixado/dialog/session/redis"
	"github.com/fixado/dialog/session/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine and its admin HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     parseLogLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
		Component: "dialogd",
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the durable tier.
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening session database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing session database", "error", err)
		}
	}()

	// Optional redis cache tier.
	var cache core.Cache
	if cfg.RedisAddr != "" {
		rc, err := redissess.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rc.Close() //nolint:errcheck
		cache = rc
		logger.Info("redis cache enabled", "addr", cfg.RedisAddr)
	}

	// Build the extraction chain and the interruption classifier. Model
	// providers double as the classifier fallback via their Complete call.
	var primary extract.Extractor
	var completer interrupt.Completer
	switch cfg.Provider {
	case "anthropic":
		a := anthropic.NewExtractor(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
		})
		primary, completer = a, a
	case "openai":
		o := openai.NewExtractor()
		primary, completer = o, o
	default:
		// Keyword-only: the chain goes straight to the deterministic
		// fallback and interruptions rely on phrase patterns alone.
	}

	var classifier interrupt.Classifier
	if completer != nil {
		classifier = interrupt.NewHybridClassifier(interrupt.NewModelClassifier(completer))
	}
	interrupts := interrupt.New(classifier, func(o *interrupt.Options) {
		o.Audit = store
		o.Logger = logger
	})

	engine := dialog.New(func(o *dialog.Options) {
		o.Durable = store
		o.Cache = cache
		o.StoreOptions = []func(so *session.Options){func(so *session.Options) {
			so.SessionTTL = cfg.SessionTTL
			so.WorkingSetSize = cfg.WorkingSetSize
			so.SweepInterval = cfg.SweepInterval
		}}
		o.Extractor = extract.NewChain(primary)
		o.Interrupts = interrupts
		o.Logger = logger
	})
	engine.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := engine.Shutdown(shutdownCtx); err != nil && !errors.Is(err, core.ErrStoreClosed) {
			logger.Warn("engine shutdown", "error", err)
		}
	}()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: admin.NewHandler(admin.Deps{
			Store: engine.Store(),
			Token: cfg.AdminToken,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("admin server listening", "addr", cfg.HTTPAddr, "provider", cfg.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("dialogd stopped")
	return nil
}

func parseLogLevel(s string) logging.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
