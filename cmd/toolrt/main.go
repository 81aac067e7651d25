package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/revittco/toolrt/internal/api"
	"github.com/revittco/toolrt/internal/config"
	"github.com/revittco/toolrt/internal/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "toolrt: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	subcmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "serve":
		return cmdServe(args)
	case "init":
		return cmdInit()
	case "status":
		return cmdStatus()
	case "secret":
		return cmdSecret(args)
	case "config":
		return cmdConfig(args)
	default:
		return fmt.Errorf("unknown command: %s\nUsage: toolrt [serve|init|status|secret|config]", subcmd)
	}
}

// cmdServe runs the long-lived HTTP host exposing getWorkspaceTools,
// search, and invokeTool (spec.md §4.4/§4.5/§4.7), grounded on the
// teacher's cmdServe/runHTTP pairing.
func cmdServe(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, args)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	db, err := sqlite.New(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, statErr := os.Stat(cfg.ConfigFile); statErr == nil {
		fileCfg, err := config.LoadFile(cfg.ConfigFile)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
		if err := config.Apply(ctx, db, fileCfg); err != nil {
			return fmt.Errorf("apply config: %w", err)
		}
		logger.Info("loaded tool sources from config", "file", cfg.ConfigFile)
	}

	comps, err := buildComponents(cfg, db)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}

	router := api.NewRouter(api.RouterDeps{Host: comps.host, Pipeline: comps.pipeline})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// applyFlags parses --addr=X from the args list, matching the
// teacher's flat "--flag=value" convention rather than pulling in a
// flag-parsing dependency for a single option.
func applyFlags(cfg *Config, args []string) {
	for _, arg := range args {
		if len(arg) > 7 && arg[:7] == "--addr=" {
			cfg.HTTPAddr = arg[7:]
		}
	}
}
