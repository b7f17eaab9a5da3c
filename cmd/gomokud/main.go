package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gomokugo/server/internal/config"
	"github.com/gomokugo/server/internal/crypto"
	"github.com/gomokugo/server/internal/db"
	"github.com/gomokugo/server/internal/event"
	"github.com/gomokugo/server/internal/handler"
	"github.com/gomokugo/server/internal/notifier"
	"github.com/gomokugo/server/internal/server"
	"github.com/gomokugo/server/internal/store"
)

const ConfigPath = "config/gomokud.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("GOMOKUD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))
	slog.Info("gomoku server starting", "bind", cfg.BindAddress, "port", cfg.Port)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	st := store.New(db.NewGateway(database))
	if err := st.Load(ctx); err != nil {
		return fmt.Errorf("warm-loading users: %w", err)
	}

	bus := event.NewBus()

	identity, err := crypto.NewIdentity()
	if err != nil {
		return fmt.Errorf("generating server identity: %w", err)
	}

	table := server.NewTable()
	wheel := server.NewTimeWheel(cfg.TimeWheelTick(), cfg.TimeWheelSlots)

	h := handler.New(st, bus, table, cfg.LobbySnapshotSize)

	fin := store.NewFinalizer(st, bus)
	defer fin.Close()

	ntf := notifier.New(st, bus, table, cfg.LobbySnapshotSize)
	defer ntf.Close()

	srv := server.NewServer(cfg, identity, table, wheel, h, h.CleanupSession)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := wheel.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("time wheel: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("game server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
