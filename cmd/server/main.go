package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/beachclub/internal/clock"
	"github.com/playperu/beachclub/internal/config"
	"github.com/playperu/beachclub/internal/database"
	"github.com/playperu/beachclub/internal/handler/health"
	"github.com/playperu/beachclub/internal/migrations"
	"github.com/playperu/beachclub/internal/notify"
	"github.com/playperu/beachclub/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := clock.System(loc)

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	store := server.NewDocStore(db, clk)
	staff := server.NewStaffStore(db, clk)

	created, err := staff.EnsureStaff(ctx, cfg.StaffUsername, cfg.StaffPassword)
	if err != nil {
		return fmt.Errorf("creating staff account: %w", err)
	}
	if created {
		logger.Info("created initial staff account", "username", cfg.StaffUsername)
	}

	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, logger, store); err != nil {
			return fmt.Errorf("seeding demo floor: %w", err)
		}
	}

	checks := map[string]health.Checker{"sqlite": health.DB(db)}

	// --- Redis (optional) ---
	var relay *server.Relay
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		relay = server.NewRelay(rdb, logger)
		checks["redis"] = health.Redis(rdb)
	}
	broker := server.NewBroker(logger, relay)

	// --- AMQP (optional) ---
	notifier := notify.New(cfg.AMQPURL, logger)
	if cfg.AMQPURL != "" {
		logger.Info("reservation notifications enabled", "queue", notify.ReservationCreatedQueue)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Store:    store,
		Staff:    staff,
		Broker:   broker,
		Notifier: notifier,
		Clock:    clk,
		Policy:   cfg.AlertPolicy(),
		SPADir:   cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "timezone", loc.String())
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx, broker)
		})
	}

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
