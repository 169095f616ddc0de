// Command boardwatch follows a beach club backend's change stream and logs
// the board's alert counts on every tick.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/playperu/beachclub/internal/boardwatch"
	"github.com/playperu/beachclub/internal/clock"
	"github.com/playperu/beachclub/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		url      string
		username string
		password string
		tick     time.Duration
	)

	cmd := &cobra.Command{
		Use:           "boardwatch",
		Short:         "Follow the beach club floor and log alert counts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			// Flags win over the environment.
			flags := c.Flags()
			if flags.Changed("url") {
				cfg.BoardURL = url
			}
			if flags.Changed("user") {
				cfg.StaffUsername = username
			}
			if flags.Changed("password") {
				cfg.StaffPassword = password
			}
			if flags.Changed("tick") {
				if tick <= 0 {
					return fmt.Errorf("--tick must be positive, got %s", tick)
				}
				cfg.TickInterval = tick
			}

			return run(c.Context(), stdout, cfg)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "backend base URL (env BOARD_URL)")
	cmd.Flags().StringVar(&username, "user", "", "staff username (env STAFF_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "staff password (env STAFF_PASSWORD)")
	cmd.Flags().DurationVarP(&tick, "tick", "t", 0, "recompute interval, e.g. 30s (env TICK_INTERVAL)")
	return cmd
}

func run(ctx context.Context, stdout io.Writer, cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := clock.System(loc)

	board, err := boardwatch.Connect(ctx, cfg.BoardURL, cfg.StaffUsername, cfg.StaffPassword, cfg.AlertPolicy(), clk, logger)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.BoardURL, err)
	}
	if err := board.Load(ctx); err != nil {
		return err
	}
	logger.Info("board loaded",
		"url", cfg.BoardURL,
		"zones", len(board.Zones.Snapshot()),
		"orders", len(board.Orders.Snapshot()),
		"reservations", len(board.Reservations.Snapshot()),
		"tick", cfg.TickInterval,
	)

	return board.Run(ctx, cfg.TickInterval)
}
