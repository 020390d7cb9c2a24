// Command redrive replays archived dead letters back onto their original
// NATS subjects and serves the admin HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/api"
	"github.com/xraph/redrive/replay"
)

const defaultEnvFile = ".env"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "redrive",
		Short:         "Dead-letter replay engine",
		Long:          "redrive re-drives archived dead letters through the replay engine and serves the admin API.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.logger()
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file loaded before reading REDRIVE_* variables")

	rootCmd.AddCommand(
		newServeCmd(a),
		newReplayCmd(a),
		newReplayAllCmd(a),
		newMigrateCmd(a),
		newPurgeCmd(a),
	)
	return rootCmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin HTTP API and run the scheduled sweep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := setupTracing(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer shutdownWithTimeout(shutdownTracing, a.cfg.ShutdownTimeout)

			if err := a.openEngine(ctx); err != nil {
				return err
			}
			defer func() {
				if err := shutdownWithTimeout(a.close, a.cfg.ShutdownTimeout); err != nil {
					a.logger.Error("shutdown", slog.String("error", err.Error()))
				}
			}()

			if err := a.store.Migrate(ctx); err != nil {
				return fmt.Errorf("%w: %w", redrive.ErrMigrationFailed, err)
			}
			if err := a.eng.Start(ctx); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           api.New(a.eng, nil).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("admin api listening", slog.String("addr", a.cfg.HTTPAddr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				a.logger.Info("shutting down")
			}
			return shutdownWithTimeout(srv.Shutdown, a.cfg.ShutdownTimeout)
		},
	}
}

func newReplayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <aggregate-id>",
		Short: "Replay the dead letters of one aggregate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid aggregate id %q: %w", args[0], err)
			}
			return a.runReplay(cmd, func(ctx context.Context) (*replay.Summary, error) {
				return a.eng.ReplayOne(ctx, agg)
			})
		},
	}
}

func newReplayAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay-all",
		Short: "Replay every dead letter, grouped by aggregate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReplay(cmd, a.eng.ReplayAll)
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the dead-letter store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.openStore(ctx); err != nil {
				return err
			}
			defer func() { _ = a.close(ctx) }()

			if err := a.store.Migrate(ctx); err != nil {
				return fmt.Errorf("%w: %w", redrive.ErrMigrationFailed, err)
			}
			a.logger.Info("migrations applied")
			return nil
		},
	}
}

func newPurgeCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete dead letters that failed before a cutoff, replayed or not",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			ctx := cmd.Context()
			if err := a.openStore(ctx); err != nil {
				return err
			}
			defer func() { _ = a.close(ctx) }()

			cutoff := time.Now().Add(-olderThan)
			n, err := a.store.PurgeDeadLetters(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("purge dead letters: %w", err)
			}
			a.logger.Info("dead letters purged",
				slog.Int64("count", n),
				slog.Time("before", cutoff),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "purged %d dead letters\n", n)
			return err
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "delete records that failed longer ago than this, e.g. 720h")
	return cmd
}

// runReplay opens the engine, runs fn and prints the summary as JSON.
// A replay with failed records exits non-zero after printing.
func (a *app) runReplay(cmd *cobra.Command, fn func(context.Context) (*replay.Summary, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.openEngine(ctx); err != nil {
		return err
	}
	defer func() {
		if err := shutdownWithTimeout(a.close, a.cfg.ShutdownTimeout); err != nil {
			a.logger.Error("shutdown", slog.String("error", err.Error()))
		}
	}()

	summary, err := fn(ctx)
	if summary != nil {
		if perr := printSummary(cmd.OutOrStdout(), summary); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}
	if summary.FailedReplays > 0 {
		return fmt.Errorf("%d of %d dead letters failed to replay", summary.FailedReplays, summary.TotalEvents)
	}
	return nil
}

func printSummary(w io.Writer, s *replay.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func shutdownWithTimeout(fn func(context.Context) error, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return fn(ctx)
}
