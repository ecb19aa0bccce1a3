package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sounak-star/ai-agent-honeypot/internal/config"
	"github.com/Sounak-star/ai-agent-honeypot/internal/session"
)

var sweepMaxAge time.Duration

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and maintain stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store session.Store, _ config.Config) error {
			ids, err := store.ListIDs(ctx)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tMESSAGES\tSCORE\tSCAM\tREPORTED\tINTEL\tLAST UPDATED")
			for _, id := range ids {
				s, err := store.Load(ctx, id)
				if err != nil {
					slog.Warn("skipping unreadable session", "session_id", id, "error", err)
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%t\t%t\t%d\t%s\n",
					s.ID, s.MessageCount(), s.ScamScore, s.ScamDetected, s.CallbackSent,
					s.Intel.Len(), s.LastUpdated.Format(time.RFC3339))
			}
			return tw.Flush()
		})
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print one session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store session.Store, _ config.Config) error {
			s, err := store.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load session %s: %w", args[0], err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store session.Store, _ config.Config) error {
			if err := store.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("delete session %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		})
	},
}

var sessionsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove idle sessions now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store session.Store, cfg config.Config) error {
			sweeper, ok := store.(session.Sweeper)
			if !ok {
				return errors.New("store does not support sweeping; it expires sessions itself")
			}
			maxAge := sweepMaxAge
			if maxAge <= 0 {
				maxAge = cfg.SweepAge()
			}
			removed, err := sweeper.Sweep(ctx, maxAge)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d sessions idle for more than %s\n", removed, maxAge)
			return nil
		})
	},
}

// withStore opens the configured backend for a one-shot command. The memory
// backend only sees this process, so it is reported rather than silently used.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store session.Store, cfg config.Config) error) error {
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, backend, err := session.Open(ctx, session.OpenOptions{
		Backend:     cfg.StoreBackend,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	if backend == session.BackendMemory {
		slog.Warn("memory backend selected; it holds no sessions outside a running server")
	}
	return fn(ctx, store, cfg)
}

func init() {
	sessionsSweepCmd.Flags().DurationVar(&sweepMaxAge, "max-age", 0, "idle age to remove (default SWEEP_MAX_AGE or SESSION_TTL)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsSweepCmd)
	rootCmd.AddCommand(sessionsCmd)
}
