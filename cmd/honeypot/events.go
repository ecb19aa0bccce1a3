package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sounak-star/ai-agent-honeypot/internal/hermes"
)

var eventsSubject string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with the honeypot event stream",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print scam and report events from NATS as they arrive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stderr)
		if err != nil {
			return err
		}
		if cfg.NatsURL == "" {
			return errors.New("NATS_URL is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			return err
		}
		defer client.Close()

		out := cmd.OutOrStdout()
		lines := make(chan string, 64)
		if err := client.Subscribe(eventsSubject, func(subject string, data []byte) {
			select {
			case lines <- fmt.Sprintf("%s %s", subject, data):
			default:
				slog.Warn("dropping event, output is behind", "subject", subject)
			}
		}); err != nil {
			return err
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case line := <-lines:
				fmt.Fprintln(out, line)
			}
		}
	},
}

func init() {
	eventsWatchCmd.Flags().StringVar(&eventsSubject, "subject", hermes.SubjectAll, "NATS subject to watch")
	eventsCmd.AddCommand(eventsWatchCmd)
	rootCmd.AddCommand(eventsCmd)
}
