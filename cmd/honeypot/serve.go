package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sounak-star/ai-agent-honeypot/internal/api"
	"github.com/Sounak-star/ai-agent-honeypot/internal/config"
	"github.com/Sounak-star/ai-agent-honeypot/internal/hermes"
	"github.com/Sounak-star/ai-agent-honeypot/internal/intel"
	"github.com/Sounak-star/ai-agent-honeypot/internal/maintenance"
	"github.com/Sounak-star/ai-agent-honeypot/internal/metrics"
	"github.com/Sounak-star/ai-agent-honeypot/internal/persona"
	"github.com/Sounak-star/ai-agent-honeypot/internal/processor"
	"github.com/Sounak-star/ai-agent-honeypot/internal/reporter"
	"github.com/Sounak-star/ai-agent-honeypot/internal/session"
	hsignal "github.com/Sounak-star/ai-agent-honeypot/internal/signal"
	"github.com/Sounak-star/ai-agent-honeypot/internal/slack"
)

const stopTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the session sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stdout)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()
	logger.Info("honeypot starting", "port", cfg.Port, "version", api.ServiceVersion)

	status := cfg.Validate()
	for _, w := range status.Warnings {
		logger.Warn("configuration warning", "warning", w)
	}
	if !status.Valid {
		return fmt.Errorf("invalid configuration: %s", strings.Join(status.Issues, "; "))
	}

	policy, err := processor.ParsePolicy(cfg.DetectionPolicy)
	if err != nil {
		return err
	}

	m := metrics.New()

	// Session store
	store, backend, err := session.Open(ctx, session.OpenOptions{
		Backend:     cfg.StoreBackend,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()
	logger.Info("session store ready", "backend", backend)

	// Reply model
	model, err := persona.NewModel(ctx, persona.ModelOptions{
		Provider:        cfg.ReplyProvider,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		Sampling: persona.Sampling{
			Temperature: cfg.AgentTemperature,
			TopP:        persona.DefaultSampling.TopP,
			TopK:        persona.DefaultSampling.TopK,
			MaxTokens:   cfg.AgentMaxTokens,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("reply model: %w", err)
	}
	gen := persona.NewGenerator(model, cfg.ReplyTimeout, logger, m)
	logger.Info("reply model ready", "model", gen.ModelName())

	rep := reporter.New(reporter.Config{
		URL:         cfg.CallbackURL,
		MaxAttempts: cfg.CallbackMaxAttempts,
		Timeout:     cfg.CallbackTimeout,
	}, logger, m)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		rep.SetNotifier(slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger))
		logger.Info("slack alerts enabled", "channel", cfg.SlackChannel)
	}

	// NATS is optional; a nil client publishes nothing.
	var events *hermes.Client
	if cfg.NatsURL != "" {
		events, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer events.Close()
		logger.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		logger.Info("NATS_URL not set, events disabled")
	}

	scorer := hsignal.NewDefaultScorer(cfg.DetectionThreshold)
	extractor := intel.NewDefaultExtractor()

	proc := processor.New(processor.Deps{
		Store:     store,
		Scorer:    scorer,
		Extractor: extractor,
		Replier:   gen,
		Reporter:  rep,
		Events:    events,
	}, processor.Options{
		Threshold:              cfg.DetectionThreshold,
		MinMessagesForCallback: cfg.MinMessagesForCallback,
		Policy:                 policy,
		SessionTTL:             cfg.SessionTTL(),
	}, logger, m)

	srv := api.NewServer(api.Options{
		Port:           cfg.Port,
		APIKey:         cfg.APIKey,
		Engine:         proc,
		Scorer:         scorer,
		Extractor:      extractor,
		Store:          store,
		StoreName:      backend,
		ReplyModel:     gen.ModelName(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Metrics:        m,
		Logger:         logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if sweeper, ok := store.(session.Sweeper); ok {
		sched, err := maintenance.NewScheduler(sweeper, cfg.SweepSchedule, cfg.SweepAge(), logger, m)
		if err != nil {
			return err
		}
		sched.Start()
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			sched.Stop(stopCtx)
			return nil
		})
	} else {
		logger.Info("session expiry handled by store", "backend", backend)
	}

	logger.Info("honeypot ready", "port", cfg.Port, "policy", string(policy))

	err = g.Wait()

	logger.Info("waiting for report deliveries")
	rep.Wait()
	if ferr := events.Flush(); ferr != nil {
		logger.Warn("failed to flush events", "error", ferr)
	}
	logger.Info("honeypot stopped")
	return err
}
