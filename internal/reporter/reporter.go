package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sounak-star/ai-agent-honeypot/internal/intel"
	"github.com/Sounak-star/ai-agent-honeypot/internal/metrics"
)

const userAgent = "AI-Agentic-Honeypot/2.0"

var (
	// ErrNoDestination means no collector URL is configured. No request is made.
	ErrNoDestination = errors.New("no report destination configured")
	// ErrDeliveryFailed means every attempt failed.
	ErrDeliveryFailed = errors.New("report delivery failed")
)

// Report is the final intelligence bundle sent to the collector.
type Report struct {
	SessionID              string       `json:"sessionId"`
	ScamDetected           bool         `json:"scamDetected"`
	TotalMessagesExchanged int          `json:"totalMessagesExchanged"`
	ExtractedIntelligence  intel.Bundle `json:"extractedIntelligence"`
	AgentNotes             string       `json:"agentNotes"`
	FinalScamScore         int          `json:"finalScamScore"`
	Timestamp              time.Time    `json:"timestamp"`
}

type Config struct {
	URL         string
	MaxAttempts int
	Timeout     time.Duration
}

// Notifier hears about every dispatched report once delivery has finished.
type Notifier interface {
	ReportFinished(ctx context.Context, rep Report, deliveryErr error)
}

// Reporter posts reports to the collector with bounded retries.
type Reporter struct {
	url         string
	maxAttempts int
	timeout     time.Duration
	client      *http.Client
	notifier    Notifier
	logger      *slog.Logger
	metrics     *metrics.Metrics
	wg          sync.WaitGroup
}

func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Reporter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		url:         cfg.URL,
		maxAttempts: cfg.MaxAttempts,
		timeout:     cfg.Timeout,
		client:      &http.Client{},
		logger:      logger,
		metrics:     m,
	}
}

// SetTestTransport overrides the HTTP transport. Used only in tests.
func (r *Reporter) SetTestTransport(rt http.RoundTripper) {
	r.client.Transport = rt
}

// SetNotifier installs n. Call before the first Dispatch.
func (r *Reporter) SetNotifier(n Notifier) {
	r.notifier = n
}

// Deliver posts the report, retrying immediately on any non-200 status,
// timeout or connection error. All attempts share one X-Report-ID.
func (r *Reporter) Deliver(ctx context.Context, rep Report) error {
	if r.url == "" {
		r.logger.Warn("no callback url configured, skipping report", "session_id", rep.SessionID)
		r.metrics.ReportOutcome(metrics.ReportNoDestination)
		return ErrNoDestination
	}

	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	reportID := uuid.New().String()

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		status, err := r.post(ctx, reportID, body)
		if err == nil && status == http.StatusOK {
			r.logger.Info("report delivered", "session_id", rep.SessionID, "report_id", reportID, "attempt", attempt)
			r.metrics.ReportOutcome(metrics.ReportDelivered)
			return nil
		}
		if err == nil {
			err = fmt.Errorf("unexpected status %d", status)
		}
		lastErr = err
		r.logger.Warn("report attempt failed", "session_id", rep.SessionID, "attempt", attempt, "max_attempts", r.maxAttempts, "error", err)
	}

	r.logger.Error("report delivery failed", "session_id", rep.SessionID, "report_id", reportID, "error", lastErr)
	r.metrics.ReportOutcome(metrics.ReportFailed)
	return fmt.Errorf("%w after %d attempts: %v", ErrDeliveryFailed, r.maxAttempts, lastErr)
}

func (r *Reporter) post(ctx context.Context, reportID string, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Report-ID", reportID)

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Dispatch delivers the report on a background goroutine. The outcome is only
// logged and counted.
func (r *Reporter) Dispatch(rep Report) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx := context.Background()
		err := r.Deliver(ctx, rep)
		if r.notifier != nil {
			r.notifier.ReportFinished(ctx, rep, err)
		}
	}()
}

// Wait blocks until every dispatched delivery has finished.
func (r *Reporter) Wait() {
	r.wg.Wait()
}
