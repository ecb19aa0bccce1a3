package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sounak-star/ai-agent-honeypot/internal/hermes"
	"github.com/Sounak-star/ai-agent-honeypot/internal/intel"
	"github.com/Sounak-star/ai-agent-honeypot/internal/metrics"
	"github.com/Sounak-star/ai-agent-honeypot/internal/reporter"
	"github.com/Sounak-star/ai-agent-honeypot/internal/session"
)

// ErrInternal is the only error callers see for unexpected faults.
var ErrInternal = errors.New("internal error")

// ValidationError rejects a request before any state is touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

const defaultStoreTimeout = 5 * time.Second

type Scorer interface {
	Score(text string) int
}

type Extractor interface {
	Extract(text string) intel.Bundle
}

type Replier interface {
	Generate(ctx context.Context, latest string, history []session.Message) string
}

// Dispatcher hands a report off for asynchronous delivery.
type Dispatcher interface {
	Dispatch(r reporter.Report)
}

// Deps are the collaborators of a Processor. Events may be nil.
type Deps struct {
	Store     session.Store
	Scorer    Scorer
	Extractor Extractor
	Replier   Replier
	Reporter  Dispatcher
	Events    hermes.Publisher
}

type Options struct {
	Threshold              int
	MinMessagesForCallback int
	Policy                 DetectionPolicy
	SessionTTL             time.Duration

	// StoreTimeout bounds every store call. Loads and saves run under the
	// per-session lock.
	StoreTimeout time.Duration
	Now          func() time.Time
}

// Request is one inbound message. History is the caller's view of the
// conversation and is only used to prompt the persona.
type Request struct {
	SessionID string
	Message   session.Message
	History   []session.Message
	Metadata  map[string]any
}

type Result struct {
	Reply        string
	ScamDetected bool
	ScamScore    int
	MessageCount int
}

// Processor folds inbound messages into per-session state and fires the final
// report at most once per session.
type Processor struct {
	deps    Deps
	opts    Options
	locks   *keyedMutex
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(deps Deps, opts Options, logger *slog.Logger, m *metrics.Metrics) *Processor {
	if opts.Threshold <= 0 {
		opts.Threshold = 4
	}
	if opts.MinMessagesForCallback <= 0 {
		opts.MinMessagesForCallback = 8
	}
	if opts.Policy == "" {
		opts.Policy = PolicyPerMessage
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		deps:    deps,
		opts:    opts,
		locks:   newKeyedMutex(),
		logger:  logger,
		metrics: m,
	}
}

// HandleMessage runs the accumulation pipeline for one inbound message.
//
// Only *ValidationError and ErrInternal are returned. Store and reporter
// failures are logged and absorbed.
func (p *Processor) HandleMessage(ctx context.Context, req Request) (res *Result, err error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, &ValidationError{Reason: "session id is required"}
	}
	if strings.TrimSpace(req.Message.Text) == "" {
		return nil, &ValidationError{Reason: "message text is required"}
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while processing message",
				"session_id", req.SessionID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			res, err = nil, ErrInternal
		}
	}()

	snap := p.accumulate(ctx, req)

	reply := p.deps.Replier.Generate(ctx, req.Message.Text, req.History)

	return &Result{
		Reply:        reply,
		ScamDetected: snap.ScamDetected,
		ScamScore:    snap.ScamScore,
		MessageCount: snap.MessageCount(),
	}, nil
}

// accumulate is the locked load-mutate-save section.
func (p *Processor) accumulate(ctx context.Context, req Request) *session.Session {
	unlock := p.locks.Lock(req.SessionID)
	defer unlock()

	now := p.opts.Now().UTC()
	sess := p.load(ctx, req.SessionID, now)

	msg := req.Message
	if msg.Timestamp == 0 {
		msg.Timestamp = now.Unix()
	}
	sess.Messages = append(sess.Messages, msg)

	msgScore := p.deps.Scorer.Score(msg.Text)
	sess.ScamScore += msgScore
	added := sess.Intel.Merge(p.deps.Extractor.Extract(msg.Text))
	sess.Touch(now)
	p.metrics.MessageProcessed()

	p.logger.Debug("message scored",
		"session_id", sess.ID,
		"message_score", msgScore,
		"score", sess.ScamScore,
		"intel_added", added,
	)

	if !sess.ScamDetected && p.opts.Policy.Detects(msgScore, sess.ScamScore, p.opts.Threshold) {
		sess.ScamDetected = true
		p.metrics.ScamDetected()
		p.logger.Info("scam detected",
			"session_id", sess.ID,
			"message_score", msgScore,
			"score", sess.ScamScore,
			"policy", string(p.opts.Policy),
		)
		p.publish(hermes.SubjectScamDetected, hermes.ScamDetectedEvent{
			EventID:      uuid.New().String(),
			SessionID:    sess.ID,
			MessageScore: msgScore,
			ScamScore:    sess.ScamScore,
			MessageCount: sess.MessageCount(),
			Policy:       string(p.opts.Policy),
			DetectedAt:   now,
		})
	}

	if sess.ScamDetected && !sess.CallbackSent && sess.MessageCount() >= p.opts.MinMessagesForCallback {
		p.fireReport(sess, now)
	}

	p.save(ctx, sess)
	return sess
}

func (p *Processor) load(ctx context.Context, id string, now time.Time) *session.Session {
	ctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()

	sess, err := p.deps.Store.Load(ctx, id)
	switch {
	case err == nil && sess != nil:
		return sess
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		p.logger.Info("new session", "session_id", id)
	default:
		p.metrics.StoreError("load")
		p.logger.Error("failed to load session, starting fresh", "session_id", id, "error", err)
	}
	return session.New(id, now)
}

// fireReport latches CallbackSent before handing the report off, so a failed
// delivery is never retried by a later message.
func (p *Processor) fireReport(sess *session.Session, now time.Time) {
	sess.CallbackSent = true

	bundle := sess.Intel.Clone()
	rep := reporter.Report{
		SessionID:              sess.ID,
		ScamDetected:           true,
		TotalMessagesExchanged: sess.MessageCount(),
		ExtractedIntelligence:  bundle,
		AgentNotes:             reporter.AgentNotes(bundle),
		FinalScamScore:         sess.ScamScore,
		Timestamp:              now,
	}
	p.deps.Reporter.Dispatch(rep)

	p.logger.Info("final report dispatched",
		"session_id", sess.ID,
		"messages", rep.TotalMessagesExchanged,
		"score", rep.FinalScamScore,
	)
	p.publish(hermes.SubjectReportDispatched, hermes.ReportDispatchedEvent{
		EventID:        uuid.New().String(),
		SessionID:      sess.ID,
		TotalMessages:  rep.TotalMessagesExchanged,
		FinalScamScore: rep.FinalScamScore,
		IntelCount:     bundle.Len(),
		RiskLevel:      intel.Assess(bundle).RiskLevel,
		DispatchedAt:   now,
	})
}

// save persists even if the caller has gone away: the latches must survive.
func (p *Processor) save(ctx context.Context, sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.StoreTimeout)
	defer cancel()

	if err := p.deps.Store.Save(ctx, sess.ID, sess, p.opts.SessionTTL); err != nil {
		p.metrics.StoreError("save")
		p.logger.Error("failed to save session", "session_id", sess.ID, "error", err)
	}
}

func (p *Processor) publish(subject string, data any) {
	if p.deps.Events == nil {
		return
	}
	if err := p.deps.Events.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// Session returns the stored state for id, or session.ErrNotFound.
func (p *Processor) Session(ctx context.Context, id string) (*session.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()

	sess, err := p.deps.Store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, session.ErrNotFound
		}
		p.metrics.StoreError("load")
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return sess, nil
}
