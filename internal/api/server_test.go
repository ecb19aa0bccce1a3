package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sounak-star/ai-agent-honeypot/internal/intel"
	"github.com/Sounak-star/ai-agent-honeypot/internal/metrics"
	"github.com/Sounak-star/ai-agent-honeypot/internal/persona"
	"github.com/Sounak-star/ai-agent-honeypot/internal/processor"
	"github.com/Sounak-star/ai-agent-honeypot/internal/reporter"
	"github.com/Sounak-star/ai-agent-honeypot/internal/session"
	"github.com/Sounak-star/ai-agent-honeypot/internal/signal"
)

const testKey = "test-key"

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(reporter.Report) {}

type failingEngine struct{}

func (failingEngine) HandleMessage(context.Context, processor.Request) (*processor.Result, error) {
	return nil, processor.ErrInternal
}

func (failingEngine) Session(context.Context, string) (*session.Session, error) {
	return nil, errors.New("redis: connection refused")
}

func newTestServer(t *testing.T, mutate func(*Options)) (*Server, *session.MemoryStore) {
	t.Helper()
	now := func() time.Time { return fixedNow }
	store := session.NewMemoryStore(now, nil)
	proc := processor.New(processor.Deps{
		Store:     store,
		Scorer:    signal.NewDefaultScorer(0),
		Extractor: intel.NewDefaultExtractor(),
		Replier:   persona.NewGenerator(persona.Unavailable{}, time.Second, nil, nil),
		Reporter:  nopDispatcher{},
	}, processor.Options{Now: now}, nil, nil)

	opts := Options{
		Port:       8000,
		APIKey:     testKey,
		Engine:     proc,
		Store:      store,
		StoreName:  session.BackendMemory,
		ReplyModel: "none",
		Now:        now,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewServer(opts), store
}

func do(srv *Server, method, path, key, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func chatBody(id, text string) string {
	b, _ := json.Marshal(map[string]any{
		"sessionId": id,
		"message":   map[string]any{"sender": "scammer", "text": text, "timestamp": 1767000000},
	})
	return string(b)
}

func TestHealthEndpoint(t *testing.T) {
	for _, path := range []string{"/", "/health"} {
		srv, _ := newTestServer(t, nil)
		w := do(srv, http.MethodGet, path, "", "")

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		body := decode(t, w)
		if body["status"] != "healthy" {
			t.Errorf("%s: expected status healthy, got %v", path, body["status"])
		}
		if body["service"] != ServiceName || body["version"] != ServiceVersion {
			t.Errorf("%s: unexpected service/version %v %v", path, body["service"], body["version"])
		}
		if body["timestamp"] != "2026-03-01T09:30:00Z" {
			t.Errorf("%s: unexpected timestamp %v", path, body["timestamp"])
		}
		if body["store"] != "memory" || body["storeStatus"] != "ok" {
			t.Errorf("%s: unexpected store fields %v %v", path, body["store"], body["storeStatus"])
		}
		if _, ok := body["sessions"].(map[string]any); !ok {
			t.Errorf("%s: expected memory session stats, got %v", path, body["sessions"])
		}
	}
}

func TestHealthReportsUnavailableStore(t *testing.T) {
	srv, store := newTestServer(t, nil)
	_ = store.Close()

	body := decode(t, do(srv, http.MethodGet, "/health", "", ""))
	if body["status"] != "healthy" {
		t.Errorf("expected liveness to stay healthy, got %v", body["status"])
	}
	if body["storeStatus"] != "unavailable" {
		t.Errorf("expected storeStatus unavailable, got %v", body["storeStatus"])
	}
}

// stalledPingStore never answers a ping until the caller gives up.
type stalledPingStore struct {
	*session.MemoryStore
}

func (stalledPingStore) Ping(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("ping called without a deadline")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHealthBoundsStorePing(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) {
		o.Store = stalledPingStore{session.NewMemoryStore(nil, nil)}
		o.StoreName = session.BackendPostgres
		o.PingTimeout = 50 * time.Millisecond
	})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(srv, http.MethodGet, "/health", "", "") }()

	select {
	case w := <-done:
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if body := decode(t, w); body["storeStatus"] != "unavailable" {
			t.Errorf("expected storeStatus unavailable, got %v", body["storeStatus"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("health check blocked on a stalled store ping")
	}
}

func TestChatRequiresAPIKey(t *testing.T) {
	srv, store := newTestServer(t, nil)

	for _, key := range []string{"", "wrong-key"} {
		w := do(srv, http.MethodPost, "/chat", key, chatBody("s1", "Your account is blocked"))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("key %q: expected 401, got %d", key, w.Code)
		}
		if body := decode(t, w); body["detail"] != "Invalid API Key" {
			t.Errorf("key %q: unexpected detail %v", key, body["detail"])
		}
	}

	ids, _ := store.ListIDs(context.Background())
	if len(ids) != 0 {
		t.Errorf("expected no sessions after rejected requests, got %v", ids)
	}
}

func TestChatRejectsEmptyText(t *testing.T) {
	srv, store := newTestServer(t, nil)

	for _, body := range []string{
		chatBody("s1", "   "),
		`{"sessionId":"s1"}`,
	} {
		w := do(srv, http.MethodPost, "/chat", testKey, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if got := decode(t, w)["detail"]; got != "Message text is required" {
			t.Errorf("unexpected detail %v", got)
		}
	}

	if _, err := store.Load(context.Background(), "s1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected no session to be created, got %v", err)
	}
}

func TestChatRejectsMissingSessionID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := do(srv, http.MethodPost, "/chat", testKey, chatBody("", "hello there"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := decode(t, w)["detail"]; got != "Session id is required" {
		t.Errorf("unexpected detail %v", got)
	}
}

func TestChatRejectsMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := do(srv, http.MethodPost, "/chat", testKey, `{"sessionId":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestChatSuccess(t *testing.T) {
	srv, store := newTestServer(t, nil)

	w := do(srv, http.MethodPost, "/chat", testKey, chatBody("s1", "Your account is blocked. Verify immediately!"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected status success, got %q", resp.Status)
	}
	if !resp.ScamDetected {
		t.Error("expected scam to be detected")
	}
	// account 1 + blocked 3 + locked 3 + verify 2 + immediately 2
	if resp.ScamScore != 11 {
		t.Errorf("expected score 11, got %d", resp.ScamScore)
	}
	if resp.MessageCount != 1 {
		t.Errorf("expected 1 message, got %d", resp.MessageCount)
	}
	if resp.Reply != persona.Fallback(0) {
		t.Errorf("expected fallback reply, got %q", resp.Reply)
	}

	sess, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("expected stored session: %v", err)
	}
	if !sess.Intel.SuspiciousKeywords.Has("blocked") {
		t.Errorf("expected keyword blocked in intel, got %v", sess.Intel.SuspiciousKeywords.Sorted())
	}
}

func TestChatAliasRoute(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	do(srv, http.MethodPost, "/chat", testKey, chatBody("s1", "hello"))
	w := do(srv, http.MethodPost, "/api/v1/honeypot/chat", testKey, chatBody("s1", "send your otp"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["messageCount"]; got != float64(2) {
		t.Errorf("expected messageCount 2, got %v", got)
	}
}

func TestChatInternalErrorIsOpaque(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) { o.Engine = failingEngine{} })

	w := do(srv, http.MethodPost, "/chat", testKey, chatBody("s1", "hello"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if got := decode(t, w)["detail"]; got != "Internal server error" {
		t.Errorf("unexpected detail %v", got)
	}
}

func TestGetSession(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := do(srv, http.MethodGet, "/session/s1", testKey, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if got := decode(t, w)["detail"]; got != "Session not found" {
		t.Errorf("unexpected detail %v", got)
	}

	do(srv, http.MethodPost, "/chat", testKey, chatBody("s1", "pay to fraud@ybl now"))

	w = do(srv, http.MethodGet, "/session/s1", testKey, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Status  string           `json:"status"`
		Session *session.Session `json:"session"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "success" || resp.Session == nil || resp.Session.ID != "s1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !resp.Session.Intel.UPIIDs.Has("fraud@ybl") {
		t.Errorf("expected upi id in session intel, got %v", resp.Session.Intel.UPIIDs.Sorted())
	}
}

func TestGetSessionRequiresAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if w := do(srv, http.MethodGet, "/session/s1", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestGetSessionStoreFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) { o.Engine = failingEngine{} })

	w := do(srv, http.MethodGet, "/session/s1", testKey, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "redis") {
		t.Errorf("internal error leaked to caller: %s", w.Body.String())
	}
}

func TestAnalyze(t *testing.T) {
	srv, store := newTestServer(t, nil)

	w := do(srv, http.MethodPost, "/analyze", testKey, `{"text":"URGENT: share OTP and pay to fraud@ybl"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ScamScore      int             `json:"scamScore"`
		IsScam         bool            `json:"isScam"`
		Threshold      int             `json:"threshold"`
		MatchedSignals []signal.Signal `json:"matchedSignals"`
		RiskLevel      string          `json:"riskLevel"`
		Intel          struct {
			UPIIDs []string `json:"upiIds"`
		} `json:"intel"`
		IntelRisk struct {
			RiskLevel string `json:"riskLevel"`
		} `json:"intelRisk"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// urgent 2 + share 2 + otp 3
	if resp.ScamScore != 7 || !resp.IsScam || resp.RiskLevel != "medium" {
		t.Errorf("unexpected analysis %+v", resp)
	}
	if resp.Threshold != signal.DefaultThreshold {
		t.Errorf("expected threshold %d, got %d", signal.DefaultThreshold, resp.Threshold)
	}
	if len(resp.Intel.UPIIDs) != 1 || resp.Intel.UPIIDs[0] != "fraud@ybl" {
		t.Errorf("unexpected upi ids %v", resp.Intel.UPIIDs)
	}
	if resp.IntelRisk.RiskLevel != "medium" {
		t.Errorf("expected intel risk medium, got %q", resp.IntelRisk.RiskLevel)
	}

	if ids, _ := store.ListIDs(context.Background()); len(ids) != 0 {
		t.Errorf("analyze must not create sessions, got %v", ids)
	}
}

func TestAnalyzeRequiresText(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := do(srv, http.MethodPost, "/analyze", testKey, `{"text":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) {
		o.RateLimitRPS = 1
		o.RateLimitBurst = 2
	})

	for i := 0; i < 2; i++ {
		if w := do(srv, http.MethodGet, "/session/s1", testKey, ""); w.Code != http.StatusNotFound {
			t.Fatalf("request %d: expected 404, got %d", i, w.Code)
		}
	}
	w := do(srv, http.MethodGet, "/session/s1", testKey, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	// Health stays outside the limiter.
	if w := do(srv, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("expected health 200 while limited, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://evaluator.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "x-api-key, content-type")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://evaluator.example" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("unexpected allow-credentials %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "X-Api-Key, Content-Type" {
		t.Errorf("unexpected allow-headers %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
		t.Errorf("unexpected allow-methods %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("unexpected max-age %q", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("preflight should not reach the handler, got body %q", w.Body.String())
	}
}

func TestCORSActualRequestEchoesOrigin(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evaluator.example")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://evaluator.example" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("unexpected allow-credentials %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	srv, _ := newTestServer(t, func(o *Options) { o.Metrics = m })

	do(srv, http.MethodGet, "/session/abc", testKey, "")

	w := do(srv, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := w.Body.String()
	if !strings.Contains(out, `honeypot_http_requests_total{method="GET",path="/session/{sessionID}",status="404"} 1`) {
		t.Errorf("expected route-labelled request counter, got:\n%s", out)
	}
	if strings.Contains(out, "/session/abc") {
		t.Error("session id leaked into metric labels")
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := do(srv, http.MethodGet, "/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
