package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Sounak-star/ai-agent-honeypot/internal/intel"
	"github.com/Sounak-star/ai-agent-honeypot/internal/processor"
	"github.com/Sounak-star/ai-agent-honeypot/internal/session"
	"github.com/Sounak-star/ai-agent-honeypot/internal/signal"
)

type chatRequest struct {
	SessionID           string            `json:"sessionId"`
	Message             *session.Message  `json:"message"`
	ConversationHistory []session.Message `json:"conversationHistory"`
	Metadata            map[string]any    `json:"metadata"`
}

type chatResponse struct {
	Status       string `json:"status"`
	Reply        string `json:"reply"`
	ScamDetected bool   `json:"scamDetected"`
	ScamScore    int    `json:"scamScore"`
	MessageCount int    `json:"messageCount"`
}

type sessionResponse struct {
	Status  string           `json:"status"`
	Session *session.Session `json:"session"`
}

type healthResponse struct {
	Status      string         `json:"status"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
	Timestamp   string         `json:"timestamp"`
	Store       string         `json:"store,omitempty"`
	StoreStatus string         `json:"storeStatus,omitempty"`
	ReplyModel  string         `json:"replyModel,omitempty"`
	Sessions    *session.Stats `json:"sessions,omitempty"`
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	signal.Analysis
	Intel     intel.Bundle     `json:"intel"`
	IntelRisk intel.Assessment `json:"intelRisk"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "healthy",
		Service:    ServiceName,
		Version:    ServiceVersion,
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
		Store:      s.storeName,
		ReplyModel: s.replyModel,
	}

	if s.store != nil {
		resp.StoreStatus = "ok"
		ctx, cancel := context.WithTimeout(r.Context(), s.pingTimeout)
		err := s.store.Ping(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("store ping failed", "store", s.storeName, "error", err)
			resp.StoreStatus = "unavailable"
		}
		if ms, ok := s.store.(*session.MemoryStore); ok {
			stats := ms.Stats()
			resp.Sessions = &stats
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == nil || strings.TrimSpace(req.Message.Text) == "" {
		writeDetail(w, http.StatusBadRequest, "Message text is required")
		return
	}

	res, err := s.engine.HandleMessage(r.Context(), processor.Request{
		SessionID: req.SessionID,
		Message:   *req.Message,
		History:   req.ConversationHistory,
		Metadata:  req.Metadata,
	})
	if err != nil {
		var verr *processor.ValidationError
		if errors.As(err, &verr) {
			writeDetail(w, http.StatusBadRequest, capitalize(verr.Reason))
			return
		}
		s.logger.Error("chat failed", "session_id", req.SessionID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Status:       "success",
		Reply:        res.Reply,
		ScamDetected: res.ScamDetected,
		ScamScore:    res.ScamScore,
		MessageCount: res.MessageCount,
	})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	sess, err := s.engine.Session(r.Context(), id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	case err != nil:
		s.logger.Error("session lookup failed", "session_id", id, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Status: "success", Session: sess})
}

// analyze scores and extracts from a single text without touching any session.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeDetail(w, http.StatusBadRequest, "Text is required")
		return
	}

	bundle := s.extract.Extract(req.Text)
	writeJSON(w, http.StatusOK, analyzeResponse{
		Analysis:  s.scorer.Analyze(req.Text),
		Intel:     bundle,
		IntelRisk: intel.Assess(bundle),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
