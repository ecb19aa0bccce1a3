package session

import (
	"time"

	"github.com/Sounak-star/ai-agent-honeypot/internal/intel"
)

// Message is one inbound or historical conversation turn. Timestamp is Unix
// seconds.
type Message struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Session is the accumulated state of one honeypot conversation.
//
// ScamDetected and CallbackSent only ever go from false to true. ScamScore never
// decreases and Intel never shrinks.
type Session struct {
	ID           string       `json:"sessionId"`
	Messages     []Message    `json:"messages"`
	ScamScore    int          `json:"scamScore"`
	ScamDetected bool         `json:"scamDetected"`
	Intel        intel.Bundle `json:"intel"`
	CallbackSent bool         `json:"callbackSent"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}

// New returns an empty session stamped with now.
func New(id string, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:          id,
		Messages:    []Message{},
		Intel:       intel.NewBundle(),
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// MessageCount is the number of recorded inbound messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// Touch refreshes LastUpdated.
func (s *Session) Touch(now time.Time) {
	s.LastUpdated = now.UTC()
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	c := *s
	if s.Messages != nil {
		c.Messages = make([]Message, len(s.Messages))
		copy(c.Messages, s.Messages)
	}
	c.Intel = s.Intel.Clone()
	return &c
}
