package hermes

import "time"

// Subjects published by the honeypot.
const (
	SubjectScamDetected     = "honeypot.scam.detected"
	SubjectReportDispatched = "honeypot.report.dispatched"

	// SubjectAll matches every honeypot subject.
	SubjectAll = "honeypot.>"
)

// ScamDetectedEvent is emitted once per session when the detection latch flips.
type ScamDetectedEvent struct {
	EventID      string    `json:"event_id"`
	SessionID    string    `json:"session_id"`
	MessageScore int       `json:"message_score"`
	ScamScore    int       `json:"scam_score"`
	MessageCount int       `json:"message_count"`
	Policy       string    `json:"policy"`
	DetectedAt   time.Time `json:"detected_at"`
}

// ReportDispatchedEvent is emitted once per session when the final report is
// handed to the reporter. It says nothing about delivery success.
type ReportDispatchedEvent struct {
	EventID        string    `json:"event_id"`
	SessionID      string    `json:"session_id"`
	TotalMessages  int       `json:"total_messages"`
	FinalScamScore int       `json:"final_scam_score"`
	IntelCount     int       `json:"intel_count"`
	RiskLevel      string    `json:"risk_level"`
	DispatchedAt   time.Time `json:"dispatched_at"`
}
