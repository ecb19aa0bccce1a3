package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Sounak-star/ai-agent-honeypot/internal/intel"
	"github.com/Sounak-star/ai-agent-honeypot/internal/reporter"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

const postTimeout = 10 * time.Second

// Poster sends scam alerts to a Slack channel for the analysts.
type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: postTimeout},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostReport posts a summary of a finished report and returns the message ts.
func (p *Poster) PostReport(ctx context.Context, rep reporter.Report, deliveryErr error) (string, error) {
	text := formatReportMessage(rep, deliveryErr)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Notes: " + rep.AgentNotes,
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted scam alert to slack", "ts", slackResp.TS, "session_id", rep.SessionID)
	return slackResp.TS, nil
}

// ReportFinished lets the poster hang off the reporter. Failures are logged.
func (p *Poster) ReportFinished(ctx context.Context, rep reporter.Report, deliveryErr error) {
	ctx, cancel := context.WithTimeout(ctx, postTimeout)
	defer cancel()
	if _, err := p.PostReport(ctx, rep, deliveryErr); err != nil {
		p.logger.Warn("failed to post scam alert", "session_id", rep.SessionID, "error", err)
	}
}

func formatReportMessage(rep reporter.Report, deliveryErr error) string {
	var sb strings.Builder

	risk := intel.Assess(rep.ExtractedIntelligence)
	fmt.Fprintf(&sb, "*Scam confirmed:* `%s`\n", rep.SessionID)
	fmt.Fprintf(&sb, "*Score:* %d | *Messages:* %d | *Intel risk:* %s (%d)\n",
		rep.FinalScamScore, rep.TotalMessagesExchanged, risk.RiskLevel, risk.RiskScore)

	switch {
	case deliveryErr == nil:
		sb.WriteString("*Report:* delivered\n")
	case errors.Is(deliveryErr, reporter.ErrNoDestination):
		sb.WriteString("*Report:* not sent, no collector configured\n")
	default:
		sb.WriteString("*Report:* delivery failed\n")
	}

	b := rep.ExtractedIntelligence
	sections := []struct {
		label string
		items []string
	}{
		{"Bank accounts", b.BankAccounts.Sorted()},
		{"UPI ids", b.UPIIDs.Sorted()},
		{"Phishing links", b.PhishingLinks.Sorted()},
		{"Phone numbers", b.PhoneNumbers.Sorted()},
		{"Emails", b.EmailAddresses.Sorted()},
	}
	collected := false
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		collected = true
		fmt.Fprintf(&sb, "\n*%s (%d)*\n", s.label, len(s.items))
		for _, item := range s.items {
			fmt.Fprintf(&sb, "• `%s`\n", item)
		}
	}
	if !collected {
		sb.WriteString("\n_No identifiers collected._")
	}

	return sb.String()
}
