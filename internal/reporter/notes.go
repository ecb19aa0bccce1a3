package reporter

import (
	"fmt"
	"strings"

	"github.com/Sounak-star/ai-agent-honeypot/internal/intel"
)

// BaseNote opens every agent note.
const BaseNote = "Multi-turn urgency-based financial scam detected"

// AgentNotes summarises the bundle for the collector.
func AgentNotes(b intel.Bundle) string {
	var sb strings.Builder
	sb.WriteString(BaseNote)

	a := intel.Assess(b)
	fmt.Fprintf(&sb, "; intel risk %s (score %d)", a.RiskLevel, a.RiskScore)

	var counts []string
	for _, c := range []struct {
		label string
		n     int
	}{
		{"bank accounts", len(b.BankAccounts)},
		{"UPI ids", len(b.UPIIDs)},
		{"links", len(b.PhishingLinks)},
		{"phone numbers", len(b.PhoneNumbers)},
		{"emails", len(b.EmailAddresses)},
	} {
		if c.n > 0 {
			counts = append(counts, fmt.Sprintf("%d %s", c.n, c.label))
		}
	}
	if len(counts) > 0 {
		fmt.Fprintf(&sb, "; collected %s", strings.Join(counts, ", "))
	}

	if kws := b.SuspiciousKeywords.Sorted(); len(kws) > 0 {
		fmt.Fprintf(&sb, "; keywords: %s", strings.Join(kws, ", "))
	}
	return sb.String()
}
