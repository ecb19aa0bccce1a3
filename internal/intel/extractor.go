package intel

import (
	"regexp"
	"strings"
)

var (
	bankAccountRe  = regexp.MustCompile(`\b\d{12,16}\b`)
	upiCandidateRe = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9]+`)
	urlRe          = regexp.MustCompile(`https?://\S+`)
	emailRe        = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Indian formats: +91 with optional separator, bare 91 prefix, and 10-digit mobiles.
	phoneRes = []*regexp.Regexp{
		regexp.MustCompile(`\+91[-\s]?\d{10}`),
		regexp.MustCompile(`\b91\d{10}\b`),
		regexp.MustCompile(`\b[6-9]\d{9}\b`),
	}
)

// DefaultUPIHandles are the payment-handle suffixes accepted as UPI ids.
var DefaultUPIHandles = []string{
	"@upi", "@paytm", "@ybl", "@oksbi", "@okaxis", "@okicici", "@okhdfcbank",
}

// DefaultSuspiciousKeywords are recorded verbatim into the bundle when present.
var DefaultSuspiciousKeywords = []string{
	"urgent", "urgently", "verify", "blocked", "suspended",
	"click", "otp", "password", "pin", "cvv", "account number",
	"card number", "immediately", "expire", "frozen", "locked",
}

// Extractor pulls identifiers out of free text. It is stateless.
type Extractor struct {
	upiHandles []string
	keywords   []string
}

// NewExtractor builds an extractor with the given handle allowlist and keyword list.
func NewExtractor(upiHandles, keywords []string) *Extractor {
	handles := make([]string, len(upiHandles))
	for i, h := range upiHandles {
		handles[i] = strings.ToLower(h)
	}
	kws := make([]string, len(keywords))
	for i, k := range keywords {
		kws[i] = strings.ToLower(k)
	}
	return &Extractor{upiHandles: handles, keywords: kws}
}

// NewDefaultExtractor uses DefaultUPIHandles and DefaultSuspiciousKeywords.
func NewDefaultExtractor() *Extractor {
	return NewExtractor(DefaultUPIHandles, DefaultSuspiciousKeywords)
}

// Extract returns everything recognisable in text as a deduplicated bundle.
func (e *Extractor) Extract(text string) Bundle {
	b := NewBundle()
	if text == "" {
		return b
	}

	for _, m := range bankAccountRe.FindAllString(text, -1) {
		b.BankAccounts.Add(m)
	}
	for _, m := range upiCandidateRe.FindAllString(text, -1) {
		if e.isUPIHandle(m) {
			b.UPIIDs.Add(m)
		}
	}
	for _, m := range urlRe.FindAllString(text, -1) {
		b.PhishingLinks.Add(m)
	}
	for _, re := range phoneRes {
		for _, m := range re.FindAllString(text, -1) {
			b.PhoneNumbers.Add(m)
		}
	}
	for _, m := range emailRe.FindAllString(text, -1) {
		b.EmailAddresses.Add(m)
	}

	lower := strings.ToLower(text)
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			b.SuspiciousKeywords.Add(kw)
		}
	}
	return b
}

func (e *Extractor) isUPIHandle(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, h := range e.upiHandles {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// Assessment is a coarse risk rating of extracted identifiers.
type Assessment struct {
	RiskScore int    `json:"riskScore"`
	RiskLevel string `json:"riskLevel"`
}

// Assess weighs a bundle: bank accounts 5, UPI ids 4, links 3, phone numbers 2 each.
func Assess(b Bundle) Assessment {
	score := 5*len(b.BankAccounts) +
		4*len(b.UPIIDs) +
		3*len(b.PhishingLinks) +
		2*len(b.PhoneNumbers)

	level := "low"
	switch {
	case score >= 10:
		level = "critical"
	case score >= 5:
		level = "high"
	case score > 0:
		level = "medium"
	}
	return Assessment{RiskScore: score, RiskLevel: level}
}
