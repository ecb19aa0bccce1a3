package signal

import "strings"

// Signal is one weighted keyword. Matching is case-insensitive substring containment.
type Signal struct {
	Keyword string `json:"keyword"`
	Weight  int    `json:"weight"`
}

// DefaultSignals is the stock weighted-keyword table. Overlapping entries such as
// "click" and "click here" are both counted when both match.
var DefaultSignals = []Signal{
	// urgency
	{"urgent", 2},
	{"urgently", 2},
	{"immediately", 2},
	{"right now", 2},
	{"asap", 2},
	{"hurry", 2},
	{"quick", 1},
	{"fast", 1},

	// account threats
	{"blocked", 3},
	{"suspended", 3},
	{"locked", 3},
	{"frozen", 3},
	{"account suspended", 4},
	{"account blocked", 4},
	{"will be blocked", 3},
	{"will be suspended", 3},

	// verification requests
	{"verify", 2},
	{"confirm", 2},
	{"update", 2},
	{"validate", 2},
	{"authenticate", 2},
	{"reactivate", 2},

	// financial terms
	{"bank", 1},
	{"upi", 3},
	{"account", 1},
	{"payment", 1},
	{"transaction", 1},
	{"refund", 2},
	{"pending", 1},
	{"debit", 2},
	{"credit", 1},

	// action requests
	{"click", 2},
	{"click here", 3},
	{"tap", 2},
	{"download", 2},
	{"install", 2},
	{"share", 2},
	{"provide", 2},
	{"send", 2},

	// credential requests
	{"otp", 3},
	{"password", 3},
	{"pin", 3},
	{"cvv", 4},
	{"card number", 4},
	{"account number", 3},
	{"details", 1},

	// authority claims
	{"bank representative", 2},
	{"customer care", 2},
	{"support team", 2},
	{"official", 1},

	// threats
	{"lose", 2},
	{"lost", 2},
	{"expire", 2},
	{"expired", 2},
	{"limited time", 2},
	{"deadline", 2},
}

// DefaultThreshold is the per-message score at which a message counts as a scam.
const DefaultThreshold = 4

// Scorer scores text against a weighted keyword table. It is stateless and safe
// for concurrent use.
type Scorer struct {
	signals   []Signal
	threshold int
}

// NewScorer builds a scorer over signals. Keywords are lowercased once here.
func NewScorer(signals []Signal, threshold int) *Scorer {
	normalized := make([]Signal, 0, len(signals))
	for _, s := range signals {
		if s.Keyword == "" {
			continue
		}
		normalized = append(normalized, Signal{Keyword: strings.ToLower(s.Keyword), Weight: s.Weight})
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{signals: normalized, threshold: threshold}
}

// NewDefaultScorer returns a scorer over DefaultSignals.
func NewDefaultScorer(threshold int) *Scorer {
	return NewScorer(DefaultSignals, threshold)
}

// Threshold returns the configured detection threshold.
func (s *Scorer) Threshold() int {
	return s.threshold
}

// Score returns the sum of the weights of every matching signal.
func (s *Scorer) Score(text string) int {
	score := 0
	for _, m := range s.Matches(text) {
		score += m.Weight
	}
	return score
}

// Matches returns the signals found in text, in table order.
func (s *Scorer) Matches(text string) []Signal {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var matched []Signal
	for _, sig := range s.signals {
		if strings.Contains(lower, sig.Keyword) {
			matched = append(matched, sig)
		}
	}
	return matched
}

// IsScam reports whether text alone reaches the threshold.
func (s *Scorer) IsScam(text string) bool {
	return s.Score(text) >= s.threshold
}

// Analysis is a detailed breakdown of a single message.
type Analysis struct {
	ScamScore      int      `json:"scamScore"`
	IsScam         bool     `json:"isScam"`
	Threshold      int      `json:"threshold"`
	MatchedSignals []Signal `json:"matchedSignals"`
	RiskLevel      string   `json:"riskLevel"`
}

// Analyze scores text and classifies its risk.
func (s *Scorer) Analyze(text string) Analysis {
	matched := s.Matches(text)
	score := 0
	for _, m := range matched {
		score += m.Weight
	}
	if matched == nil {
		matched = []Signal{}
	}
	return Analysis{
		ScamScore:      score,
		IsScam:         score >= s.threshold,
		Threshold:      s.threshold,
		MatchedSignals: matched,
		RiskLevel:      RiskLevel(score),
	}
}

// RiskLevel maps a message score to low, medium or high.
func RiskLevel(score int) string {
	switch {
	case score >= 8:
		return "high"
	case score >= 4:
		return "medium"
	default:
		return "low"
	}
}
