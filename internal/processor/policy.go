package processor

import "fmt"

// DetectionPolicy decides when a session's detection latch flips.
type DetectionPolicy string

const (
	// PolicyPerMessage flips on a single message scoring at or above the threshold.
	PolicyPerMessage DetectionPolicy = "per_message"
	// PolicyCumulative flips once the running session score reaches the threshold.
	PolicyCumulative DetectionPolicy = "cumulative"
)

// ParsePolicy maps a config value to a policy. Empty means per-message.
func ParsePolicy(s string) (DetectionPolicy, error) {
	switch DetectionPolicy(s) {
	case "", PolicyPerMessage:
		return PolicyPerMessage, nil
	case PolicyCumulative:
		return PolicyCumulative, nil
	default:
		return "", fmt.Errorf("unknown detection policy %q", s)
	}
}

// Detects reports whether the latch should flip for this message.
func (p DetectionPolicy) Detects(messageScore, cumulativeScore, threshold int) bool {
	if p == PolicyCumulative {
		return cumulativeScore >= threshold
	}
	return messageScore >= threshold
}
