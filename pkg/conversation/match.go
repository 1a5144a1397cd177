package conversation

import (
	"strings"

	"leadqualify-be/internal/entity"
)

// MatchOption fuzzy-matches a visitor reply against option labels:
// case-insensitive substring containment in either direction. The first
// matching option wins.
func MatchOption(reply string, options []entity.Option) *entity.Option {
	needle := strings.ToLower(strings.TrimSpace(reply))
	if needle == "" {
		return nil
	}
	for i := range options {
		label := strings.ToLower(strings.TrimSpace(options[i].Label))
		if label == "" {
			continue
		}
		if strings.Contains(label, needle) || strings.Contains(needle, label) {
			return &options[i]
		}
	}
	return nil
}

var highRiskMarkers = []string{"high_risk", "critical", "urgent"}

// HasHighRiskTag reports whether any tag carries an urgency marker.
func HasHighRiskTag(tags []string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, marker := range highRiskMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

var salesIntentKeywords = []string{
	"talk", "sales", "demo", "call", "book", "human", "speak", "contact", "person",
}

func containsSalesIntent(reply string) bool {
	lower := strings.ToLower(reply)
	for _, kw := range salesIntentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var affirmatives = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "please", "connect"}

func isAffirmative(reply string) bool {
	lower := strings.ToLower(reply)
	for _, a := range affirmatives {
		if strings.Contains(lower, a) {
			return true
		}
	}
	return false
}
