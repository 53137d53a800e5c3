// Package moderation implements the keyword-based content safety check.
//
// This is a deliberate placeholder filter: case-insensitive substring matching
// against fixed keyword lists. Paraphrased or synonymous harmful content will
// slip through; a real classifier is a separate integration.
package moderation

import (
	"fmt"
	"strings"

	"github.com/amoralabs/amora/internal/types"
)

// Violation categories with their fixed severities.
const (
	TypeHate       = "hate"
	TypeHarassment = "harassment"
	TypeIllegal    = "illegal"

	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

var hateKeywords = []string{"hate", "kill", "die", "suicide", "self-harm"}

var harassmentKeywords = []string{"harass", "bully", "threaten"}

var illegalKeywords = []string{"drug", "illegal", "underage"}

// Filter scans content against the fixed keyword categories.
type Filter struct{}

// NewFilter returns the keyword filter.
func NewFilter() *Filter {
	return &Filter{}
}

// Moderate returns the safety verdict for content. Confidence is a fixed
// constant: 0.9 when any violation matched, 1.0 when none.
func (f *Filter) Moderate(content string) types.ModerationResult {
	lower := strings.ToLower(content)
	var violations []types.ModerationViolation

	for _, keyword := range hateKeywords {
		if strings.Contains(lower, keyword) {
			violations = append(violations, types.ModerationViolation{
				Type:     TypeHate,
				Severity: SeverityHigh,
				Reason:   fmt.Sprintf("Contains hate speech keyword: %s", keyword),
			})
		}
	}

	for _, keyword := range harassmentKeywords {
		if strings.Contains(lower, keyword) {
			violations = append(violations, types.ModerationViolation{
				Type:     TypeHarassment,
				Severity: SeverityMedium,
				Reason:   fmt.Sprintf("Contains harassment keyword: %s", keyword),
			})
		}
	}

	for _, keyword := range illegalKeywords {
		if strings.Contains(lower, keyword) {
			violations = append(violations, types.ModerationViolation{
				Type:     TypeIllegal,
				Severity: SeverityCritical,
				Reason:   fmt.Sprintf("Contains illegal content keyword: %s", keyword),
			})
		}
	}

	confidence := 1.0
	if len(violations) > 0 {
		confidence = 0.9
	}

	return types.ModerationResult{
		IsSafe:     len(violations) == 0,
		Violations: violations,
		Confidence: confidence,
	}
}
