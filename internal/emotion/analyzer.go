// Package emotion classifies reply sentiment for message metadata.
package emotion

import (
	"context"
	"log/slog"
	"strings"
)

// Labels attached to assistant messages.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Completer is the single-shot model call the analyzer needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const classifierPrompt = "You are a sentiment classifier. Return exactly one of these labels and nothing else: Positive, Negative, Neutral."

// Analyzer labels text with the utility model.
type Analyzer struct {
	model Completer
}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer(model Completer) *Analyzer {
	return &Analyzer{model: model}
}

// Classify returns the sentiment label for text. Any failure falls back to
// neutral; sentiment is decoration, never a hard dependency.
func (a *Analyzer) Classify(ctx context.Context, text string) string {
	if a == nil || a.model == nil || strings.TrimSpace(text) == "" {
		return LabelNeutral
	}

	raw, err := a.model.Complete(ctx, classifierPrompt, text)
	if err != nil {
		slog.Debug("sentiment classification failed", "error", err)
		return LabelNeutral
	}
	return normalizeLabel(raw)
}

func normalizeLabel(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.Trim(label, ".\"'")
	switch {
	case strings.HasPrefix(label, "positive"):
		return LabelPositive
	case strings.HasPrefix(label, "negative"):
		return LabelNegative
	default:
		return LabelNeutral
	}
}
