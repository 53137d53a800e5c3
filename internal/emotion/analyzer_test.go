package emotion

import (
	"context"
	"errors"
	"testing"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return f.reply, f.err
}

func TestClassifyLabels(t *testing.T) {
	for _, tc := range []struct {
		reply string
		want  string
	}{
		{"Positive", LabelPositive},
		{"negative", LabelNegative},
		{"Neutral", LabelNeutral},
		{" Positive. ", LabelPositive},
		{"something unexpected", LabelNeutral},
	} {
		analyzer := NewAnalyzer(&fakeCompleter{reply: tc.reply})
		if got := analyzer.Classify(context.Background(), "some reply"); got != tc.want {
			t.Errorf("reply %q: expected %s, got %s", tc.reply, tc.want, got)
		}
	}
}

func TestClassifyFallsBackToNeutral(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{err: errors.New("model unavailable")})
	if got := analyzer.Classify(context.Background(), "some reply"); got != LabelNeutral {
		t.Errorf("expected neutral on failure, got %s", got)
	}

	if got := analyzer.Classify(context.Background(), "  "); got != LabelNeutral {
		t.Errorf("expected neutral for blank text, got %s", got)
	}

	var nilAnalyzer *Analyzer
	if got := nilAnalyzer.Classify(context.Background(), "text"); got != LabelNeutral {
		t.Errorf("expected neutral for nil analyzer, got %s", got)
	}
}
