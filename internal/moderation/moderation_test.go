package moderation

import "testing"

func TestModerateCleanContent(t *testing.T) {
	filter := NewFilter()

	result := filter.Moderate("What a lovely sunny morning, tell me about your day")

	if !result.IsSafe {
		t.Fatalf("expected safe verdict, got violations: %+v", result.Violations)
	}
	if result.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", result.Confidence)
	}
	if len(result.Violations) != 0 {
		t.Errorf("expected no violations, got %d", len(result.Violations))
	}
}

func TestModerateHateKeyword(t *testing.T) {
	filter := NewFilter()

	result := filter.Moderate("I absolutely HATE this")

	if result.IsSafe {
		t.Fatal("expected unsafe verdict")
	}
	if result.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", result.Confidence)
	}
	if len(result.Violations) != 1 {
		t.Fatalf("expected one violation, got %d", len(result.Violations))
	}
	v := result.Violations[0]
	if v.Type != TypeHate || v.Severity != SeverityHigh {
		t.Errorf("unexpected violation: %+v", v)
	}
	if v.Reason != "Contains hate speech keyword: hate" {
		t.Errorf("unexpected reason: %q", v.Reason)
	}
}

func TestModerateMultipleCategories(t *testing.T) {
	filter := NewFilter()

	result := filter.Moderate("they bully people into illegal things")

	if result.IsSafe {
		t.Fatal("expected unsafe verdict")
	}
	var sawHarassment, sawIllegal bool
	for _, v := range result.Violations {
		switch v.Type {
		case TypeHarassment:
			sawHarassment = v.Severity == SeverityMedium
		case TypeIllegal:
			sawIllegal = v.Severity == SeverityCritical
		}
	}
	if !sawHarassment || !sawIllegal {
		t.Errorf("expected harassment and illegal violations, got %+v", result.Violations)
	}
}

func TestModerateMatchesSubstrings(t *testing.T) {
	filter := NewFilter()

	// The scan is substring-based: "kill" inside "skill" trips the filter.
	result := filter.Moderate("chatting is my best skill")

	if result.IsSafe {
		t.Fatal("expected substring match to trip the filter")
	}
}

func TestModerateEmptyContent(t *testing.T) {
	filter := NewFilter()

	if result := filter.Moderate(""); !result.IsSafe {
		t.Fatalf("expected empty content to be safe, got %+v", result.Violations)
	}
}
