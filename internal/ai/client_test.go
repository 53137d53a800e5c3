package ai

import (
	"testing"

	"github.com/amoralabs/amora/internal/types"
)

func TestParseExtractedMemories(t *testing.T) {
	content := `[{"type":"fact","content":"birthday in June","importance":80},
{"type":"preference","content":"plays guitar","importance":55}]`

	memories := parseExtractedMemories(content)

	if len(memories) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(memories))
	}
	if memories[0].Type != "fact" || memories[0].Importance != 80 {
		t.Errorf("unexpected first memory: %+v", memories[0])
	}
}

func TestParseExtractedMemoriesWithSurroundingProse(t *testing.T) {
	content := "Here are the extracted memories:\n[{\"type\":\"fact\",\"content\":\"x\",\"importance\":50}]\nLet me know if you need more."

	memories := parseExtractedMemories(content)

	if len(memories) != 1 || memories[0].Content != "x" {
		t.Fatalf("expected prose-wrapped array parsed, got %+v", memories)
	}
}

func TestParseExtractedMemoriesMalformed(t *testing.T) {
	for _, content := range []string{
		"",
		"no json here",
		"[{broken",
		"]reversed[",
	} {
		if memories := parseExtractedMemories(content); memories != nil {
			t.Errorf("content %q: expected nil, got %+v", content, memories)
		}
	}
}

func TestRecentTurnsFiltersAndTruncates(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleSystem, Content: "s"},
	}
	for i := 0; i < 60; i++ {
		history = append(history, types.Message{Role: types.RoleUser, Content: "u"})
		history = append(history, types.Message{Role: types.RoleAssistant, Content: "a"})
	}

	turns := recentTurns(history, types.MaxPromptHistoryTurns)

	if len(turns) != types.MaxPromptHistoryTurns {
		t.Fatalf("expected %d turns, got %d", types.MaxPromptHistoryTurns, len(turns))
	}
	for _, turn := range turns {
		if turn.Role == types.RoleSystem {
			t.Fatal("system row leaked into prompt history")
		}
	}
	// Oldest entries drop first.
	if turns[len(turns)-1].Role != types.RoleAssistant {
		t.Errorf("expected history to end with the latest turn, got %s", turns[len(turns)-1].Role)
	}
}

func TestRecentTurnsShortHistoryUnchanged(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hello"},
	}

	turns := recentTurns(history, types.MaxPromptHistoryTurns)

	if len(turns) != 2 || turns[0].Content != "hi" || turns[1].Content != "hello" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}
