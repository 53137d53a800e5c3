package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

type fakeModel struct {
	embedErr   error
	extracted  []types.ExtractedMemory
	extractErr error
	summary    string
	summarized int
}

func (m *fakeModel) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return []float32{0.1, 0.2}, nil
}

func (m *fakeModel) ExtractMemories(ctx context.Context, conversationText string) ([]types.ExtractedMemory, error) {
	return m.extracted, m.extractErr
}

func (m *fakeModel) SummarizeMemories(ctx context.Context, memories []types.Memory) (string, error) {
	m.summarized++
	return m.summary, nil
}

type fakeMemoryStore struct {
	created []types.Memory
	ranked  []types.Memory
	byID    map[string]*types.Memory
	deleted []string
}

func (s *fakeMemoryStore) Create(ctx context.Context, memory types.Memory) (*types.Memory, error) {
	memory.ID = fmt.Sprintf("mem-%d", len(s.created)+1)
	s.created = append(s.created, memory)
	return &memory, nil
}

func (s *fakeMemoryStore) GetRanked(ctx context.Context, userID, characterID string, limit int) ([]types.Memory, error) {
	if len(s.ranked) > limit {
		return s.ranked[:limit], nil
	}
	return s.ranked, nil
}

func (s *fakeMemoryStore) GetByID(ctx context.Context, id string) (*types.Memory, error) {
	memory, ok := s.byID[id]
	if !ok {
		return nil, apperr.ErrMemoryNotFound
	}
	return memory, nil
}

func (s *fakeMemoryStore) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeSummaryStore struct {
	stored *types.MemorySummary
}

func (s *fakeSummaryStore) GetByScope(ctx context.Context, userID, characterID string) (*types.MemorySummary, error) {
	return s.stored, nil
}

func (s *fakeSummaryStore) Upsert(ctx context.Context, summary types.MemorySummary) (*types.MemorySummary, error) {
	s.stored = &summary
	return &summary, nil
}

func turns(n int) []types.Message {
	messages := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		messages = append(messages, types.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	return messages
}

func TestCreateMemoryAttachesEmbedding(t *testing.T) {
	store := &fakeMemoryStore{}
	service := NewService(store, &fakeSummaryStore{}, &fakeModel{})

	created, err := service.CreateMemory(context.Background(), types.Memory{
		UserID: "u1", Content: "likes jazz", Type: types.MemoryTypePreference,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(created.Embedding) != 2 {
		t.Errorf("expected embedding attached, got %v", created.Embedding)
	}
	if created.Importance != types.DefaultMemoryImportance {
		t.Errorf("expected default importance %d, got %d", types.DefaultMemoryImportance, created.Importance)
	}
}

func TestCreateMemorySurvivesEmbeddingFailure(t *testing.T) {
	store := &fakeMemoryStore{}
	service := NewService(store, &fakeSummaryStore{}, &fakeModel{embedErr: errors.New("upstream down")})

	created, err := service.CreateMemory(context.Background(), types.Memory{
		UserID: "u1", Content: "likes jazz", Importance: 60,
	})
	if err != nil {
		t.Fatalf("expected memory stored without vector, got %v", err)
	}
	if created.Embedding != nil {
		t.Errorf("expected nil embedding, got %v", created.Embedding)
	}
}

func TestProcessConversationStoresExtractedMemories(t *testing.T) {
	store := &fakeMemoryStore{}
	model := &fakeModel{extracted: []types.ExtractedMemory{
		{Type: types.MemoryTypeFact, Content: "birthday in June", Importance: 80},
		{Type: types.MemoryTypePreference, Content: "plays guitar", Importance: 55},
	}}
	service := NewService(store, &fakeSummaryStore{}, model)

	service.ProcessConversation(context.Background(), "u1", "c1", "chat1", turns(5))

	if len(store.created) != 2 {
		t.Fatalf("expected 2 stored memories, got %d", len(store.created))
	}
	if store.created[0].UserID != "u1" || store.created[0].CharacterID != "c1" || store.created[0].ChatID != "chat1" {
		t.Errorf("scope not propagated: %+v", store.created[0])
	}
}

func TestProcessConversationExtractionFailureIsSilent(t *testing.T) {
	store := &fakeMemoryStore{}
	model := &fakeModel{extractErr: errors.New("model unavailable")}
	service := NewService(store, &fakeSummaryStore{}, model)

	service.ProcessConversation(context.Background(), "u1", "c1", "chat1", turns(4))

	if len(store.created) != 0 {
		t.Errorf("expected no memories on extraction failure, got %d", len(store.created))
	}
}

func TestProcessConversationSummaryTriggerAtTwenty(t *testing.T) {
	for _, tc := range []struct {
		turns   int
		updates int
	}{
		{19, 0},
		{20, 1},
		{21, 0},
		{40, 1},
	} {
		store := &fakeMemoryStore{ranked: []types.Memory{{Content: "fact", Importance: 80}}}
		summaries := &fakeSummaryStore{}
		model := &fakeModel{summary: "a summary"}
		service := NewService(store, summaries, model)

		service.ProcessConversation(context.Background(), "u1", "c1", "chat1", turns(tc.turns))

		if model.summarized != tc.updates {
			t.Errorf("turns=%d: expected %d summary updates, got %d", tc.turns, tc.updates, model.summarized)
		}
	}
}

func TestUpdateSummaryKeyFacts(t *testing.T) {
	ranked := []types.Memory{
		{Content: "critical fact", Importance: 95},
		{Content: "important fact", Importance: 70},
		{Content: "minor detail", Importance: 40},
	}
	for i := 0; i < 12; i++ {
		ranked = append(ranked, types.Memory{Content: fmt.Sprintf("fact %d", i), Importance: 75})
	}
	store := &fakeMemoryStore{ranked: ranked}
	summaries := &fakeSummaryStore{}
	service := NewService(store, summaries, &fakeModel{summary: "the narrative"})

	if err := service.UpdateSummary(context.Background(), "u1", "c1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summaries.stored == nil {
		t.Fatal("expected summary stored")
	}
	if summaries.stored.Summary != "the narrative" {
		t.Errorf("unexpected narrative: %q", summaries.stored.Summary)
	}
	if len(summaries.stored.KeyFacts) != types.MaxKeyFacts {
		t.Errorf("expected key facts capped at %d, got %d", types.MaxKeyFacts, len(summaries.stored.KeyFacts))
	}
	for _, fact := range summaries.stored.KeyFacts {
		if fact == "minor detail" {
			t.Error("low-importance memory leaked into key facts")
		}
	}
}

func TestUpdateSummaryNoMemoriesIsNoop(t *testing.T) {
	summaries := &fakeSummaryStore{}
	model := &fakeModel{}
	service := NewService(&fakeMemoryStore{}, summaries, model)

	if err := service.UpdateSummary(context.Background(), "u1", "c1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if model.summarized != 0 || summaries.stored != nil {
		t.Error("expected no summary work without memories")
	}
}

func TestUpdateSummaryOverwrites(t *testing.T) {
	store := &fakeMemoryStore{ranked: []types.Memory{{Content: "fact", Importance: 90}}}
	summaries := &fakeSummaryStore{stored: &types.MemorySummary{Summary: "old"}}
	service := NewService(store, summaries, &fakeModel{summary: "new"})

	if err := service.UpdateSummary(context.Background(), "u1", "c1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summaries.stored.Summary != "new" {
		t.Errorf("expected summary overwritten, got %q", summaries.stored.Summary)
	}
}

func TestDeleteMemoryOwnership(t *testing.T) {
	store := &fakeMemoryStore{byID: map[string]*types.Memory{
		"m1": {ID: "m1", UserID: "u1"},
		"m2": {ID: "m2", UserID: "someone-else"},
	}}
	service := NewService(store, &fakeSummaryStore{}, &fakeModel{})

	if err := service.DeleteMemory(context.Background(), "u1", "m1"); err != nil {
		t.Fatalf("expected owner delete to succeed, got %v", err)
	}
	if err := service.DeleteMemory(context.Background(), "u1", "m2"); !errors.Is(err, apperr.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "m1" {
		t.Errorf("unexpected deletions: %v", store.deleted)
	}
}
