// Package memory manages extraction, ranking, and summarization of
// long-lived facts about users.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

// ModelClient is the slice of the AI client the memory pipeline needs.
type ModelClient interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	ExtractMemories(ctx context.Context, conversationText string) ([]types.ExtractedMemory, error)
	SummarizeMemories(ctx context.Context, memories []types.Memory) (string, error)
}

// MemoryStore is the persistence surface for individual memories.
type MemoryStore interface {
	Create(ctx context.Context, memory types.Memory) (*types.Memory, error)
	GetRanked(ctx context.Context, userID, characterID string, limit int) ([]types.Memory, error)
	GetByID(ctx context.Context, id string) (*types.Memory, error)
	Delete(ctx context.Context, id string) error
}

// SummaryStore is the persistence surface for rolled-up summaries.
type SummaryStore interface {
	GetByScope(ctx context.Context, userID, characterID string) (*types.MemorySummary, error)
	Upsert(ctx context.Context, summary types.MemorySummary) (*types.MemorySummary, error)
}

// Service runs the memory pipeline.
type Service struct {
	memories  MemoryStore
	summaries SummaryStore
	model     ModelClient
}

// NewService wires the memory pipeline.
func NewService(memories MemoryStore, summaries SummaryStore, model ModelClient) *Service {
	return &Service{memories: memories, summaries: summaries, model: model}
}

// GetRelevant returns the top-ranked memories for a scope. Retrieval bumps
// each returned memory's last-accessed time.
func (s *Service) GetRelevant(ctx context.Context, userID, characterID string, limit int) ([]types.Memory, error) {
	if limit <= 0 {
		limit = types.DefaultMemoryLimit
	}
	return s.memories.GetRanked(ctx, userID, characterID, limit)
}

// CreateMemory stores one memory with its embedding. A failed embedding call
// is logged and the memory is stored without a vector.
func (s *Service) CreateMemory(ctx context.Context, memory types.Memory) (*types.Memory, error) {
	if memory.Importance == 0 {
		memory.Importance = types.DefaultMemoryImportance
	}
	embedding, err := s.model.CreateEmbedding(ctx, memory.Content)
	if err != nil {
		slog.Warn("embedding failed, storing memory without vector",
			"user_id", memory.UserID, "error", err)
	} else {
		memory.Embedding = embedding
	}
	return s.memories.Create(ctx, memory)
}

// ProcessConversation extracts memories from the latest turns and, every
// twentieth message, refreshes the rolled-up summary. Extraction failures
// degrade silently; the chat itself is never affected.
func (s *Service) ProcessConversation(ctx context.Context, userID, characterID, chatID string, messages []types.Message) {
	transcript := formatTranscript(messages)
	if transcript == "" {
		return
	}

	extracted, err := s.model.ExtractMemories(ctx, transcript)
	if err != nil {
		slog.Warn("memory extraction failed", "chat_id", chatID, "error", err)
		return
	}
	for _, item := range extracted {
		memory := types.Memory{
			UserID:      userID,
			CharacterID: characterID,
			ChatID:      chatID,
			Type:        item.Type,
			Content:     item.Content,
			Importance:  item.Importance,
			Metadata:    item.Metadata,
		}
		if _, err := s.CreateMemory(ctx, memory); err != nil {
			slog.Warn("failed to store extracted memory", "chat_id", chatID, "error", err)
		}
	}

	if len(messages) > 0 && len(messages)%types.MemorySummaryInterval == 0 {
		if err := s.UpdateSummary(ctx, userID, characterID); err != nil {
			slog.Warn("memory summary update failed", "user_id", userID, "error", err)
		}
	}
}

// UpdateSummary regenerates the scope's narrative summary from its top
// memories, overwriting any previous summary. Key facts are the contents of
// memories at importance 70 or above, capped at ten.
func (s *Service) UpdateSummary(ctx context.Context, userID, characterID string) error {
	memories, err := s.memories.GetRanked(ctx, userID, characterID, types.SummaryMemoryFetch)
	if err != nil {
		return err
	}
	if len(memories) == 0 {
		return nil
	}

	narrative, err := s.model.SummarizeMemories(ctx, memories)
	if err != nil {
		return goerr.Wrap(err, "failed to summarize memories", goerr.V("user_id", userID))
	}

	var keyFacts []string
	for _, memory := range memories {
		if memory.Importance >= types.KeyFactMinImportance {
			keyFacts = append(keyFacts, memory.Content)
			if len(keyFacts) == types.MaxKeyFacts {
				break
			}
		}
	}

	_, err = s.summaries.Upsert(ctx, types.MemorySummary{
		UserID:      userID,
		CharacterID: characterID,
		Summary:     narrative,
		KeyFacts:    keyFacts,
	})
	return err
}

// GetSummary returns the scope's summary, or nil when none exists.
func (s *Service) GetSummary(ctx context.Context, userID, characterID string) (*types.MemorySummary, error) {
	return s.summaries.GetByScope(ctx, userID, characterID)
}

// DeleteMemory removes one memory after an ownership check.
func (s *Service) DeleteMemory(ctx context.Context, userID, memoryID string) error {
	memory, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return err
	}
	if memory.UserID != userID {
		return goerr.Wrap(apperr.ErrAccessDenied, "memory belongs to another user",
			goerr.V("memory_id", memoryID))
	}
	return s.memories.Delete(ctx, memoryID)
}

func formatTranscript(messages []types.Message) string {
	var b strings.Builder
	for _, message := range messages {
		if message.Role != types.RoleUser && message.Role != types.RoleAssistant {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", message.Role, message.Content)
	}
	return strings.TrimSpace(b.String())
}
