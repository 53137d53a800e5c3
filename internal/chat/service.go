// Package chat orchestrates conversation threads: moderation, limits,
// persistence, generation, and the memory pipeline.
package chat

import (
	"context"
	"iter"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/amoralabs/amora/internal/ai"
	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/moderation"
	"github.com/amoralabs/amora/internal/types"
)

// ChatStore is the persistence surface for threads.
type ChatStore interface {
	Create(ctx context.Context, chat types.Chat) (*types.Chat, error)
	GetByID(ctx context.Context, id string) (*types.Chat, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]types.Chat, int64, error)
	TouchLastMessage(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// MessageStore is the persistence surface for turns.
type MessageStore interface {
	Create(ctx context.Context, message types.Message) (*types.Message, error)
	ListByChat(ctx context.Context, chatID string, limit int) ([]types.Message, error)
}

// CharacterStore resolves personas for generation.
type CharacterStore interface {
	GetByID(ctx context.Context, id string) (*types.Character, error)
}

// Responder generates character replies.
type Responder interface {
	GenerateResponse(ctx context.Context, in ai.GenerateInput) (string, *types.MessageMetadata, error)
	GenerateResponseStream(ctx context.Context, in ai.GenerateInput) iter.Seq[types.ChatStreamChunk]
}

// MemoryPipeline is the post-turn hook into the memory system.
type MemoryPipeline interface {
	GetRelevant(ctx context.Context, userID, characterID string, limit int) ([]types.Memory, error)
	ProcessConversation(ctx context.Context, userID, characterID, chatID string, messages []types.Message)
}

// PremiumChecker gates premium characters.
type PremiumChecker interface {
	HasPremiumAccess(ctx context.Context, userID string) (bool, error)
}

// MessageLimiter enforces the daily message quota.
type MessageLimiter interface {
	AllowMessage(ctx context.Context, userID string) (bool, error)
}

// Enqueuer defers memory processing off the request path.
type Enqueuer interface {
	Enqueue(name string, run func(ctx context.Context) error) bool
}

// EmotionTagger labels assistant replies for message metadata.
type EmotionTagger interface {
	Classify(ctx context.Context, text string) string
}

// Service implements the chat operations.
type Service struct {
	chats      ChatStore
	messages   MessageStore
	characters CharacterStore
	responder  Responder
	memories   MemoryPipeline
	premium    PremiumChecker
	limiter    MessageLimiter
	filter     *moderation.Filter
	queue      Enqueuer
	emotions   EmotionTagger
}

// NewService wires the chat service.
func NewService(
	chats ChatStore,
	messages MessageStore,
	characters CharacterStore,
	responder Responder,
	memories MemoryPipeline,
	premium PremiumChecker,
	limiter MessageLimiter,
	filter *moderation.Filter,
	queue Enqueuer,
	emotions EmotionTagger,
) *Service {
	return &Service{
		chats:      chats,
		messages:   messages,
		characters: characters,
		responder:  responder,
		memories:   memories,
		premium:    premium,
		limiter:    limiter,
		filter:     filter,
		queue:      queue,
		emotions:   emotions,
	}
}

// List returns the user's chats, most recently active first.
func (s *Service) List(ctx context.Context, userID string, page, pageSize int) (*types.PaginatedResponse[types.Chat], error) {
	items, total, err := s.chats.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if character, err := s.characters.GetByID(ctx, items[i].CharacterID); err == nil {
			items[i].Character = character
		}
	}
	return &types.PaginatedResponse[types.Chat]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  int64(page*pageSize) < total,
	}, nil
}

// Get returns one chat with its character and up to the last hundred
// messages. Only the owner may read it.
func (s *Service) Get(ctx context.Context, userID, chatID string) (*types.Chat, error) {
	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if character, err := s.characters.GetByID(ctx, chat.CharacterID); err == nil {
		chat.Character = character
	}
	messages, err := s.messages.ListByChat(ctx, chatID, types.MaxChatHistoryFetch)
	if err != nil {
		return nil, err
	}
	chat.Messages = messages
	return chat, nil
}

// Create opens a new chat. Premium characters require an active paid
// subscription.
func (s *Service) Create(ctx context.Context, userID string, characterID, title string, scene *types.SceneContext) (*types.Chat, error) {
	character, err := s.characters.GetByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if character.IsPremium {
		hasAccess, err := s.premium.HasPremiumAccess(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !hasAccess {
			return nil, goerr.Wrap(apperr.ErrPremiumRequired, "premium character requires subscription",
				goerr.V("character_id", characterID))
		}
	}

	chat, err := s.chats.Create(ctx, types.Chat{
		UserID:      userID,
		CharacterID: characterID,
		Title:       title,
		Scene:       scene,
	})
	if err != nil {
		return nil, err
	}
	chat.Character = character
	return chat, nil
}

// Delete removes a chat and its messages. Only the owner may delete it.
func (s *Service) Delete(ctx context.Context, userID, chatID string) error {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	return s.chats.Delete(ctx, chatID)
}

// SendMessage validates, moderates, and persists one user turn. The reply is
// produced separately by Respond or StreamResponse.
func (s *Service) SendMessage(ctx context.Context, userID, chatID, content, imageURL string) (*types.Message, error) {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	allowed, err := s.limiter.AllowMessage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, goerr.Wrap(apperr.ErrMessageLimit, "daily message limit reached",
			goerr.V("user_id", userID))
	}

	verdict := s.filter.Moderate(content)
	if !verdict.IsSafe {
		return nil, goerr.Wrap(apperr.ErrContentViolation, "message rejected by moderation",
			goerr.V("violations", len(verdict.Violations)))
	}

	message, err := s.messages.Create(ctx, types.Message{
		ChatID:   chatID,
		Role:     types.RoleUser,
		Content:  content,
		ImageURL: imageURL,
	})
	if err != nil {
		return nil, err
	}
	if err := s.chats.TouchLastMessage(ctx, chatID); err != nil {
		slog.Warn("failed to touch chat activity", "chat_id", chatID, "error", err)
	}
	return message, nil
}

// Respond generates and persists the character's reply to the chat's current
// state, then queues memory processing.
func (s *Service) Respond(ctx context.Context, userID, chatID string) (*types.Message, error) {
	in, chat, history, err := s.prepareGeneration(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	content, metadata, err := s.responder.GenerateResponse(ctx, *in)
	if err != nil {
		return nil, err
	}
	return s.persistReply(ctx, chat, history, content, metadata)
}

// StreamResponse is Respond as a chunk sequence. The assistant message is
// persisted when the terminal done chunk arrives, and the done chunk is
// re-emitted with the stored message's metadata.
func (s *Service) StreamResponse(ctx context.Context, userID, chatID string) (iter.Seq[types.ChatStreamChunk], error) {
	in, chat, history, err := s.prepareGeneration(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	upstream := s.responder.GenerateResponseStream(ctx, *in)
	return func(yield func(types.ChatStreamChunk) bool) {
		for chunk := range upstream {
			if chunk.Type != types.ChunkDone {
				if !yield(chunk) {
					return
				}
				continue
			}
			if _, err := s.persistReply(ctx, chat, history, chunk.Content, chunk.Metadata); err != nil {
				slog.Error("failed to persist streamed reply", "chat_id", chatID, "error", err)
				yield(types.ChatStreamChunk{Type: types.ChunkError, Error: "failed to save response"})
				return
			}
			yield(chunk)
			return
		}
	}, nil
}

func (s *Service) prepareGeneration(ctx context.Context, userID, chatID string) (*ai.GenerateInput, *types.Chat, []types.Message, error) {
	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, nil, nil, err
	}
	character, err := s.characters.GetByID(ctx, chat.CharacterID)
	if err != nil {
		return nil, nil, nil, err
	}
	history, err := s.messages.ListByChat(ctx, chatID, types.MaxChatHistoryFetch)
	if err != nil {
		return nil, nil, nil, err
	}
	memories, err := s.memories.GetRelevant(ctx, userID, chat.CharacterID, types.DefaultMemoryLimit)
	if err != nil {
		slog.Warn("memory retrieval failed, generating without memories",
			"chat_id", chatID, "error", err)
	}
	return &ai.GenerateInput{
		Character: character,
		Memories:  memories,
		Scene:     chat.Scene,
		History:   history,
	}, chat, history, nil
}

func (s *Service) persistReply(ctx context.Context, chat *types.Chat, history []types.Message, content string, metadata *types.MessageMetadata) (*types.Message, error) {
	if s.emotions != nil {
		if metadata == nil {
			metadata = &types.MessageMetadata{}
		}
		metadata.Emotion = s.emotions.Classify(ctx, content)
	}
	message, err := s.messages.Create(ctx, types.Message{
		ChatID:   chat.ID,
		Role:     types.RoleAssistant,
		Content:  content,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}
	if err := s.chats.TouchLastMessage(ctx, chat.ID); err != nil {
		slog.Warn("failed to touch chat activity", "chat_id", chat.ID, "error", err)
	}

	conversation := append(append([]types.Message{}, history...), *message)
	userID, characterID, chatID := chat.UserID, chat.CharacterID, chat.ID
	s.queue.Enqueue("memory-process", func(ctx context.Context) error {
		s.memories.ProcessConversation(ctx, userID, characterID, chatID, conversation)
		return nil
	})
	return message, nil
}

func (s *Service) ownedChat(ctx context.Context, userID, chatID string) (*types.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, goerr.Wrap(apperr.ErrAccessDenied, "chat belongs to another user",
			goerr.V("chat_id", chatID))
	}
	return chat, nil
}
