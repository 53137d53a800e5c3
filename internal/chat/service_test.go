package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"

	"github.com/amoralabs/amora/internal/ai"
	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/moderation"
	"github.com/amoralabs/amora/internal/types"
)

type fakeChatStore struct {
	chats   map[string]*types.Chat
	touched int
	deleted []string
}

func (s *fakeChatStore) Create(ctx context.Context, chat types.Chat) (*types.Chat, error) {
	chat.ID = fmt.Sprintf("chat-%d", len(s.chats)+1)
	if s.chats == nil {
		s.chats = map[string]*types.Chat{}
	}
	s.chats[chat.ID] = &chat
	return &chat, nil
}

func (s *fakeChatStore) GetByID(ctx context.Context, id string) (*types.Chat, error) {
	chat, ok := s.chats[id]
	if !ok {
		return nil, apperr.ErrChatNotFound
	}
	copied := *chat
	return &copied, nil
}

func (s *fakeChatStore) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]types.Chat, int64, error) {
	var items []types.Chat
	for _, chat := range s.chats {
		if chat.UserID == userID {
			items = append(items, *chat)
		}
	}
	return items, int64(len(items)), nil
}

func (s *fakeChatStore) TouchLastMessage(ctx context.Context, id string) error {
	s.touched++
	return nil
}

func (s *fakeChatStore) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.chats, id)
	return nil
}

type fakeMessageStore struct {
	messages []types.Message
}

func (s *fakeMessageStore) Create(ctx context.Context, message types.Message) (*types.Message, error) {
	message.ID = fmt.Sprintf("msg-%d", len(s.messages)+1)
	s.messages = append(s.messages, message)
	return &message, nil
}

func (s *fakeMessageStore) ListByChat(ctx context.Context, chatID string, limit int) ([]types.Message, error) {
	var items []types.Message
	for _, message := range s.messages {
		if message.ChatID == chatID {
			items = append(items, message)
		}
	}
	return items, nil
}

type fakeCharacterStore struct {
	characters map[string]*types.Character
}

func (s *fakeCharacterStore) GetByID(ctx context.Context, id string) (*types.Character, error) {
	character, ok := s.characters[id]
	if !ok {
		return nil, apperr.ErrCharacterNotFound
	}
	return character, nil
}

type fakeResponder struct {
	reply  string
	chunks []types.ChatStreamChunk
	input  *ai.GenerateInput
}

func (r *fakeResponder) GenerateResponse(ctx context.Context, in ai.GenerateInput) (string, *types.MessageMetadata, error) {
	r.input = &in
	return r.reply, &types.MessageMetadata{Model: "test-model"}, nil
}

func (r *fakeResponder) GenerateResponseStream(ctx context.Context, in ai.GenerateInput) iter.Seq[types.ChatStreamChunk] {
	r.input = &in
	return func(yield func(types.ChatStreamChunk) bool) {
		for _, chunk := range r.chunks {
			if !yield(chunk) {
				return
			}
		}
	}
}

type fakeMemories struct {
	relevant  []types.Memory
	processed [][]types.Message
}

func (m *fakeMemories) GetRelevant(ctx context.Context, userID, characterID string, limit int) ([]types.Memory, error) {
	return m.relevant, nil
}

func (m *fakeMemories) ProcessConversation(ctx context.Context, userID, characterID, chatID string, messages []types.Message) {
	m.processed = append(m.processed, messages)
}

type fakePremium struct{ has bool }

func (p *fakePremium) HasPremiumAccess(ctx context.Context, userID string) (bool, error) {
	return p.has, nil
}

type fakeLimiter struct {
	allow bool
	calls int
}

func (l *fakeLimiter) AllowMessage(ctx context.Context, userID string) (bool, error) {
	l.calls++
	return l.allow, nil
}

// syncQueue runs tasks inline so tests observe pipeline effects immediately.
type syncQueue struct{ ran []string }

func (q *syncQueue) Enqueue(name string, run func(ctx context.Context) error) bool {
	q.ran = append(q.ran, name)
	_ = run(context.Background())
	return true
}

type fixture struct {
	service    *Service
	chats      *fakeChatStore
	messages   *fakeMessageStore
	characters *fakeCharacterStore
	responder  *fakeResponder
	memories   *fakeMemories
	premium    *fakePremium
	limiter    *fakeLimiter
	queue      *syncQueue
}

func newFixture() *fixture {
	f := &fixture{
		chats: &fakeChatStore{chats: map[string]*types.Chat{
			"chat-1": {ID: "chat-1", UserID: "u1", CharacterID: "c1"},
		}},
		messages: &fakeMessageStore{},
		characters: &fakeCharacterStore{characters: map[string]*types.Character{
			"c1":      {ID: "c1", Name: "Sakura", Description: "a companion"},
			"premium": {ID: "premium", Name: "Luna", Description: "premium", IsPremium: true},
		}},
		responder: &fakeResponder{reply: "hello there"},
		memories:  &fakeMemories{},
		premium:   &fakePremium{},
		limiter:   &fakeLimiter{allow: true},
		queue:     &syncQueue{},
	}
	f.service = NewService(
		f.chats, f.messages, f.characters,
		f.responder, f.memories, f.premium, f.limiter,
		moderation.NewFilter(), f.queue, nil,
	)
	return f
}

func TestSendMessagePersistsUserTurn(t *testing.T) {
	f := newFixture()

	message, err := f.service.SendMessage(context.Background(), "u1", "chat-1", "good morning", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if message.Role != types.RoleUser || message.Content != "good morning" {
		t.Errorf("unexpected message: %+v", message)
	}
	if f.chats.touched != 1 {
		t.Errorf("expected activity touch, got %d", f.chats.touched)
	}
}

func TestSendMessageRejectsOtherUsersChat(t *testing.T) {
	f := newFixture()

	_, err := f.service.SendMessage(context.Background(), "intruder", "chat-1", "hi", "")
	if !errors.Is(err, apperr.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if f.limiter.calls != 0 {
		t.Error("limiter consulted before ownership check")
	}
}

func TestSendMessageEnforcesDailyLimit(t *testing.T) {
	f := newFixture()
	f.limiter.allow = false

	_, err := f.service.SendMessage(context.Background(), "u1", "chat-1", "hi", "")
	if !errors.Is(err, apperr.ErrMessageLimit) {
		t.Fatalf("expected message limit error, got %v", err)
	}
	if len(f.messages.messages) != 0 {
		t.Error("message persisted despite limit")
	}
}

func TestSendMessageModeratesBeforePersisting(t *testing.T) {
	f := newFixture()

	_, err := f.service.SendMessage(context.Background(), "u1", "chat-1", "I hate everything", "")
	if !errors.Is(err, apperr.ErrContentViolation) {
		t.Fatalf("expected content violation, got %v", err)
	}
	if len(f.messages.messages) != 0 {
		t.Error("violating message persisted")
	}
}

func TestRespondPersistsReplyAndQueuesMemoryWork(t *testing.T) {
	f := newFixture()
	if _, err := f.service.SendMessage(context.Background(), "u1", "chat-1", "tell me a story", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	reply, err := f.service.Respond(context.Background(), "u1", "chat-1")
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if reply.Role != types.RoleAssistant || reply.Content != "hello there" {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if reply.Metadata == nil || reply.Metadata.Model != "test-model" {
		t.Errorf("expected generation metadata, got %+v", reply.Metadata)
	}
	if len(f.queue.ran) != 1 || f.queue.ran[0] != "memory-process" {
		t.Errorf("expected memory task queued, got %v", f.queue.ran)
	}
	if len(f.memories.processed) != 1 {
		t.Fatalf("expected one processed conversation, got %d", len(f.memories.processed))
	}
	conversation := f.memories.processed[0]
	if conversation[len(conversation)-1].Role != types.RoleAssistant {
		t.Error("processed conversation missing assistant reply")
	}
}

func TestRespondFeedsMemoriesIntoGeneration(t *testing.T) {
	f := newFixture()
	f.memories.relevant = []types.Memory{{Content: "likes jazz", Importance: 80}}

	if _, err := f.service.Respond(context.Background(), "u1", "chat-1"); err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if f.responder.input == nil || len(f.responder.input.Memories) != 1 {
		t.Fatalf("expected memories passed to generation, got %+v", f.responder.input)
	}
	if f.responder.input.Character.Name != "Sakura" {
		t.Errorf("unexpected character: %+v", f.responder.input.Character)
	}
}

func TestStreamResponsePersistsOnDone(t *testing.T) {
	f := newFixture()
	f.responder.chunks = []types.ChatStreamChunk{
		{Type: types.ChunkToken, Content: "hel"},
		{Type: types.ChunkToken, Content: "lo"},
		{Type: types.ChunkDone, Content: "hello", Metadata: &types.MessageMetadata{Model: "test-model"}},
	}

	stream, err := f.service.StreamResponse(context.Background(), "u1", "chat-1")
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var got []types.ChatStreamChunk
	for chunk := range stream {
		got = append(got, chunk)
	}

	if len(got) != 3 || got[2].Type != types.ChunkDone {
		t.Fatalf("unexpected chunks: %+v", got)
	}
	if len(f.messages.messages) != 1 || f.messages.messages[0].Content != "hello" {
		t.Fatalf("expected accumulated reply persisted, got %+v", f.messages.messages)
	}
	if len(f.memories.processed) != 1 {
		t.Error("expected memory processing after stream completion")
	}
}

func TestStreamResponseErrorChunkSkipsPersistence(t *testing.T) {
	f := newFixture()
	f.responder.chunks = []types.ChatStreamChunk{
		{Type: types.ChunkToken, Content: "hel"},
		{Type: types.ChunkError, Error: "upstream failed"},
	}

	stream, err := f.service.StreamResponse(context.Background(), "u1", "chat-1")
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	var last types.ChatStreamChunk
	for chunk := range stream {
		last = chunk
	}

	if last.Type != types.ChunkError {
		t.Fatalf("expected terminal error chunk, got %+v", last)
	}
	if len(f.messages.messages) != 0 {
		t.Error("partial reply persisted after stream error")
	}
}

func TestCreateChatPremiumGate(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "u1", "premium", "", nil)
	if !errors.Is(err, apperr.ErrPremiumRequired) {
		t.Fatalf("expected premium required, got %v", err)
	}

	f.premium.has = true
	chat, err := f.service.Create(context.Background(), "u1", "premium", "first chat", nil)
	if err != nil {
		t.Fatalf("expected premium user to create chat, got %v", err)
	}
	if chat.Character == nil || chat.Character.ID != "premium" {
		t.Errorf("expected character attached, got %+v", chat.Character)
	}
}

type fakeTagger struct{ label string }

func (f *fakeTagger) Classify(ctx context.Context, text string) string {
	return f.label
}

func TestRespondTagsReplyEmotion(t *testing.T) {
	f := newFixture()
	f.service.emotions = &fakeTagger{label: "positive"}

	reply, err := f.service.Respond(context.Background(), "u1", "chat-1")
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if reply.Metadata == nil || reply.Metadata.Emotion != "positive" {
		t.Errorf("expected emotion tag on reply metadata, got %+v", reply.Metadata)
	}
}

func TestDeleteChatOwnership(t *testing.T) {
	f := newFixture()

	if err := f.service.Delete(context.Background(), "intruder", "chat-1"); !errors.Is(err, apperr.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if err := f.service.Delete(context.Background(), "u1", "chat-1"); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if len(f.chats.deleted) != 1 {
		t.Errorf("expected one deletion, got %v", f.chats.deleted)
	}
}
