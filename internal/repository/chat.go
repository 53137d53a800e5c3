package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

// chatModel maps to the chats table.
type chatModel struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"index"`
	CharacterID   string `gorm:"index"`
	Title         string
	Scene         json.RawMessage `gorm:"type:jsonb"`
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (chatModel) TableName() string {
	return "chats"
}

// ChatRepo accesses conversation threads.
type ChatRepo struct {
	db *gorm.DB
}

// NewChatRepo returns a ChatRepo.
func NewChatRepo(db *gorm.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Create inserts a chat.
func (r *ChatRepo) Create(ctx context.Context, chat types.Chat) (*types.Chat, error) {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	scene, err := marshalJSON(chat.Scene)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode scene")
	}
	record := chatModel{
		ID:            chat.ID,
		UserID:        chat.UserID,
		CharacterID:   chat.CharacterID,
		Title:         chat.Title,
		Scene:         scene,
		LastMessageAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to insert chat", goerr.V("user_id", chat.UserID))
	}
	created := chatFromModel(record)
	return &created, nil
}

// GetByID loads one chat without related rows.
func (r *ChatRepo) GetByID(ctx context.Context, id string) (*types.Chat, error) {
	var record chatModel
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(apperr.ErrChatNotFound, "no such chat", goerr.V("chat_id", id))
		}
		return nil, goerr.Wrap(err, "failed to query chat", goerr.V("chat_id", id))
	}
	chat := chatFromModel(record)
	return &chat, nil
}

// ListByUser returns the user's chats ordered by most recent activity.
func (r *ChatRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]types.Chat, int64, error) {
	query := r.db.WithContext(ctx).Model(&chatModel{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, goerr.Wrap(err, "failed to count chats", goerr.V("user_id", userID))
	}

	var records []chatModel
	offset := (page - 1) * pageSize
	if err := query.Order("last_message_at DESC").Offset(offset).Limit(pageSize).Find(&records).Error; err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list chats", goerr.V("user_id", userID))
	}

	results := make([]types.Chat, 0, len(records))
	for _, record := range records {
		results = append(results, chatFromModel(record))
	}
	return results, total, nil
}

// TouchLastMessage bumps the activity timestamp used for listing order.
func (r *ChatRepo) TouchLastMessage(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Model(&chatModel{}).
		Where("id = ?", id).
		Update("last_message_at", time.Now()).Error; err != nil {
		return goerr.Wrap(err, "failed to touch chat", goerr.V("chat_id", id))
	}
	return nil
}

// Delete removes a chat and its messages.
func (r *ChatRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&messageModel{}, "chat_id = ?", id).Error; err != nil {
		return goerr.Wrap(err, "failed to delete chat messages", goerr.V("chat_id", id))
	}
	if err := r.db.WithContext(ctx).Delete(&chatModel{}, "id = ?", id).Error; err != nil {
		return goerr.Wrap(err, "failed to delete chat", goerr.V("chat_id", id))
	}
	return nil
}

func chatFromModel(model chatModel) types.Chat {
	chat := types.Chat{
		ID:            model.ID,
		UserID:        model.UserID,
		CharacterID:   model.CharacterID,
		Title:         model.Title,
		LastMessageAt: model.LastMessageAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
	if len(model.Scene) > 0 {
		var scene types.SceneContext
		if unmarshalJSON(model.Scene, &scene) == nil {
			chat.Scene = &scene
		}
	}
	return chat
}
