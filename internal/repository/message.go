package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"

	"github.com/amoralabs/amora/internal/types"
)

// messageModel maps to the messages table. Rows are append-only.
type messageModel struct {
	ID        string `gorm:"primaryKey"`
	ChatID    string `gorm:"index"`
	Role      string
	Content   string
	ImageURL  string
	Metadata  json.RawMessage `gorm:"type:jsonb"`
	CreatedAt time.Time       `gorm:"index"`
}

func (messageModel) TableName() string {
	return "messages"
}

// MessageRepo accesses chat messages.
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo returns a MessageRepo.
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create appends one message.
func (r *MessageRepo) Create(ctx context.Context, message types.Message) (*types.Message, error) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	metadata, err := marshalJSON(message.Metadata)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode message metadata")
	}
	record := messageModel{
		ID:       message.ID,
		ChatID:   message.ChatID,
		Role:     message.Role,
		Content:  message.Content,
		ImageURL: message.ImageURL,
		Metadata: metadata,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to insert message", goerr.V("chat_id", message.ChatID))
	}
	created := messageFromModel(record)
	return &created, nil
}

// ListByChat returns up to limit most recent messages in creation order
// (oldest first).
func (r *MessageRepo) ListByChat(ctx context.Context, chatID string, limit int) ([]types.Message, error) {
	var records []messageModel
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("chat_id", chatID))
	}

	results := make([]types.Message, 0, len(records))
	for _, record := range records {
		results = append(results, messageFromModel(record))
	}
	// Oldest -> newest
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

func messageFromModel(model messageModel) types.Message {
	message := types.Message{
		ID:        model.ID,
		ChatID:    model.ChatID,
		Role:      model.Role,
		Content:   model.Content,
		ImageURL:  model.ImageURL,
		CreatedAt: model.CreatedAt,
	}
	if len(model.Metadata) > 0 {
		var metadata types.MessageMetadata
		if unmarshalJSON(model.Metadata, &metadata) == nil {
			message.Metadata = &metadata
		}
	}
	return message
}
