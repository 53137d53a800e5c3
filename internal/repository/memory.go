package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

// memoryModel maps to the memories table. Embedding is a pgvector column and
// may be NULL when the embedding call failed at write time.
type memoryModel struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"index:idx_memories_scope"`
	CharacterID    string `gorm:"index:idx_memories_scope"`
	ChatID         string
	Type           string
	Content        string
	Importance     int
	Embedding      *pgvector.Vector `gorm:"type:vector(1536)"`
	Metadata       json.RawMessage  `gorm:"type:jsonb"`
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

func (memoryModel) TableName() string {
	return "memories"
}

// MemoryRepo accesses extracted memories.
type MemoryRepo struct {
	db *gorm.DB
}

// NewMemoryRepo returns a MemoryRepo.
func NewMemoryRepo(db *gorm.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

// Create inserts a memory. A nil embedding is stored as NULL.
func (r *MemoryRepo) Create(ctx context.Context, memory types.Memory) (*types.Memory, error) {
	if memory.ID == "" {
		memory.ID = uuid.NewString()
	}
	metadata, err := marshalJSON(memory.Metadata)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode memory metadata")
	}
	record := memoryModel{
		ID:             memory.ID,
		UserID:         memory.UserID,
		CharacterID:    memory.CharacterID,
		ChatID:         memory.ChatID,
		Type:           memory.Type,
		Content:        memory.Content,
		Importance:     memory.Importance,
		Metadata:       metadata,
		LastAccessedAt: time.Now(),
	}
	if len(memory.Embedding) > 0 {
		vec := pgvector.NewVector(memory.Embedding)
		record.Embedding = &vec
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to insert memory", goerr.V("user_id", memory.UserID))
	}
	created := memoryFromModel(record)
	return &created, nil
}

// GetRanked returns the top memories for a (user, character) scope ordered by
// importance then recency of access, and bumps last_accessed_at on everything
// returned.
func (r *MemoryRepo) GetRanked(ctx context.Context, userID, characterID string, limit int) ([]types.Memory, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if characterID != "" {
		query = query.Where("character_id = ?", characterID)
	}

	var records []memoryModel
	if err := query.Order("importance DESC, last_accessed_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to query memories", goerr.V("user_id", userID))
	}
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	if err := r.db.WithContext(ctx).Model(&memoryModel{}).
		Where("id IN ?", ids).
		Update("last_accessed_at", time.Now()).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to touch memories", goerr.V("user_id", userID))
	}

	results := make([]types.Memory, 0, len(records))
	for _, record := range records {
		results = append(results, memoryFromModel(record))
	}
	return results, nil
}

// GetByID loads one memory.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (*types.Memory, error) {
	var record memoryModel
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(apperr.ErrMemoryNotFound, "no such memory", goerr.V("memory_id", id))
		}
		return nil, goerr.Wrap(err, "failed to query memory", goerr.V("memory_id", id))
	}
	memory := memoryFromModel(record)
	return &memory, nil
}

// Delete removes one memory by id.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&memoryModel{}, "id = ?", id).Error; err != nil {
		return goerr.Wrap(err, "failed to delete memory", goerr.V("memory_id", id))
	}
	return nil
}

func memoryFromModel(model memoryModel) types.Memory {
	memory := types.Memory{
		ID:             model.ID,
		UserID:         model.UserID,
		CharacterID:    model.CharacterID,
		ChatID:         model.ChatID,
		Type:           model.Type,
		Content:        model.Content,
		Importance:     model.Importance,
		CreatedAt:      model.CreatedAt,
		LastAccessedAt: model.LastAccessedAt,
	}
	if model.Embedding != nil {
		memory.Embedding = model.Embedding.Slice()
	}
	_ = unmarshalJSON(model.Metadata, &memory.Metadata)
	return memory
}
