package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"

	"github.com/amoralabs/amora/internal/types"
)

// memorySummaryModel maps to the memory_summaries table. One row per
// (user, character) scope; regeneration overwrites in place.
type memorySummaryModel struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index:idx_summary_scope,unique"`
	CharacterID string `gorm:"index:idx_summary_scope,unique"`
	Summary     string
	KeyFacts    json.RawMessage `gorm:"type:jsonb"`
	LastUpdated time.Time
}

func (memorySummaryModel) TableName() string {
	return "memory_summaries"
}

// MemorySummaryRepo accesses rolled-up memory narratives.
type MemorySummaryRepo struct {
	db *gorm.DB
}

// NewMemorySummaryRepo returns a MemorySummaryRepo.
func NewMemorySummaryRepo(db *gorm.DB) *MemorySummaryRepo {
	return &MemorySummaryRepo{db: db}
}

// GetByScope loads the summary for a (user, character) pair. Returns
// (nil, nil) when no summary exists yet.
func (r *MemorySummaryRepo) GetByScope(ctx context.Context, userID, characterID string) (*types.MemorySummary, error) {
	var record memorySummaryModel
	err := r.db.WithContext(ctx).
		First(&record, "user_id = ? AND character_id = ?", userID, characterID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to query memory summary", goerr.V("user_id", userID))
	}
	summary := summaryFromModel(record)
	return &summary, nil
}

// Upsert overwrites the summary for a scope, creating it on first write.
func (r *MemorySummaryRepo) Upsert(ctx context.Context, summary types.MemorySummary) (*types.MemorySummary, error) {
	keyFacts, err := marshalJSON(summary.KeyFacts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode key facts")
	}

	result := r.db.WithContext(ctx).Model(&memorySummaryModel{}).
		Where("user_id = ? AND character_id = ?", summary.UserID, summary.CharacterID).
		Updates(map[string]any{
			"summary":      summary.Summary,
			"key_facts":    jsonbArg(keyFacts),
			"last_updated": time.Now(),
		})
	if result.Error != nil {
		return nil, goerr.Wrap(result.Error, "failed to update memory summary", goerr.V("user_id", summary.UserID))
	}
	if result.RowsAffected == 0 {
		record := memorySummaryModel{
			ID:          uuid.NewString(),
			UserID:      summary.UserID,
			CharacterID: summary.CharacterID,
			Summary:     summary.Summary,
			KeyFacts:    keyFacts,
			LastUpdated: time.Now(),
		}
		if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, goerr.Wrap(err, "failed to insert memory summary", goerr.V("user_id", summary.UserID))
		}
	}
	return r.GetByScope(ctx, summary.UserID, summary.CharacterID)
}

func summaryFromModel(model memorySummaryModel) types.MemorySummary {
	summary := types.MemorySummary{
		ID:          model.ID,
		UserID:      model.UserID,
		CharacterID: model.CharacterID,
		Summary:     model.Summary,
		LastUpdated: model.LastUpdated,
	}
	_ = unmarshalJSON(model.KeyFacts, &summary.KeyFacts)
	return summary
}
