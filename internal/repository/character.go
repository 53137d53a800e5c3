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

// characterModel maps to the characters table. Nested configs are JSONB.
type characterModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	Description string
	Avatar      string
	Archetype   string `gorm:"index"`
	Personality json.RawMessage `gorm:"type:jsonb"`
	Voice       json.RawMessage `gorm:"type:jsonb"`
	Boundaries  json.RawMessage `gorm:"type:jsonb"`
	CreatorID   string          `gorm:"index"`
	IsPublic    bool
	IsPremium   bool
	Tags        json.RawMessage `gorm:"type:jsonb"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (characterModel) TableName() string {
	return "characters"
}

// CharacterFilters narrow catalog listings.
type CharacterFilters struct {
	Archetype string
	IsPremium *bool
	Tags      []string
}

// CharacterRepo accesses the character catalog.
type CharacterRepo struct {
	db *gorm.DB
}

// NewCharacterRepo returns a CharacterRepo.
func NewCharacterRepo(db *gorm.DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// List returns public characters, newest first, with optional filters.
func (r *CharacterRepo) List(ctx context.Context, page, pageSize int, filters CharacterFilters) ([]types.Character, int64, error) {
	query := r.db.WithContext(ctx).Model(&characterModel{}).Where("is_public = ?", true)

	if filters.Archetype != "" {
		query = query.Where("archetype = ?", filters.Archetype)
	}
	if filters.IsPremium != nil {
		query = query.Where("is_premium = ?", *filters.IsPremium)
	}
	if len(filters.Tags) > 0 {
		tagCond := r.db.Where("tags @> ?::jsonb", mustTagJSON(filters.Tags[0]))
		for _, tag := range filters.Tags[1:] {
			tagCond = tagCond.Or("tags @> ?::jsonb", mustTagJSON(tag))
		}
		query = query.Where(tagCond)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, goerr.Wrap(err, "failed to count characters")
	}

	var records []characterModel
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&records).Error; err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list characters")
	}

	results := make([]types.Character, 0, len(records))
	for _, record := range records {
		results = append(results, characterFromModel(record))
	}
	return results, total, nil
}

// GetByID loads one character regardless of visibility.
func (r *CharacterRepo) GetByID(ctx context.Context, id string) (*types.Character, error) {
	var record characterModel
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(apperr.ErrCharacterNotFound, "no such character", goerr.V("character_id", id))
		}
		return nil, goerr.Wrap(err, "failed to query character", goerr.V("character_id", id))
	}
	character := characterFromModel(record)
	return &character, nil
}

// Create inserts a character.
func (r *CharacterRepo) Create(ctx context.Context, character types.Character) (*types.Character, error) {
	if character.ID == "" {
		character.ID = uuid.NewString()
	}
	record, err := characterToModel(character)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to insert character", goerr.V("name", character.Name))
	}
	created := characterFromModel(record)
	return &created, nil
}

// Update overwrites the stored character.
func (r *CharacterRepo) Update(ctx context.Context, character types.Character) (*types.Character, error) {
	record, err := characterToModel(character)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&characterModel{}).
		Where("id = ?", character.ID).
		Updates(map[string]any{
			"name":        record.Name,
			"description": record.Description,
			"avatar":      record.Avatar,
			"archetype":   record.Archetype,
			"personality": jsonbArg(record.Personality),
			"voice":       jsonbArg(record.Voice),
			"boundaries":  jsonbArg(record.Boundaries),
			"is_public":   record.IsPublic,
			"is_premium":  record.IsPremium,
			"tags":        jsonbArg(record.Tags),
		}).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to update character", goerr.V("character_id", character.ID))
	}
	return r.GetByID(ctx, character.ID)
}

// Delete removes a character by id.
func (r *CharacterRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&characterModel{}, "id = ?", id).Error; err != nil {
		return goerr.Wrap(err, "failed to delete character", goerr.V("character_id", id))
	}
	return nil
}

// Count reports catalog size; used by the seeder to avoid double-seeding.
func (r *CharacterRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&characterModel{}).Count(&total).Error; err != nil {
		return 0, goerr.Wrap(err, "failed to count characters")
	}
	return total, nil
}

func characterToModel(character types.Character) (characterModel, error) {
	personality, err := marshalJSON(character.Personality)
	if err != nil {
		return characterModel{}, goerr.Wrap(err, "failed to encode personality")
	}
	voice, err := marshalJSON(character.Voice)
	if err != nil {
		return characterModel{}, goerr.Wrap(err, "failed to encode voice")
	}
	boundaries, err := marshalJSON(character.Boundaries)
	if err != nil {
		return characterModel{}, goerr.Wrap(err, "failed to encode boundaries")
	}
	tags, err := marshalJSON(character.Tags)
	if err != nil {
		return characterModel{}, goerr.Wrap(err, "failed to encode tags")
	}
	return characterModel{
		ID:          character.ID,
		Name:        character.Name,
		Description: character.Description,
		Avatar:      character.Avatar,
		Archetype:   character.Archetype,
		Personality: personality,
		Voice:       voice,
		Boundaries:  boundaries,
		CreatorID:   character.CreatorID,
		IsPublic:    character.IsPublic,
		IsPremium:   character.IsPremium,
		Tags:        tags,
	}, nil
}

func characterFromModel(model characterModel) types.Character {
	character := types.Character{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Avatar:      model.Avatar,
		Archetype:   model.Archetype,
		CreatorID:   model.CreatorID,
		IsPublic:    model.IsPublic,
		IsPremium:   model.IsPremium,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if len(model.Personality) > 0 {
		var p types.PersonalityTraits
		if unmarshalJSON(model.Personality, &p) == nil {
			character.Personality = &p
		}
	}
	if len(model.Voice) > 0 {
		var v types.VoiceSettings
		if unmarshalJSON(model.Voice, &v) == nil {
			character.Voice = &v
		}
	}
	if len(model.Boundaries) > 0 {
		var b types.CharacterBoundaries
		if unmarshalJSON(model.Boundaries, &b) == nil {
			character.Boundaries = &b
		}
	}
	_ = unmarshalJSON(model.Tags, &character.Tags)
	return character
}

// jsonbArg converts a raw JSON value into a driver argument, keeping NULL for
// absent configs.
func jsonbArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func mustTagJSON(tag string) string {
	raw, _ := json.Marshal([]string{tag})
	return string(raw)
}
