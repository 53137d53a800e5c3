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

// userModel maps to the users table. Password stays inside the repository.
type userModel struct {
	ID            string `gorm:"primaryKey"`
	Email         string `gorm:"uniqueIndex"`
	Password      string
	Name          string
	Avatar        string
	Language      string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (userModel) TableName() string {
	return "users"
}

type userPreferencesModel struct {
	UserID          string `gorm:"primaryKey"`
	PreferredThemes json.RawMessage `gorm:"type:jsonb"`
	SweetnessLevel  string
	ContentMaturity string
	Notifications   json.RawMessage `gorm:"type:jsonb"`
	UpdatedAt       time.Time
}

func (userPreferencesModel) TableName() string {
	return "user_preferences"
}

// UserRepo accesses user accounts and preferences.
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo returns a UserRepo.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user plus a default preferences row. passwordHash may be
// empty for OAuth-created accounts.
func (r *UserRepo) Create(ctx context.Context, user types.User, passwordHash string) (*types.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Language == "" {
		user.Language = "en"
	}
	record := userModel{
		ID:            user.ID,
		Email:         user.Email,
		Password:      passwordHash,
		Name:          user.Name,
		Avatar:        user.Avatar,
		Language:      user.Language,
		EmailVerified: user.EmailVerified,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to insert user", goerr.V("email", user.Email))
	}

	prefs := userPreferencesModel{
		UserID:          record.ID,
		SweetnessLevel:  "sweet",
		ContentMaturity: "safe",
	}
	if err := r.db.WithContext(ctx).Create(&prefs).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to insert default preferences", goerr.V("user_id", record.ID))
	}

	result := userFromModel(record)
	return &result, nil
}

// GetByID loads a user with preferences attached.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*types.User, error) {
	var record userModel
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(apperr.ErrUserNotFound, "no such user", goerr.V("user_id", id))
		}
		return nil, goerr.Wrap(err, "failed to query user", goerr.V("user_id", id))
	}
	user := userFromModel(record)
	if prefs, err := r.getPreferences(ctx, record.ID); err == nil {
		user.Preferences = prefs
	}
	return &user, nil
}

// GetByEmail loads a user by email, without preferences.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	var record userModel
	if err := r.db.WithContext(ctx).First(&record, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(apperr.ErrUserNotFound, "no such user", goerr.V("email", email))
		}
		return nil, goerr.Wrap(err, "failed to query user", goerr.V("email", email))
	}
	user := userFromModel(record)
	return &user, nil
}

// GetCredentials returns a user together with the stored password hash.
func (r *UserRepo) GetCredentials(ctx context.Context, email string) (*types.User, string, error) {
	var record userModel
	if err := r.db.WithContext(ctx).First(&record, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", goerr.Wrap(apperr.ErrUserNotFound, "no such user", goerr.V("email", email))
		}
		return nil, "", goerr.Wrap(err, "failed to query user", goerr.V("email", email))
	}
	user := userFromModel(record)
	return &user, record.Password, nil
}

// UpdatePreferences overwrites the fields present in prefs.
func (r *UserRepo) UpdatePreferences(ctx context.Context, userID string, prefs types.UserPreferences) (*types.UserPreferences, error) {
	themes, err := marshalJSON(prefs.PreferredThemes)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode preferred themes")
	}
	notifications, err := marshalJSON(prefs.Notifications)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode notification settings")
	}

	updates := map[string]any{
		"sweetness_level":  prefs.SweetnessLevel,
		"content_maturity": prefs.ContentMaturity,
	}
	if themes != nil {
		updates["preferred_themes"] = string(themes)
	}
	if notifications != nil {
		updates["notifications"] = string(notifications)
	}

	result := r.db.WithContext(ctx).Model(&userPreferencesModel{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if result.Error != nil {
		return nil, goerr.Wrap(result.Error, "failed to update preferences", goerr.V("user_id", userID))
	}
	if result.RowsAffected == 0 {
		record := userPreferencesModel{
			UserID:          userID,
			PreferredThemes: themes,
			SweetnessLevel:  prefs.SweetnessLevel,
			ContentMaturity: prefs.ContentMaturity,
			Notifications:   notifications,
		}
		if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, goerr.Wrap(err, "failed to insert preferences", goerr.V("user_id", userID))
		}
	}
	return r.getPreferences(ctx, userID)
}

func (r *UserRepo) getPreferences(ctx context.Context, userID string) (*types.UserPreferences, error) {
	var record userPreferencesModel
	if err := r.db.WithContext(ctx).First(&record, "user_id = ?", userID).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to query preferences", goerr.V("user_id", userID))
	}
	prefs := types.UserPreferences{
		UserID:          record.UserID,
		SweetnessLevel:  record.SweetnessLevel,
		ContentMaturity: record.ContentMaturity,
	}
	_ = unmarshalJSON(record.PreferredThemes, &prefs.PreferredThemes)
	_ = unmarshalJSON(record.Notifications, &prefs.Notifications)
	return &prefs, nil
}

func userFromModel(model userModel) types.User {
	return types.User{
		ID:            model.ID,
		Email:         model.Email,
		Name:          model.Name,
		Avatar:        model.Avatar,
		Language:      model.Language,
		EmailVerified: model.EmailVerified,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}
