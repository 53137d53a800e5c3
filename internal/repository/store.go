// Package repository is the persistence gateway over PostgreSQL.
package repository

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store holds the DB pool and repositories.
type Store struct {
	db            *gorm.DB
	Users         *UserRepo
	Characters    *CharacterRepo
	Chats         *ChatRepo
	Messages      *MessageRepo
	Memories      *MemoryRepo
	Summaries     *MemorySummaryRepo
	Subscriptions *SubscriptionRepo
}

// NewStore initializes the PostgreSQL pool, runs migrations, and wires the
// repositories.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open gorm database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get sql db")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, goerr.Wrap(err, "failed to ping database")
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&userModel{},
		&userPreferencesModel{},
		&characterModel{},
		&chatModel{},
		&messageModel{},
		&memoryModel{},
		&memorySummaryModel{},
		&subscriptionModel{},
	); err != nil {
		_ = sqlDB.Close()
		return nil, goerr.Wrap(err, "failed to migrate schema")
	}

	return &Store{
		db:            db,
		Users:         NewUserRepo(db),
		Characters:    NewCharacterRepo(db),
		Chats:         NewChatRepo(db),
		Messages:      NewMessageRepo(db),
		Memories:      NewMemoryRepo(db),
		Summaries:     NewMemorySummaryRepo(db),
		Subscriptions: NewSubscriptionRepo(db),
	}, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}

// marshalJSON encodes a value into JSONB, returning nil for empty values.
func marshalJSON(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

// unmarshalJSON decodes JSONB into the provided target.
func unmarshalJSON(data json.RawMessage, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
