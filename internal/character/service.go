// Package character manages the persona catalog.
package character

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/repository"
	"github.com/amoralabs/amora/internal/types"
)

// Service wraps catalog access with ownership rules.
type Service struct {
	characters *repository.CharacterRepo
}

// NewService returns a character Service.
func NewService(characters *repository.CharacterRepo) *Service {
	return &Service{characters: characters}
}

// List returns the public catalog page.
func (s *Service) List(ctx context.Context, page, pageSize int, filters repository.CharacterFilters) (*types.PaginatedResponse[types.Character], error) {
	items, total, err := s.characters.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, err
	}
	return &types.PaginatedResponse[types.Character]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  int64(page*pageSize) < total,
	}, nil
}

// Get returns one character by id.
func (s *Service) Get(ctx context.Context, id string) (*types.Character, error) {
	return s.characters.GetByID(ctx, id)
}

// Create adds a user-authored character. New characters start private.
func (s *Service) Create(ctx context.Context, userID string, character types.Character) (*types.Character, error) {
	if character.Name == "" {
		return nil, goerr.Wrap(apperr.ErrValidation, "character name is required")
	}
	character.CreatorID = userID
	character.IsPublic = false
	return s.characters.Create(ctx, character)
}

// Update overwrites a character. Only the creator may update it.
func (s *Service) Update(ctx context.Context, userID, id string, character types.Character) (*types.Character, error) {
	existing, err := s.characters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.CreatorID != userID {
		return nil, goerr.Wrap(apperr.ErrAccessDenied, "character belongs to another creator",
			goerr.V("character_id", id))
	}
	character.ID = id
	character.CreatorID = existing.CreatorID
	return s.characters.Update(ctx, character)
}

// Delete removes a character. Only the creator may delete it.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.characters.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.CreatorID != userID {
		return goerr.Wrap(apperr.ErrAccessDenied, "character belongs to another creator",
			goerr.V("character_id", id))
	}
	return s.characters.Delete(ctx, id)
}
