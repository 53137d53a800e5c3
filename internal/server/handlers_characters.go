package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/repository"
	"github.com/amoralabs/amora/internal/types"
)

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	filters := repository.CharacterFilters{
		Archetype: r.URL.Query().Get("archetype"),
	}
	switch r.URL.Query().Get("isPremium") {
	case "true":
		v := true
		filters.IsPremium = &v
	case "false":
		v := false
		filters.IsPremium = &v
	}
	if tags := r.URL.Query().Get("tags"); tags != "" {
		filters.Tags = strings.Split(tags, ",")
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 20)

	result, err := s.characters.List(r.Context(), page, pageSize, filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	result, err := s.characters.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req types.Character
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed request body"))
		return
	}

	result, err := s.characters.Create(r.Context(), session(r).UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleUpdateCharacter(w http.ResponseWriter, r *http.Request) {
	var req types.Character
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed request body"))
		return
	}

	result, err := s.characters.Update(r.Context(), session(r).UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	if err := s.characters.Delete(r.Context(), session(r).UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
