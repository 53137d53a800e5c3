package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

type createChatRequest struct {
	CharacterID string              `json:"characterId"`
	Title       string              `json:"title,omitempty"`
	Scene       *types.SceneContext `json:"scene,omitempty"`
}

type sendMessageRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 20)

	result, err := s.chats.List(r.Context(), session(r).UserID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed request body"))
		return
	}
	if req.CharacterID == "" {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "character_id is required"))
		return
	}

	result, err := s.chats.Create(r.Context(), session(r).UserID, req.CharacterID, req.Title, req.Scene)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	result, err := s.chats.Get(r.Context(), session(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.chats.Delete(r.Context(), session(r).UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed request body"))
		return
	}
	if req.Content == "" {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "content is required"))
		return
	}

	message, err := s.chats.SendMessage(r.Context(), session(r).UserID, chi.URLParam(r, "id"), req.Content, req.ImageURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

// handleChatResponse is the blocking fallback for clients without a websocket
// connection.
func (s *Server) handleChatResponse(w http.ResponseWriter, r *http.Request) {
	message, err := s.chats.Respond(r.Context(), session(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message)
}
