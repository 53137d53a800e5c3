package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amoralabs/amora/internal/types"
)

func (s *Server) handleMemorySummary(w http.ResponseWriter, r *http.Request) {
	characterID := r.URL.Query().Get("characterId")

	summary, err := s.memories.GetSummary(r.Context(), session(r).UserID, characterID)
	if err != nil {
		writeError(w, err)
		return
	}
	if summary == nil {
		writeJSON(w, http.StatusOK, map[string]any{"summary": nil})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRelevantMemories(w http.ResponseWriter, r *http.Request) {
	characterID := r.URL.Query().Get("characterId")
	limit := queryInt(r, "limit", types.DefaultMemoryLimit)

	memories, err := s.memories.GetRelevant(r.Context(), session(r).UserID, characterID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if memories == nil {
		memories = []types.Memory{}
	}
	writeJSON(w, http.StatusOK, memories)
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.memories.DeleteMemory(r.Context(), session(r).UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
