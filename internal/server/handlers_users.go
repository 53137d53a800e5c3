package server

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req types.UserPreferences
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed request body"))
		return
	}

	prefs, err := s.users.UpdatePreferences(r.Context(), session(r).UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
