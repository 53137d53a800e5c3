package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *types.User `json:"user"`
	Token string      `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed request body"))
		return
	}
	if req.Email == "" || len(req.Password) < 8 {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "email and a password of at least 8 characters are required"))
		return
	}

	user, token, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed request body"))
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (s *Server) handleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	url, err := s.auth.AuthURL(uuid.NewString())
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "missing authorization code"))
		return
	}

	user, token, err := s.auth.OAuthLogin(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (s *Server) handleAppleRedirect(w http.ResponseWriter, r *http.Request) {
	url, err := s.auth.AppleAuthURL(uuid.NewString())
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// appleUserPayload is the one-time profile Apple posts alongside the first
// authorization.
type appleUserPayload struct {
	Name struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"name"`
}

// handleAppleCallback receives Apple's form_post redirect. The code arrives
// as a form field, and on the first authorization a "user" field carries the
// profile JSON.
func (s *Server) handleAppleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed callback form"))
		return
	}
	code := r.PostFormValue("code")
	if code == "" {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "missing authorization code"))
		return
	}

	var name string
	if raw := r.PostFormValue("user"); raw != "" {
		var profile appleUserPayload
		if err := json.Unmarshal([]byte(raw), &profile); err == nil {
			name = strings.TrimSpace(profile.Name.FirstName + " " + profile.Name.LastName)
		}
	}

	user, token, err := s.auth.AppleLogin(r.Context(), code, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.CurrentUser(r.Context(), session(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
