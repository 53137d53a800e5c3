package server

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

type createSubscriptionRequest struct {
	Tier string `json:"tier"`
}

type cancelSubscriptionRequest struct {
	CancelAtPeriodEnd *bool `json:"cancelAtPeriodEnd,omitempty"`
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	subscription, err := s.subscriptions.GetUserSubscription(r.Context(), session(r).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if subscription == nil {
		writeJSON(w, http.StatusOK, map[string]any{"subscription": nil, "tier": types.TierFree})
		return
	}
	writeJSON(w, http.StatusOK, subscription)
}

func (s *Server) handleGetLimits(w http.ResponseWriter, r *http.Request) {
	limits, err := s.subscriptions.GetLimits(r.Context(), session(r).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed request body"))
		return
	}
	if _, ok := types.SubscriptionLimitsByTier[req.Tier]; !ok {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "unknown tier", goerr.V("tier", req.Tier)))
		return
	}

	subscription, err := s.subscriptions.Create(r.Context(), session(r).UserID, req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subscription)
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	var req cancelSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, goerr.Wrap(apperr.ErrValidation, "malformed request body"))
		return
	}
	cancelAtPeriodEnd := true
	if req.CancelAtPeriodEnd != nil {
		cancelAtPeriodEnd = *req.CancelAtPeriodEnd
	}

	subscription, err := s.subscriptions.Cancel(r.Context(), session(r).UserID, cancelAtPeriodEnd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subscription)
}
