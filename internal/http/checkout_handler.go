package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/foodcart/internal/checkout"
	"github.com/fjod/foodcart/internal/session"
)

type CheckoutHandler struct {
	sessions *session.Registry
	handoff  *checkout.Handoff
	timeout  time.Duration
}

func NewCheckoutHandler(sessions *session.Registry, handoff *checkout.Handoff, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		handoff:  handoff,
		timeout:  timeout,
	}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserID(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	sessionID := getSessionID(r.Context())
	cart, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_session", "missing cart session")
		return
	}

	snap, err := h.handoff.Begin(ctx, userID, sessionID, cart.Store.Snapshot())
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, snap)
	case errors.Is(err, checkout.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	default:
		respondError(w, http.StatusBadGateway, "checkout_unavailable", "checkout could not be started")
	}
}
