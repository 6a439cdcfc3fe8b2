package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/foodcart/internal/domain"
	"github.com/fjod/foodcart/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"
)

const maxBodySize = 1 << 20 // 1MB

type CartHandler struct {
	sessions *session.Registry
	timeout  time.Duration
}

func NewCartHandler(sessions *session.Registry, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		timeout:  timeout,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(_ context.Context, cart *session.Cart) {
		respondJSON(w, http.StatusOK, cart.Page.Render())
	})
}

// GET /api/v1/cart/sidebar
func (h *CartHandler) GetSidebar(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(_ context.Context, cart *session.Cart) {
		respondJSON(w, http.StatusOK, cart.Sidebar.Render())
	})
}

// GET /api/v1/cart/summary
func (h *CartHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(_ context.Context, cart *session.Cart) {
		respondJSON(w, http.StatusOK, cart.Summary.Render())
	})
}

// GET /api/v1/cart/badge
func (h *CartHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(_ context.Context, cart *session.Cart) {
		respondJSON(w, http.StatusOK, cart.Badge.Render())
	})
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONObject(w, r)
	if !ok {
		return
	}
	in := domain.InputFrom(body)
	if in.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item", "id is required")
		return
	}

	h.withCart(w, r, func(ctx context.Context, cart *session.Cart) {
		cart.Store.Add(ctx, in)
		respondJSON(w, http.StatusCreated, cart.Page.Render())
	})
}

// PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	body, ok := readJSONObject(w, r)
	if !ok {
		return
	}
	qty, ok := domain.QuantityFrom(body.Get("quantity"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be a number")
		return
	}

	h.withCart(w, r, func(ctx context.Context, cart *session.Cart) {
		cart.Store.SetQuantity(ctx, id, qty)
		respondJSON(w, http.StatusOK, cart.Page.Render())
	})
}

// POST /api/v1/cart/items/{id}/increment
func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	h.withCart(w, r, func(ctx context.Context, cart *session.Cart) {
		cart.Page.Increase(ctx, id)
		respondJSON(w, http.StatusOK, cart.Page.Render())
	})
}

// POST /api/v1/cart/items/{id}/decrement
func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	h.withCart(w, r, func(ctx context.Context, cart *session.Cart) {
		cart.Page.Decrease(ctx, id)
		respondJSON(w, http.StatusOK, cart.Page.Render())
	})
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	h.withCart(w, r, func(ctx context.Context, cart *session.Cart) {
		cart.Page.Remove(ctx, id)
		respondJSON(w, http.StatusOK, cart.Page.Render())
	})
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(ctx context.Context, cart *session.Cart) {
		cart.Page.Clear(ctx)
		respondJSON(w, http.StatusOK, cart.Page.Render())
	})
}

// POST /api/v1/cart/panel/open
func (h *CartHandler) OpenPanel(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(_ context.Context, cart *session.Cart) {
		cart.Badge.Click()
		respondJSON(w, http.StatusOK, cart.Sidebar.Render())
	})
}

// POST /api/v1/cart/panel/close
func (h *CartHandler) ClosePanel(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(_ context.Context, cart *session.Cart) {
		cart.Sidebar.Dismiss()
		respondJSON(w, http.StatusOK, cart.Sidebar.Render())
	})
}

// PUT /api/v1/cart/panel
func (h *CartHandler) SetPanel(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONObject(w, r)
	if !ok {
		return
	}
	open := body.Get("open")
	if !open.IsBool() {
		respondError(w, http.StatusBadRequest, "invalid_request", "open must be a boolean")
		return
	}

	h.withCart(w, r, func(_ context.Context, cart *session.Cart) {
		cart.Store.SetPanelOpen(open.Bool())
		respondJSON(w, http.StatusOK, cart.Sidebar.Render())
	})
}

func (h *CartHandler) withCart(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, cart *session.Cart)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.sessions.Get(ctx, getSessionID(r.Context()))
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			respondError(w, http.StatusBadRequest, "invalid_session", "missing cart session")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	fn(ctx, cart)
}

func itemID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_item", "item id is required")
		return "", false
	}
	return id, true
}

// readJSONObject reads the request body as a JSON object. Field types are
// not checked here; callers coerce them.
func readJSONObject(w http.ResponseWriter, r *http.Request) (gjson.Result, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
		return gjson.Result{}, false
	}
	if !gjson.ValidBytes(raw) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return gjson.Result{}, false
	}
	body := gjson.ParseBytes(raw)
	if !body.IsObject() {
		respondError(w, http.StatusBadRequest, "invalid_request", "JSON body must be an object")
		return gjson.Result{}, false
	}
	return body, true
}
