package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/keshavthakur30/SweetShop/internal/domain"
	"github.com/keshavthakur30/SweetShop/internal/filter"
	"github.com/keshavthakur30/SweetShop/internal/shop"
)

// ShopHandler exposes the shop service over JSON. It owns no state
// beyond the service reference; every bit of cart and snapshot state
// lives behind the service.
type ShopHandler struct {
	svc    *shop.Service
	logger *zap.Logger
}

func NewShopHandler(svc *shop.Service, logger *zap.Logger) *ShopHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopHandler{svc: svc, logger: logger}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type AddItemRequestDTO struct {
	SweetID int64 `json:"sweet_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SessionResponseDTO struct {
	SessionID string `json:"session_id"`
}

type CheckoutResponseDTO struct {
	Outcomes []domain.Outcome `json:"outcomes"`
	Cart     shop.CartView    `json:"cart"`
}

// OpenSession mints a session; sending a previous session id in the
// X-Session-ID header resumes that shopper's persisted cart.
func (h *ShopHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.svc.OpenSession(r.Context(), sessionIDFrom(r))
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, SessionResponseDTO{SessionID: sessionID})
}

func (h *ShopHandler) ListSweets(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	q := r.URL.Query()
	sweets, err := h.svc.Visible(
		sessionID,
		q.Get("query"),
		q.Get("category"),
		filter.PriceBracket(q.Get("bracket")),
	)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sweets)
}

func (h *ShopHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	if err := h.svc.Refresh(r.Context(), sessionID); err != nil {
		h.respondShopError(w, err)
		return
	}
	refreshedAt, err := h.svc.RefreshedAt(sessionID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]time.Time{"refreshed_at": refreshedAt})
}

func (h *ShopHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Cart(sessionIDFrom(r))
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *ShopHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.SweetID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_sweet_id", "sweet_id must be positive")
		return
	}

	sessionID := sessionIDFrom(r)
	if err := h.svc.AddToCart(r.Context(), sessionID, req.SweetID); err != nil {
		h.respondShopError(w, err)
		return
	}
	view, err := h.svc.Cart(sessionID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (h *ShopHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sweetID, err := sweetIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sweet_id", "sweet_id must be a positive integer")
		return
	}
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sessionID := sessionIDFrom(r)
	if err := h.svc.SetQuantity(r.Context(), sessionID, sweetID, req.Quantity); err != nil {
		h.respondShopError(w, err)
		return
	}
	view, err := h.svc.Cart(sessionID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *ShopHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sweetID, err := sweetIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sweet_id", "sweet_id must be a positive integer")
		return
	}

	sessionID := sessionIDFrom(r)
	if err := h.svc.RemoveFromCart(r.Context(), sessionID, sweetID); err != nil {
		h.respondShopError(w, err)
		return
	}
	view, err := h.svc.Cart(sessionID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *ShopHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	if err := h.svc.ClearCart(r.Context(), sessionID); err != nil {
		h.respondShopError(w, err)
		return
	}
	view, err := h.svc.Cart(sessionID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *ShopHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	outcomes, err := h.svc.Checkout(r.Context(), sessionID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	view, err := h.svc.Cart(sessionID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{Outcomes: outcomes, Cart: view})
}

func (h *ShopHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	sweetID, err := sweetIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sweet_id", "sweet_id must be a positive integer")
		return
	}

	outcome, err := h.svc.BuyNow(r.Context(), sessionIDFrom(r), sweetID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

func (h *ShopHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.History(r.Context(), sessionIDFrom(r))
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func sweetIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sweet_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid sweet id")
	}
	return id, nil
}

// respondShopError converts service and domain errors into the HTTP
// error shape; typed catalog failures never leak as raw transport
// errors.
func (h *ShopHandler) respondShopError(w http.ResponseWriter, err error) {
	var fetchErr *domain.FetchError
	switch {
	case errors.Is(err, shop.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "open a session first")
	case errors.Is(err, shop.ErrSweetNotFound):
		respondError(w, http.StatusNotFound, "sweet_not_found", "sweet is not in the catalog")
	case errors.As(err, &fetchErr):
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "catalog refresh failed, previous snapshot retained")
	default:
		h.logger.Error("unhandled shop error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
