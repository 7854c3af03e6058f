package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/campuseats/ordering/internal/cart/application"
	"github.com/campuseats/ordering/internal/cart/domain"
)

// SessionHeader names the client's cart session. Every tab of one client
// sends the same value and therefore shares one durable slot.
const SessionHeader = "X-Cart-Session"

type Handler struct {
	log      *slog.Logger
	carts    *application.Manager
	validate *validator.Validate
}

func NewHandler(log *slog.Logger, carts *application.Manager) *Handler {
	return &Handler{
		log:      log,
		carts:    carts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.getCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.updateQuantity)
	r.Delete("/items/{productID}", h.removeItem)
	r.Delete("/", h.clear)
	return r
}

type addItemReq struct {
	ProductID string          `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url"`
}

type updateQuantityReq struct {
	Quantity int `json:"quantity"`
}

type cartView struct {
	Items     []domain.Line   `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) *application.Store {
	session := r.Header.Get(SessionHeader)
	if session == "" {
		writeError(w, http.StatusBadRequest, "missing "+SessionHeader+" header")
		return nil
	}
	store, err := h.carts.ForSession(r.Context(), session)
	if err != nil {
		h.log.Error("cart load failed", "session", session, "err", err)
		writeError(w, http.StatusInternalServerError, "cart unavailable")
		return nil
	}
	return store
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	store := h.store(w, r)
	if store == nil {
		return
	}
	writeCart(w, http.StatusOK, store)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	store := h.store(w, r)
	if store == nil {
		return
	}

	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	err := store.AddItem(domain.Line{
		ProductID: req.ProductID,
		Name:      req.Name,
		Price:     req.Price,
		ImageURL:  req.ImageURL,
	}, req.Quantity)
	if err != nil {
		h.mutationError(w, err)
		return
	}
	writeCart(w, http.StatusOK, store)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	store := h.store(w, r)
	if store == nil {
		return
	}

	var req updateQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := store.UpdateQuantity(chi.URLParam(r, "productID"), req.Quantity); err != nil {
		h.mutationError(w, err)
		return
	}
	writeCart(w, http.StatusOK, store)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	store := h.store(w, r)
	if store == nil {
		return
	}
	if err := store.RemoveItem(chi.URLParam(r, "productID")); err != nil {
		h.mutationError(w, err)
		return
	}
	writeCart(w, http.StatusOK, store)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	store := h.store(w, r)
	if store == nil {
		return
	}
	if err := store.Clear(); err != nil {
		h.mutationError(w, err)
		return
	}
	writeCart(w, http.StatusOK, store)
}

func (h *Handler) mutationError(w http.ResponseWriter, err error) {
	if errors.Is(err, application.ErrNotLoaded) {
		writeError(w, http.StatusConflict, "cart still loading, retry")
		return
	}
	h.log.Error("cart mutation failed", "err", err)
	writeError(w, http.StatusInternalServerError, "cart unavailable")
}

func writeCart(w http.ResponseWriter, code int, store *application.Store) {
	view := cartView{
		Items:     store.Lines(),
		ItemCount: store.ItemCount(),
		Subtotal:  store.Subtotal(),
		Tax:       store.Tax(),
		Total:     store.Total(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(view)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
