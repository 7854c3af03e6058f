package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	cartapp "github.com/campuseats/ordering/internal/cart/application"
	carthttp "github.com/campuseats/ordering/internal/cart/infrastructure/http"
	"github.com/campuseats/ordering/internal/identity"
	"github.com/campuseats/ordering/internal/order/application"
	"github.com/campuseats/ordering/internal/order/domain"
	"github.com/campuseats/ordering/internal/realtime"
)

type Handler struct {
	log      *slog.Logger
	ingress  *application.Ingress
	engine   *application.StatusEngine
	bridge   *realtime.Bridge
	carts    *cartapp.Manager // optional; clears the session cart after checkout
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, ingress *application.Ingress, engine *application.StatusEngine, bridge *realtime.Bridge, carts *cartapp.Manager) *Handler {
	return &Handler{
		log:      log,
		ingress:  ingress,
		engine:   engine,
		bridge:   bridge,
		carts:    carts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tracer:   otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/stream", h.streamOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
	return r
}

type createOrderReq struct {
	Items []domain.CheckoutItem `json:"items"`
	Total decimal.Decimal       `json:"total"`
	Notes string                `json:"notes"`
}

type updateStatusReq struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	ident := identityOrNil(ctx)
	order, err := h.ingress.Checkout(ctx, ident, req.Items, req.Total, req.Notes)
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	// The order is durable; the client's cart snapshot has been consumed.
	if session := r.Header.Get(carthttp.SessionHeader); session != "" && h.carts != nil {
		h.clearSessionCart(r, session)
	}

	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (h *Handler) clearSessionCart(r *http.Request, session string) {
	store, err := h.carts.ForSession(r.Context(), session)
	if err == nil {
		err = store.Clear()
	}
	if err == nil {
		err = store.Flush(r.Context())
	}
	if err != nil {
		h.log.Warn("cart clear after checkout failed", "session", session, "err", err)
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.ingress.OrdersFor(ctx, identityOrNil(ctx))
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	order, err := h.ingress.Order(ctx, identityOrNil(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	order, err := h.engine.Transition(ctx, identityOrNil(ctx), chi.URLParam(r, "id"), status)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

// streamOrders pushes a refresh cue per observed change, scoped to the
// caller: operators see every order, customers only their own. The cue
// carries no payload; the client re-fetches the collection.
func (h *Handler) streamOrders(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var cues <-chan struct{}
	var cancel func()
	if ident.Role.Elevated() {
		cues, cancel = h.bridge.SubscribeAll()
	} else {
		cues, cancel = h.bridge.SubscribeOwner(ident.ID)
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-cues:
			if !open {
				return
			}
			_, _ = w.Write([]byte("event: refresh\ndata: orders\n\n"))
			flusher.Flush()
		}
	}
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Reason)
	case errors.Is(err, application.ErrAuthRequired):
		writeError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, application.ErrCompensationFailed):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":               "Failed to create order",
			"compensation_failed": true,
		})
	default:
		var pErr *application.PersistError
		if errors.As(err, &pErr) {
			h.log.Error("checkout persistence failed", "phase", pErr.Phase, "err", pErr.Err)
		} else {
			h.log.Error("checkout failed", "err", err)
		}
		writeError(w, http.StatusInternalServerError, "Failed to create order")
	}
}

func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrAuthRequired):
		writeError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, application.ErrForbidden):
		writeError(w, http.StatusForbidden, "Admin access required")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrStatusConflict):
		writeError(w, http.StatusConflict, "Order was updated concurrently, re-fetch and retry")
	default:
		h.log.Error("order request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func identityOrNil(ctx context.Context) *identity.Identity {
	if ident, ok := identity.FromContext(ctx); ok {
		return &ident
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
