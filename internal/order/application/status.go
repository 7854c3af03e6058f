package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/campuseats/ordering/internal/identity"
	"github.com/campuseats/ordering/internal/order/domain"
)

// StatusEngine applies the order status state machine. Transitions only
// ever move forward through the legal graph; anything else is rejected
// without touching the order.
type StatusEngine struct {
	log  *slog.Logger
	repo Repository
}

func NewStatusEngine(log *slog.Logger, repo Repository) *StatusEngine {
	return &StatusEngine{log: log, repo: repo}
}

// Transition moves one order to the target status. Only elevated-role
// actors may call it. The write is a compare-and-set on the status read
// here; a concurrent transition makes this one fail with
// domain.ErrStatusConflict rather than silently overwriting.
func (e *StatusEngine) Transition(ctx context.Context, ident *identity.Identity, orderID string, to domain.Status) (domain.Order, error) {
	if ident == nil {
		return domain.Order{}, ErrAuthRequired
	}
	if !ident.Role.Elevated() {
		return domain.Order{}, ErrForbidden
	}

	cur, err := e.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !cur.Status.CanTransitionTo(to) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, cur.Status, to)
	}

	payload, _ := json.Marshal(domain.OrderChanged{OrderID: orderID, OwnerID: cur.UserID, Op: "update"})
	if err := e.repo.UpdateStatus(ctx, orderID, cur.Status, to, domain.EventOrderChanged, payload); err != nil {
		return domain.Order{}, err
	}

	e.log.Info("order status advanced", "order_id", orderID,
		"from", cur.Status, "to", to, "actor", ident.ID)
	return e.repo.Get(ctx, orderID)
}
