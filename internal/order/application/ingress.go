package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/campuseats/ordering/internal/identity"
	"github.com/campuseats/ordering/internal/order/domain"
)

// Ingress turns a validated checkout request into a persisted order.
type Ingress struct {
	log  *slog.Logger
	repo Repository
}

func NewIngress(log *slog.Logger, repo Repository) *Ingress {
	return &Ingress{log: log, repo: repo}
}

// Checkout validates the request and persists header plus lines.
//
// The backing store has no multi-row transaction spanning both phases, so
// this is a two-phase write: insert the header, then insert every line.
// A line-insert failure compensates by deleting the header. A caller that
// sees success is guaranteed header and lines are consistent; a caller
// that sees a line failure is guaranteed no header survives, unless the
// compensation itself failed, which is reported as ErrCompensationFailed.
//
// The change event rides the line-insert phase, never the header insert,
// so a signal can never fire for a header that compensation may remove.
func (s *Ingress) Checkout(ctx context.Context, ident *identity.Identity, items []domain.CheckoutItem, total decimal.Decimal, notes string) (domain.Order, error) {
	if ident == nil {
		return domain.Order{}, ErrAuthRequired
	}
	if err := domain.ValidateCheckout(items, total); err != nil {
		return domain.Order{}, err
	}

	o := domain.NewOrder(ident.ID, total, notes)
	o.CustomerName = ident.DisplayName

	if err := s.repo.InsertHeader(ctx, o); err != nil {
		return domain.Order{}, &PersistError{Phase: "header", Err: err}
	}

	lines := domain.NewOrderLines(o.ID, items)
	payload, err := json.Marshal(domain.OrderChanged{OrderID: o.ID, OwnerID: o.UserID, Op: "insert"})
	if err != nil {
		payload = nil
	}

	if err := s.repo.InsertLines(ctx, lines, domain.EventOrderChanged, payload); err != nil {
		if compErr := s.repo.DeleteHeader(ctx, o.ID); compErr != nil {
			s.log.Error("order compensation failed", "order_id", o.ID,
				"line_err", err, "comp_err", compErr)
			return domain.Order{}, fmt.Errorf("%w: %v (after: %v)", ErrCompensationFailed, compErr, err)
		}
		s.log.Warn("order lines rejected, header compensated", "order_id", o.ID, "err", err)
		return domain.Order{}, &PersistError{Phase: "lines", Err: err}
	}

	o.Lines = lines
	s.log.Info("order created", "order_id", o.ID, "user_id", o.UserID,
		"total", o.Total.String(), "lines", len(lines))
	return o, nil
}

// OrdersFor returns the collection the caller is allowed to see: every
// order for an elevated role, only their own otherwise.
func (s *Ingress) OrdersFor(ctx context.Context, ident *identity.Identity) ([]domain.Order, error) {
	if ident == nil {
		return nil, ErrAuthRequired
	}
	if ident.Role.Elevated() {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListByOwner(ctx, ident.ID)
}

// Order fetches one order, enforcing the same read scope as OrdersFor.
func (s *Ingress) Order(ctx context.Context, ident *identity.Identity, id string) (domain.Order, error) {
	if ident == nil {
		return domain.Order{}, ErrAuthRequired
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !ident.Role.Elevated() && o.UserID != ident.ID {
		return domain.Order{}, ErrForbidden
	}
	return o, nil
}
