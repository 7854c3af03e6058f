package application

import (
	"context"
	"time"

	"github.com/campuseats/ordering/internal/order/domain"
)

// Repository is the storage port for order headers and lines. Header and
// line writes are deliberately separate calls: checkout is a two-phase
// write with compensation, not one transaction (see Ingress.Checkout).
type Repository interface {
	InsertHeader(ctx context.Context, o domain.Order) error
	// InsertLines persists all lines plus the change event atomically, or
	// nothing at all.
	InsertLines(ctx context.Context, lines []domain.OrderLine, eventType string, payload []byte) error
	DeleteHeader(ctx context.Context, id string) error
	// UpdateStatus is a compare-and-set on (id, from). It returns
	// domain.ErrStatusConflict when from no longer matches, and writes the
	// change event in the same transaction as the update.
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, eventType string, payload []byte) error
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	// DeleteOrphans removes headers that have no lines and are older than
	// the grace period, returning how many were reaped.
	DeleteOrphans(ctx context.Context, olderThan time.Duration) (int64, error)
}
