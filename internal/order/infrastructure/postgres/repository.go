package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuseats/ordering/internal/order/domain"
	"github.com/campuseats/ordering/pkg/tracing"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) InsertHeader(ctx context.Context, o domain.Order) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, total, status, notes, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, $4, NULLIF($5,''), $6, $7)`,
		o.ID, o.UserID, o.Total, string(o.Status), o.Notes, o.CreatedAt, o.UpdatedAt)
	return err
}

// InsertLines writes every line and the change event in one transaction:
// either the order becomes fully visible, signal included, or nothing of
// phase two lands.
func (r *Repository) InsertLines(ctx context.Context, lines []domain.OrderLine, eventType string, payload []byte) error {
	if len(lines) == 0 {
		return errors.New("no lines to insert")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ID, l.OrderID, l.ProductID, l.Quantity, l.UnitPrice, l.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	if err := insertOutbox(ctx, tx, lines[0].OrderID, eventType, payload, tracing.Traceparent(ctx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) DeleteHeader(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}

// UpdateStatus is a compare-and-set: the row is only written while its
// status still equals from. Zero rows affected means either the order is
// gone or another actor won the race.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, eventType string, payload []byte) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`,
		id, string(from), string(to))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrStatusConflict
	}

	if err := insertOutbox(ctx, tx, id, eventType, payload, tracing.Traceparent(ctx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, COALESCE(o.user_id::text, ''), COALESCE(p.full_name, ''),
		       o.total, o.status, COALESCE(o.notes, ''), o.created_at, o.updated_at
		FROM orders o
		LEFT JOIN profiles p ON p.id = o.user_id
		WHERE o.id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.CustomerName, &o.Total, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order: %w", err)
	}

	lines, err := r.linesFor(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	o.Lines = lines
	return o, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	return r.list(ctx, `WHERE o.user_id=$1`, ownerID)
}

func (r *Repository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, ``)
}

func (r *Repository) list(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, COALESCE(o.user_id::text, ''), COALESCE(p.full_name, ''),
		       o.total, o.status, COALESCE(o.notes, ''), o.created_at, o.updated_at
		FROM orders o
		LEFT JOIN profiles p ON p.id = o.user_id
		`+where+`
		ORDER BY o.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CustomerName, &o.Total, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		lines, err := r.linesFor(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

func (r *Repository) linesFor(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, COALESCE(pr.name, ''),
		       i.quantity, i.unit_price, i.created_at
		FROM order_items i
		LEFT JOIN products pr ON pr.id = i.product_id
		WHERE i.order_id=$1
		ORDER BY i.created_at, i.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// DeleteOrphans reaps zero-line headers older than the grace period. An
// orphan can only exist when checkout compensation itself failed.
func (r *Repository) DeleteOrphans(ctx context.Context, olderThan time.Duration) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM orders o
		WHERE o.created_at < now() - make_interval(secs => $1)
		  AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id)`,
		olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateID, eventType string, payload []byte, traceparent string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ('order', $1, $2, $3, NULLIF($4,''), 'pending')`,
		aggregateID, eventType, payload, traceparent)
	return err
}
