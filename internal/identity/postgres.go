package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profiles reads the profiles collection. Rows are written by the account
// system; this service only ever reads them.
type Profiles struct {
	pool *pgxpool.Pool
}

func NewProfiles(pool *pgxpool.Pool) *Profiles {
	return &Profiles{pool: pool}
}

func (p *Profiles) Get(ctx context.Context, id string) (Identity, error) {
	var ident Identity
	var role string
	err := p.pool.QueryRow(ctx,
		`SELECT id, COALESCE(full_name, ''), role FROM profiles WHERE id=$1`, id).
		Scan(&ident.ID, &ident.DisplayName, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, ErrProfileNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("query profile: %w", err)
	}
	ident.Role = Role(role)
	return ident, nil
}
