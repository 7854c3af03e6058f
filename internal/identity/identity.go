// Package identity resolves the caller behind a request and carries it
// through the request context. Everything else about accounts (sign-up,
// password handling, sessions) lives outside this service.
package identity

import "context"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Elevated reports whether the role may advance order status and observe
// all orders.
func (r Role) Elevated() bool { return r == RoleAdmin }

type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

type ctxKey struct{}

func NewContext(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, ident)
}

// FromContext returns the resolved identity, if any. Absence means the
// request is anonymous; handlers decide whether that is a 401.
func FromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(Identity)
	return ident, ok
}
