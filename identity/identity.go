// Package identity carries the authenticated caller through a request context.
package identity

import (
	"context"

	"github.com/fullmargin/factures/models"
)

// Identity is who is calling and in which role. It is taken verbatim from a
// validated bearer token.
type Identity struct {
	UserID uint
	Role   string
}

func (id Identity) IsSupplier() bool { return id.Role == models.RoleSupplier }

func (id Identity) IsMerchant() bool { return id.Role == models.RoleMerchant }

type contextKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by NewContext, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.UserID != 0
}
