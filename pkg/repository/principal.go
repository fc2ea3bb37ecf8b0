package repository

import "context"

// Anonymous is the principal name used when a context carries none.
const Anonymous = "anonymous"

// Principal identifies the caller of a repository operation.
type Principal struct {
	Name     string
	ReadOnly bool
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal carried by ctx, or the anonymous
// read-write principal.
func PrincipalFromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok && p.Name != "" {
		return p
	}
	return Principal{Name: Anonymous}
}
