package auth

import (
	"context"
	"strings"
)

type ownerContextKey struct{}

// ContextWithOwner stores the authenticated owner in the context.
func ContextWithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, strings.TrimSpace(owner))
}

// OwnerFromContext extracts the authenticated owner from the context.
func OwnerFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(ownerContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
