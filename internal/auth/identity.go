package auth

import (
	"context"
	"errors"

	"connectrpc.com/connect"
)

// Identity is the authenticated caller.
type Identity struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
}

type identityKey struct{}

// WithIdentity attaches id to ctx. Interceptors call it after verification;
// tests call it directly.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller attached to ctx, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// UserID returns the caller's UID or "".
func UserID(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.UID
	}
	return ""
}

var (
	errNoIdentity = errors.New("request is not authenticated")
	errNotOwner   = errors.New("resource belongs to another user")
)

// RequireIdentity returns the caller or a CodeUnauthenticated error.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errNoIdentity)
	}
	return id, nil
}

// RequireOwner returns the caller if they own a resource recorded under
// ownerID, otherwise CodePermissionDenied.
func RequireOwner(ctx context.Context, ownerID string) (*Identity, error) {
	id, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if ownerID != id.UID {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotOwner)
	}
	return id, nil
}
