package auth

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
)

// Debug headers honoured by DebugInterceptor.
const (
	HeaderImpersonateUser = "X-Debug-Impersonate-User"
	HeaderTier            = "X-Debug-Tier"
)

// NewAuthInterceptor verifies the bearer token on every call and attaches
// the caller and their subscription. Calls already carrying an identity
// (debug impersonation) are passed through.
func NewAuthInterceptor(verifier TokenVerifier) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if _, ok := IdentityFrom(ctx); ok {
				return next(ctx, req)
			}

			token, err := bearerToken(req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			id, sub, err := verifier.Verify(ctx, token)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			ctx = WithIdentity(ctx, id)
			ctx = WithSubscription(ctx, sub)
			return next(ctx, req)
		}
	}
}

// DebugInterceptor lets a developer act as any user and tier through request
// headers. It does nothing unless enabled; never enable it in production.
func DebugInterceptor(enabled bool) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !enabled {
				return next(ctx, req)
			}
			user := strings.TrimSpace(req.Header().Get(HeaderImpersonateUser))
			if user == "" {
				return next(ctx, req)
			}
			ctx = WithIdentity(ctx, &Identity{UID: user, Email: user + "@debug.local"})
			ctx = WithSubscription(ctx, &SubscriptionInfo{
				Tier:   ParseTier(req.Header().Get(HeaderTier)),
				Status: StatusActive,
			})
			return next(ctx, req)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", errors.New("authorization header must be a bearer token")
	}
	return token, nil
}
