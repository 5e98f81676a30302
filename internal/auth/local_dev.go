package auth

import (
	"context"

	"connectrpc.com/connect"
)

// LocalDevUserID owns all data when the server runs without Firebase.
const LocalDevUserID = "local-dev-user"

// LocalDevInterceptor authenticates every call as LocalDevUserID on tier.
// An identity set earlier in the chain wins.
func LocalDevInterceptor(tier Tier) connect.UnaryInterceptorFunc {
	dev := &Identity{
		UID:           LocalDevUserID,
		Email:         "dev@localhost",
		DisplayName:   "Local Dev User",
		EmailVerified: true,
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if _, ok := IdentityFrom(ctx); !ok {
				ctx = WithIdentity(ctx, dev)
				ctx = WithSubscription(ctx, &SubscriptionInfo{Tier: tier, Status: StatusActive})
			}
			return next(ctx, req)
		}
	}
}
