package service

import (
	"context"

	"github.com/castlemilk/pfinance/insights/internal/auth"
)

// testContextWithUser returns a context for an authenticated free-tier user.
func testContextWithUser(userID string) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{
		UID:   userID,
		Email: userID + "@test.local",
	})
}

// testContextWithTier returns a context for an authenticated user on tier.
func testContextWithTier(userID string, tier auth.Tier) context.Context {
	ctx := testContextWithUser(userID)
	return auth.WithSubscription(ctx, &auth.SubscriptionInfo{
		Tier:   tier,
		Status: auth.StatusActive,
	})
}
