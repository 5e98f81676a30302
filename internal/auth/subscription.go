package auth

import (
	"context"
	"strings"
)

// Tier is the subscription level used for feature gating.
type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
)

// ParseTier maps a claim or header value onto a Tier. Anything unrecognised
// is free.
func ParseTier(s string) Tier {
	if Tier(strings.ToUpper(strings.TrimSpace(s))) == TierPro {
		return TierPro
	}
	return TierFree
}

// Status is the billing state reported alongside the tier.
type Status string

const (
	StatusUnspecified Status = ""
	StatusActive      Status = "ACTIVE"
	StatusTrialing    Status = "TRIALING"
	StatusPastDue     Status = "PAST_DUE"
	StatusCanceled    Status = "CANCELED"
)

func parseStatus(s string) Status {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled:
		return st
	}
	return StatusUnspecified
}

// SubscriptionInfo is the caller's plan as asserted by the identity provider.
type SubscriptionInfo struct {
	Tier   Tier
	Status Status
}

// Unlocked reports whether Pro features are available. A Pro tier that is
// past due or canceled does not unlock them.
func (s *SubscriptionInfo) Unlocked() bool {
	if s == nil || s.Tier != TierPro {
		return false
	}
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// Custom claim names written by the billing collaborator.
const (
	claimTier   = "subscription_tier"
	claimStatus = "subscription_status"
)

// SubscriptionFromClaims reads the billing custom claims of a verified token.
func SubscriptionFromClaims(claims map[string]interface{}) *SubscriptionInfo {
	tier, _ := claims[claimTier].(string)
	status, _ := claims[claimStatus].(string)
	return &SubscriptionInfo{Tier: ParseTier(tier), Status: parseStatus(status)}
}

type subscriptionKey struct{}

func WithSubscription(ctx context.Context, info *SubscriptionInfo) context.Context {
	return context.WithValue(ctx, subscriptionKey{}, info)
}

// SubscriptionFrom returns the subscription attached to ctx, or nil.
func SubscriptionFrom(ctx context.Context) *SubscriptionInfo {
	info, _ := ctx.Value(subscriptionKey{}).(*SubscriptionInfo)
	return info
}

// EffectiveTier is the tier features are gated on. Missing or lapsed
// subscriptions count as free.
func EffectiveTier(ctx context.Context) Tier {
	if SubscriptionFrom(ctx).Unlocked() {
		return TierPro
	}
	return TierFree
}
