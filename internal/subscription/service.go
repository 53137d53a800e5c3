// Package subscription resolves billing tiers into feature access and
// per-day usage limits.
package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

// Store is the persistence surface for billing records.
type Store interface {
	FindActive(ctx context.Context, userID string) (*types.Subscription, error)
	CancelActive(ctx context.Context, userID string) error
	Create(ctx context.Context, subscription types.Subscription) (*types.Subscription, error)
	Update(ctx context.Context, subscription types.Subscription) (*types.Subscription, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// Service answers tier and entitlement questions.
type Service struct {
	store Store
}

// NewService returns a subscription Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetUserSubscription returns the newest active or trial subscription, or nil
// when the user has none.
func (s *Service) GetUserSubscription(ctx context.Context, userID string) (*types.Subscription, error) {
	subscription, err := s.store.FindActive(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNoSubscription) {
			return nil, nil
		}
		return nil, err
	}
	return subscription, nil
}

// GetLimits resolves the user's effective limits. Users without a
// subscription fall back to the free tier.
func (s *Service) GetLimits(ctx context.Context, userID string) (types.SubscriptionLimits, error) {
	subscription, err := s.GetUserSubscription(ctx, userID)
	if err != nil {
		return types.SubscriptionLimits{}, err
	}
	tier := types.TierFree
	if subscription != nil {
		tier = subscription.Tier
	}
	limits, ok := types.SubscriptionLimitsByTier[tier]
	if !ok {
		limits = types.SubscriptionLimitsByTier[types.TierFree]
	}
	return limits, nil
}

// HasPremiumAccess reports whether the user holds a paid tier in active
// status. Trials do not count.
func (s *Service) HasPremiumAccess(ctx context.Context, userID string) (bool, error) {
	subscription, err := s.GetUserSubscription(ctx, userID)
	if err != nil {
		return false, err
	}
	if subscription == nil {
		return false, nil
	}
	return subscription.Tier != types.TierFree && subscription.Status == types.SubscriptionActive, nil
}

// Create cancels any existing active/trial rows and opens a new subscription.
// Free-tier subscriptions start active; paid tiers start as trials.
func (s *Service) Create(ctx context.Context, userID, tier string) (*types.Subscription, error) {
	if err := s.store.CancelActive(ctx, userID); err != nil {
		return nil, err
	}
	status := types.SubscriptionTrial
	if tier == types.TierFree {
		status = types.SubscriptionActive
	}
	return s.store.Create(ctx, types.Subscription{
		UserID:    userID,
		Tier:      tier,
		Status:    status,
		StartDate: time.Now(),
		EndDate:   periodEnd(tier),
	})
}

// Cancel ends the user's subscription. With cancelAtPeriodEnd the row stays
// active until its end date; otherwise it is cancelled immediately.
func (s *Service) Cancel(ctx context.Context, userID string, cancelAtPeriodEnd bool) (*types.Subscription, error) {
	subscription, err := s.store.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	subscription.CancelAtPeriodEnd = cancelAtPeriodEnd
	if cancelAtPeriodEnd {
		subscription.Status = types.SubscriptionActive
	} else {
		subscription.Status = types.SubscriptionCancelled
	}
	return s.store.Update(ctx, *subscription)
}

// ExpireDue flips subscriptions past their end date to expired. Run daily.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	return s.store.ExpireDue(ctx, time.Now())
}

func periodEnd(tier string) *time.Time {
	var d time.Duration
	switch tier {
	case types.TierPremiumWeekly:
		d = 7 * 24 * time.Hour
	case types.TierPremiumMonthly:
		d = 30 * 24 * time.Hour
	case types.TierPremiumAnnual:
		d = 365 * 24 * time.Hour
	default:
		return nil
	}
	end := time.Now().Add(d)
	return &end
}
