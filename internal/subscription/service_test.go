package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

type fakeSubscriptionStore struct {
	active    *types.Subscription
	cancelled int
	created   []types.Subscription
	updated   *types.Subscription
}

func (s *fakeSubscriptionStore) FindActive(ctx context.Context, userID string) (*types.Subscription, error) {
	if s.active == nil {
		return nil, apperr.ErrNoSubscription
	}
	return s.active, nil
}

func (s *fakeSubscriptionStore) CancelActive(ctx context.Context, userID string) error {
	s.cancelled++
	return nil
}

func (s *fakeSubscriptionStore) Create(ctx context.Context, subscription types.Subscription) (*types.Subscription, error) {
	subscription.ID = "sub-1"
	s.created = append(s.created, subscription)
	return &subscription, nil
}

func (s *fakeSubscriptionStore) Update(ctx context.Context, subscription types.Subscription) (*types.Subscription, error) {
	s.updated = &subscription
	return &subscription, nil
}

func (s *fakeSubscriptionStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	return 2, nil
}

func TestGetLimitsWithoutSubscriptionFallsBackToFree(t *testing.T) {
	service := NewService(&fakeSubscriptionStore{})

	limits, err := service.GetLimits(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if limits.Tier != types.TierFree {
		t.Errorf("expected free tier, got %s", limits.Tier)
	}
	if limits.MessagesPerDay != 50 {
		t.Errorf("expected 50 messages/day, got %d", limits.MessagesPerDay)
	}
}

func TestGetLimitsPremium(t *testing.T) {
	store := &fakeSubscriptionStore{active: &types.Subscription{
		Tier: types.TierPremiumMonthly, Status: types.SubscriptionActive,
	}}
	service := NewService(store)

	limits, err := service.GetLimits(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if limits.MessagesPerDay != types.Unlimited {
		t.Errorf("expected unlimited messages, got %d", limits.MessagesPerDay)
	}
	if !limits.Features.PremiumCharacters {
		t.Error("expected premium character access")
	}
}

func TestHasPremiumAccess(t *testing.T) {
	for _, tc := range []struct {
		name   string
		active *types.Subscription
		want   bool
	}{
		{"no subscription", nil, false},
		{"free tier", &types.Subscription{Tier: types.TierFree, Status: types.SubscriptionActive}, false},
		{"paid trial", &types.Subscription{Tier: types.TierPremiumMonthly, Status: types.SubscriptionTrial}, false},
		{"paid active", &types.Subscription{Tier: types.TierPremiumAnnual, Status: types.SubscriptionActive}, true},
	} {
		service := NewService(&fakeSubscriptionStore{active: tc.active})
		got, err := service.HasPremiumAccess(context.Background(), "u1")
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCreateCancelsExistingAndSetsStatus(t *testing.T) {
	store := &fakeSubscriptionStore{}
	service := NewService(store)

	created, err := service.Create(context.Background(), "u1", types.TierPremiumWeekly)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if store.cancelled != 1 {
		t.Errorf("expected prior subscriptions cancelled, got %d calls", store.cancelled)
	}
	if created.Status != types.SubscriptionTrial {
		t.Errorf("expected paid tier to start as trial, got %s", created.Status)
	}
	if created.EndDate == nil {
		t.Fatal("expected end date for weekly tier")
	}
	until := time.Until(*created.EndDate)
	if until < 6*24*time.Hour || until > 8*24*time.Hour {
		t.Errorf("unexpected weekly period end: %v", until)
	}
}

func TestCreateFreeTierStartsActive(t *testing.T) {
	store := &fakeSubscriptionStore{}
	service := NewService(store)

	created, err := service.Create(context.Background(), "u1", types.TierFree)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.Status != types.SubscriptionActive {
		t.Errorf("expected free tier active, got %s", created.Status)
	}
	if created.EndDate != nil {
		t.Errorf("expected no end date for free tier, got %v", created.EndDate)
	}
}

func TestCancelAtPeriodEndKeepsActive(t *testing.T) {
	store := &fakeSubscriptionStore{active: &types.Subscription{
		ID: "sub-1", Tier: types.TierPremiumMonthly, Status: types.SubscriptionActive,
	}}
	service := NewService(store)

	updated, err := service.Cancel(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Status != types.SubscriptionActive || !updated.CancelAtPeriodEnd {
		t.Errorf("expected active with cancel flag, got %+v", updated)
	}
}

func TestCancelImmediate(t *testing.T) {
	store := &fakeSubscriptionStore{active: &types.Subscription{
		ID: "sub-1", Tier: types.TierPremiumMonthly, Status: types.SubscriptionActive,
	}}
	service := NewService(store)

	updated, err := service.Cancel(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Status != types.SubscriptionCancelled {
		t.Errorf("expected cancelled, got %s", updated.Status)
	}
}

func TestCancelWithoutSubscription(t *testing.T) {
	service := NewService(&fakeSubscriptionStore{})

	if _, err := service.Cancel(context.Background(), "u1", true); err == nil {
		t.Fatal("expected error without active subscription")
	}
}
