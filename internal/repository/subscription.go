package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

// subscriptionModel maps to the subscriptions table.
type subscriptionModel struct {
	ID                string `gorm:"primaryKey"`
	UserID            string `gorm:"index"`
	Tier              string
	Status            string `gorm:"index"`
	StartDate         time.Time
	EndDate           *time.Time
	CancelAtPeriodEnd bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (subscriptionModel) TableName() string {
	return "subscriptions"
}

// SubscriptionRepo accesses billing records.
type SubscriptionRepo struct {
	db *gorm.DB
}

// NewSubscriptionRepo returns a SubscriptionRepo.
func NewSubscriptionRepo(db *gorm.DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// FindActive returns the newest active or trial subscription for a user.
func (r *SubscriptionRepo) FindActive(ctx context.Context, userID string) (*types.Subscription, error) {
	var record subscriptionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{types.SubscriptionActive, types.SubscriptionTrial}).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(apperr.ErrNoSubscription, "no active subscription", goerr.V("user_id", userID))
		}
		return nil, goerr.Wrap(err, "failed to query subscription", goerr.V("user_id", userID))
	}
	subscription := subscriptionFromModel(record)
	return &subscription, nil
}

// CancelActive marks every active/trial row for the user as cancelled.
func (r *SubscriptionRepo) CancelActive(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Model(&subscriptionModel{}).
		Where("user_id = ? AND status IN ?", userID, []string{types.SubscriptionActive, types.SubscriptionTrial}).
		Update("status", types.SubscriptionCancelled).Error
	if err != nil {
		return goerr.Wrap(err, "failed to cancel subscriptions", goerr.V("user_id", userID))
	}
	return nil
}

// Create inserts a subscription row.
func (r *SubscriptionRepo) Create(ctx context.Context, subscription types.Subscription) (*types.Subscription, error) {
	if subscription.ID == "" {
		subscription.ID = uuid.NewString()
	}
	record := subscriptionModel{
		ID:                subscription.ID,
		UserID:            subscription.UserID,
		Tier:              subscription.Tier,
		Status:            subscription.Status,
		StartDate:         subscription.StartDate,
		EndDate:           subscription.EndDate,
		CancelAtPeriodEnd: subscription.CancelAtPeriodEnd,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to insert subscription", goerr.V("user_id", subscription.UserID))
	}
	created := subscriptionFromModel(record)
	return &created, nil
}

// Update overwrites status and cancellation fields on one subscription.
func (r *SubscriptionRepo) Update(ctx context.Context, subscription types.Subscription) (*types.Subscription, error) {
	err := r.db.WithContext(ctx).Model(&subscriptionModel{}).
		Where("id = ?", subscription.ID).
		Updates(map[string]any{
			"status":               subscription.Status,
			"end_date":             subscription.EndDate,
			"cancel_at_period_end": subscription.CancelAtPeriodEnd,
		}).Error
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update subscription", goerr.V("subscription_id", subscription.ID))
	}

	var record subscriptionModel
	if err := r.db.WithContext(ctx).First(&record, "id = ?", subscription.ID).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to reload subscription", goerr.V("subscription_id", subscription.ID))
	}
	updated := subscriptionFromModel(record)
	return &updated, nil
}

// ExpireDue flips active/trial rows whose end date has passed to expired, and
// returns how many rows changed.
func (r *SubscriptionRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&subscriptionModel{}).
		Where("status IN ? AND end_date IS NOT NULL AND end_date < ?",
			[]string{types.SubscriptionActive, types.SubscriptionTrial}, now).
		Update("status", types.SubscriptionExpired)
	if result.Error != nil {
		return 0, goerr.Wrap(result.Error, "failed to expire subscriptions")
	}
	return result.RowsAffected, nil
}

func subscriptionFromModel(model subscriptionModel) types.Subscription {
	return types.Subscription{
		ID:                model.ID,
		UserID:            model.UserID,
		Tier:              model.Tier,
		Status:            model.Status,
		StartDate:         model.StartDate,
		EndDate:           model.EndDate,
		CancelAtPeriodEnd: model.CancelAtPeriodEnd,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}
