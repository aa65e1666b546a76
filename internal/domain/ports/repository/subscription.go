package repository

import (
	"context"
	"time"

	"telegram-club-bot/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindActiveByUser returns the user's single active subscription, or
	// domain.ErrNotFound.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// FindDue lists active subscriptions with end_at <= now.
	FindDue(ctx context.Context, tx Tx, now time.Time) ([]*model.Subscription, error)
	// FindExpiringBetween lists active subscriptions with end_at in [from, to).
	FindExpiringBetween(ctx context.Context, tx Tx, from, to time.Time) ([]*model.Subscription, error)
	CountActive(ctx context.Context, tx Tx, now time.Time) (int, error)
	// ListActiveUserIDs returns user ids holding an active subscription,
	// used by the weekly activity job.
	ListActiveUserIDs(ctx context.Context, tx Tx, now time.Time) ([]string, error)
	// LockUser serializes subscription mutations for one user within tx.
	LockUser(ctx context.Context, tx Tx, userID string) error
}
