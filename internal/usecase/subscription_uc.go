package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/repository"
	"telegram-club-bot/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase implements membership access lifecycle operations.
// It is independent of how the originating payment was made.
type SubscriptionUseCase interface {
	// ActivateOrExtend grants validityDays of access. With no active
	// subscription one is created starting now; otherwise the end moves to
	// max(now, currentEnd) + validityDays, so early renewal keeps unused
	// time and late renewal grants nothing retroactively.
	ActivateOrExtend(ctx context.Context, userID string, validityDays int, paymentID *string) (*model.Subscription, error)
	// CheckActive returns the active subscription or domain.ErrNoActiveSubscription.
	CheckActive(ctx context.Context, userID string) (*model.Subscription, error)
	// ExpireDue lists active subscriptions with end <= now. Query only;
	// the scheduler owns the status transition.
	ExpireDue(ctx context.Context, now time.Time) ([]*model.Subscription, error)
	// ExpiringWithin lists active subscriptions ending in [from, from+days*24h).
	ExpiringWithin(ctx context.Context, from time.Time, days int) ([]*model.Subscription, error)
	// Deactivate marks a subscription expired.
	Deactivate(ctx context.Context, subID string) error
	CountActive(ctx context.Context, now time.Time) (int, error)
	ListActiveUserIDs(ctx context.Context, now time.Time) ([]string, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	tm   repository.TransactionManager
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, tm repository.TransactionManager, logger *zerolog.Logger) *subscriptionUC {
	compLog := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, tm: tm, log: &compLog}
}

func (u *subscriptionUC) ActivateOrExtend(ctx context.Context, userID string, validityDays int, paymentID *string) (*model.Subscription, error) {
	if userID == "" || validityDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	var result *model.Subscription
	err := u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// Serialize per user so concurrent renewals cannot race the anchor.
		if err := u.subs.LockUser(ctx, tx, userID); err != nil {
			return err
		}

		now := time.Now()
		current, err := u.subs.FindActiveByUser(ctx, tx, userID)
		switch {
		case err == nil:
			current.Extend(now, validityDays)
			if paymentID != nil {
				current.PaymentID = paymentID
			}
			if err := u.subs.Save(ctx, tx, current); err != nil {
				return err
			}
			metrics.IncSubscriptionExtended()
			result = current
			return nil
		case errors.Is(err, domain.ErrNotFound):
			s, err := model.NewSubscription(uuid.NewString(), userID, now, validityDays, paymentID)
			if err != nil {
				return err
			}
			if err := u.subs.Save(ctx, tx, s); err != nil {
				return err
			}
			metrics.IncSubscriptionActivated()
			result = s
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("user_id", userID).Time("end_at", result.EndAt).Msg("subscription activated or extended")
	return result, nil
}

func (u *subscriptionUC) CheckActive(ctx context.Context, userID string) (*model.Subscription, error) {
	s, err := u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveSubscription
		}
		return nil, err
	}
	if !s.ActiveAt(time.Now()) {
		// Row still marked active but already past its end; the hourly
		// job has not swept it yet. Access is denied either way.
		return nil, domain.ErrNoActiveSubscription
	}
	return s, nil
}

func (u *subscriptionUC) ExpireDue(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	return u.subs.FindDue(ctx, repository.NoTX, now)
}

func (u *subscriptionUC) ExpiringWithin(ctx context.Context, from time.Time, days int) ([]*model.Subscription, error) {
	if days <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	to := from.Add(time.Duration(days) * 24 * time.Hour)
	return u.subs.FindExpiringBetween(ctx, repository.NoTX, from, to)
}

func (u *subscriptionUC) Deactivate(ctx context.Context, subID string) error {
	s, err := u.subs.FindByID(ctx, repository.NoTX, subID)
	if err != nil {
		return err
	}
	if s.Status == model.SubscriptionStatusExpired {
		return nil
	}
	s.Status = model.SubscriptionStatusExpired
	s.UpdatedAt = time.Now()
	return u.subs.Save(ctx, repository.NoTX, s)
}

func (u *subscriptionUC) CountActive(ctx context.Context, now time.Time) (int, error) {
	return u.subs.CountActive(ctx, repository.NoTX, now)
}

func (u *subscriptionUC) ListActiveUserIDs(ctx context.Context, now time.Time) ([]string, error) {
	return u.subs.ListActiveUserIDs(ctx, repository.NoTX, now)
}
