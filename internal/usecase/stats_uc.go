package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-bot/internal/domain/ports/repository"
	"telegram-club-bot/internal/infra/metrics"
)

// Snapshot is one day's operational summary.
type Snapshot struct {
	TakenAt         time.Time
	TotalUsers      int
	ActiveSubs      int
	TotalReferrals  int
	PaymentsLastDay int
}

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase aggregates the numbers reported to operators.
type StatsUseCase interface {
	Collect(ctx context.Context, now time.Time) (*Snapshot, error)
}

type statsUC struct {
	users     repository.UserRepository
	subs      SubscriptionUseCase
	referrals repository.ReferralRepository
	payments  PaymentUseCase
	log       *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, subs SubscriptionUseCase, referrals repository.ReferralRepository, payments PaymentUseCase, logger *zerolog.Logger) *statsUC {
	compLog := logger.With().Str("component", "StatsUC").Logger()
	return &statsUC{users: users, subs: subs, referrals: referrals, payments: payments, log: &compLog}
}

func (u *statsUC) Collect(ctx context.Context, now time.Time) (*Snapshot, error) {
	totalUsers, err := u.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	activeSubs, err := u.subs.CountActive(ctx, now)
	if err != nil {
		return nil, err
	}
	totalReferrals, err := u.referrals.CountAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	paymentsLastDay, err := u.payments.CountCreatedBetween(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		return nil, err
	}

	metrics.SetSubscriptionsActive(activeSubs)
	return &Snapshot{
		TakenAt:         now,
		TotalUsers:      totalUsers,
		ActiveSubs:      activeSubs,
		TotalReferrals:  totalReferrals,
		PaymentsLastDay: paymentsLastDay,
	}, nil
}
