package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-bot/internal/application"
	"telegram-club-bot/internal/config"
	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/ports/adapter"
	"telegram-club-bot/internal/domain/ports/repository"
	"telegram-club-bot/internal/infra/metrics"
	"telegram-club-bot/internal/usecase"
)

// Jobs holds the periodic work the scheduler fires. Every job isolates
// per-recipient failures: one unreachable user never aborts the sweep.
type Jobs struct {
	Subs        usecase.SubscriptionUseCase
	Users       repository.UserRepository
	Enforcer    usecase.EnforcerUseCase
	Referrals   usecase.ReferralUseCase
	Stats       usecase.StatsUseCase
	Notifier    adapter.Notifier
	OperatorIDs []int64
	Referral    config.ReferralConfig

	log *zerolog.Logger
}

func NewJobs(
	subs usecase.SubscriptionUseCase,
	users repository.UserRepository,
	enforcer usecase.EnforcerUseCase,
	referrals usecase.ReferralUseCase,
	stats usecase.StatsUseCase,
	notifier adapter.Notifier,
	operatorIDs []int64,
	refCfg config.ReferralConfig,
	logger *zerolog.Logger,
) *Jobs {
	compLog := logger.With().Str("component", "Jobs").Logger()
	return &Jobs{
		Subs:        subs,
		Users:       users,
		Enforcer:    enforcer,
		Referrals:   referrals,
		Stats:       stats,
		Notifier:    notifier,
		OperatorIDs: operatorIDs,
		Referral:    refCfg,
		log:         &compLog,
	}
}

// Register wires all jobs into the scheduler at their configured times.
// EnforceExpiry should additionally be run once, synchronously, at startup
// to catch subscriptions that lapsed while the process was down.
func (j *Jobs) Register(s *Scheduler, cfg config.SchedulerConfig) {
	s.Add("expiry-enforcement", Every(cfg.ExpiryInterval), j.EnforceExpiry)
	s.Add("expiring-warning", DailyAt(cfg.WarningHour, 0), j.WarnExpiring)
	s.Add("renewal-nudge", DailyAt(cfg.NudgeHour, 0), j.NudgeReferrals)
	s.Add("limited-offer", MonthlyAt(cfg.OfferDay, cfg.OfferHour), j.SendLimitedOffer)
	s.Add("statistics", DailyAt(cfg.StatsHour, cfg.StatsMinute), j.ReportStatistics)
	s.Add("activity-check", WeeklyAt(time.Weekday(cfg.ActivityDay), cfg.ActivityHour), j.CheckActivity)
}

// EnforceExpiry expires overdue subscriptions, removes the members from
// the group and tells them why.
func (j *Jobs) EnforceExpiry(ctx context.Context) error {
	now := time.Now()
	due, err := j.Subs.ExpireDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list due subscriptions: %w", err)
	}

	expired := 0
	for _, sub := range due {
		if err := j.Subs.Deactivate(ctx, sub.ID); err != nil {
			j.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("deactivate failed")
			continue
		}
		expired++

		user, err := j.Users.FindByID(ctx, repository.NoTX, sub.UserID)
		if err != nil {
			j.log.Error().Err(err).Str("user_id", sub.UserID).Msg("expired user lookup failed")
			continue
		}
		if _, err := j.Enforcer.RevokeAccess(ctx, user); err != nil {
			j.log.Warn().Err(err).Str("user_id", user.ID).Msg("group removal failed")
		}
		text := "Your club membership has expired and group access was revoked. Renew any time with /buy."
		if err := j.Notifier.SendMessage(ctx, user.TelegramID, text); err != nil {
			j.log.Warn().Err(err).Str("user_id", user.ID).Msg("expiry notice failed")
		}
	}
	if expired > 0 {
		metrics.IncSubscriptionsExpired(expired)
		j.log.Info().Int("count", expired).Msg("subscriptions expired")
	}
	return nil
}

// WarnExpiring reminds members whose access ends in 3 days and in 1 day.
// The windows are disjoint so nobody is warned twice by one run.
func (j *Jobs) WarnExpiring(ctx context.Context) error {
	now := time.Now()
	var firstErr error
	for _, days := range []int{3, 1} {
		from := now.Add(time.Duration(days-1) * 24 * time.Hour)
		subs, err := j.Subs.ExpiringWithin(ctx, from, 1)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, sub := range subs {
			user, err := j.Users.FindByID(ctx, repository.NoTX, sub.UserID)
			if err != nil {
				j.log.Error().Err(err).Str("user_id", sub.UserID).Msg("expiring user lookup failed")
				continue
			}
			text := fmt.Sprintf("⏳ Your membership expires in %d day(s), on %s. Renew with /buy to keep your access.",
				days, sub.EndAt.Format("2006-01-02"))
			if err := j.Notifier.SendMessage(ctx, user.TelegramID, text); err != nil {
				j.log.Warn().Err(err).Str("user_id", user.ID).Msg("expiry warning failed")
			}
		}
	}
	return firstErr
}

// NudgeReferrals reminds long-registered users below the referral
// threshold to share their invite link.
func (j *Jobs) NudgeReferrals(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(j.Referral.NudgeAfterDays) * 24 * time.Hour)
	users, err := j.Users.ListRegisteredBefore(ctx, repository.NoTX, cutoff)
	if err != nil {
		return fmt.Errorf("list users for nudge: %w", err)
	}

	for _, user := range users {
		n, err := j.Referrals.CountFor(ctx, user.ID)
		if err != nil {
			j.log.Error().Err(err).Str("user_id", user.ID).Msg("referral count failed")
			continue
		}
		if n >= j.Referral.NudgeThreshold {
			continue
		}
		reward := "rewards"
		if j.Referral.PointsPerReferral > 0 {
			reward = fmt.Sprintf("%d points per new member", j.Referral.PointsPerReferral)
		}
		text := fmt.Sprintf("👥 Invite friends to the club and earn %s! You have %d referral(s) so far.\nYour link:\n%s",
			reward, n, j.Referrals.Link(user))
		if err := j.Notifier.SendMessage(ctx, user.TelegramID, text); err != nil {
			j.log.Warn().Err(err).Str("user_id", user.ID).Msg("nudge failed")
		}
	}
	return nil
}

// SendLimitedOffer promotes the monthly bonus to everyone who has brought
// at least one member.
func (j *Jobs) SendLimitedOffer(ctx context.Context) error {
	min := j.Referral.OfferMinReferrals
	if min <= 0 {
		min = 1
	}
	ids, err := j.Referrals.ListReferrersWithAtLeast(ctx, min)
	if err != nil {
		return fmt.Errorf("list referrers: %w", err)
	}

	for _, id := range ids {
		user, err := j.Users.FindByID(ctx, repository.NoTX, id)
		if err != nil {
			j.log.Error().Err(err).Str("user_id", id).Msg("referrer lookup failed")
			continue
		}
		text := "🎁 Thanks for bringing friends to the club! This month you qualify for a bonus — message an operator to claim it."
		if err := j.Notifier.SendMessage(ctx, user.TelegramID, text); err != nil {
			j.log.Warn().Err(err).Str("user_id", user.ID).Msg("offer failed")
		}
	}
	return nil
}

// ReportStatistics sends the daily summary to every operator.
func (j *Jobs) ReportStatistics(ctx context.Context) error {
	snap, err := j.Stats.Collect(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("collect statistics: %w", err)
	}
	text := application.FormatSnapshot(snap)
	for _, opID := range j.OperatorIDs {
		if err := j.Notifier.SendMessage(ctx, opID, text); err != nil {
			j.log.Warn().Err(err).Int64("operator_id", opID).Msg("stats delivery failed")
		}
	}
	return nil
}

// CheckActivity pings active members weekly to keep the group alive.
func (j *Jobs) CheckActivity(ctx context.Context) error {
	ids, err := j.Subs.ListActiveUserIDs(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("list active members: %w", err)
	}

	for _, id := range ids {
		user, err := j.Users.FindByID(ctx, repository.NoTX, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				j.log.Error().Err(err).Str("user_id", id).Msg("active user lookup failed")
			}
			continue
		}
		text := "👋 Anything on your mind this week? Drop by the group — new discussions are waiting."
		if err := j.Notifier.SendMessage(ctx, user.TelegramID, text); err != nil {
			j.log.Warn().Err(err).Str("user_id", user.ID).Msg("activity ping failed")
		}
	}
	return nil
}
