package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/repository"
)

// Compile-time check
var _ ReferralUseCase = (*referralUC)(nil)

// ReferralUseCase tracks who brought whom: personal invite links,
// attribution on first contact, and the counts the nudge jobs key off.
type ReferralUseCase interface {
	// Link is the user's personal deep link; following it attributes
	// the new member to them.
	Link(user *model.User) string
	// Attribute records referrer -> referred. Self-referrals and
	// unknown referrers are dropped silently; a user is attributed at
	// most once.
	Attribute(ctx context.Context, referrerID string, referred *model.User) error
	CountFor(ctx context.Context, userID string) (int, error)
	CountAll(ctx context.Context) (int, error)
	ListReferrersWithAtLeast(ctx context.Context, n int) ([]string, error)
}

type referralUC struct {
	referrals   repository.ReferralRepository
	users       repository.UserRepository
	botUsername string
	log         *zerolog.Logger
}

func NewReferralUseCase(referrals repository.ReferralRepository, users repository.UserRepository, botUsername string, logger *zerolog.Logger) *referralUC {
	compLog := logger.With().Str("component", "ReferralUC").Logger()
	return &referralUC{referrals: referrals, users: users, botUsername: botUsername, log: &compLog}
}

func (u *referralUC) Link(user *model.User) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%s", u.botUsername, user.ID)
}

func (u *referralUC) Attribute(ctx context.Context, referrerID string, referred *model.User) error {
	if referrerID == "" || referrerID == referred.ID || referred.ReferrerID != nil {
		return nil
	}
	if _, err := u.users.FindByID(ctx, repository.NoTX, referrerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Str("referrer_id", referrerID).Msg("referral to unknown user ignored")
			return nil
		}
		return err
	}
	referred.ReferrerID = &referrerID
	if err := u.users.Save(ctx, repository.NoTX, referred); err != nil {
		return err
	}
	if err := u.referrals.Add(ctx, repository.NoTX, referrerID, referred.ID); err != nil {
		return err
	}
	u.log.Info().Str("referrer_id", referrerID).Str("referred_id", referred.ID).Msg("referral attributed")
	return nil
}

func (u *referralUC) CountFor(ctx context.Context, userID string) (int, error) {
	return u.referrals.CountByReferrer(ctx, repository.NoTX, userID)
}

func (u *referralUC) CountAll(ctx context.Context) (int, error) {
	return u.referrals.CountAll(ctx, repository.NoTX)
}

func (u *referralUC) ListReferrersWithAtLeast(ctx context.Context, n int) ([]string, error) {
	return u.referrals.ListReferrersWithAtLeast(ctx, repository.NoTX, n)
}
