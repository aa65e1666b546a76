package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/adapter"
	"telegram-club-bot/internal/domain/ports/repository"
)

const inviteLinkTTL = 24 * time.Hour

// Compile-time check
var _ EnforcerUseCase = (*enforcerUC)(nil)

// EnforcerUseCase keeps the private group's roster consistent with the
// subscription ledger: it mints invite links for paid members and removes
// members whose access has lapsed.
type EnforcerUseCase interface {
	// GrantAccess returns a fresh single-use invite link for the user,
	// or ErrNoActiveSubscription when they have nothing active.
	GrantAccess(ctx context.Context, userID string) (string, error)
	// RevokeAccess removes the user from the group. Best effort: a user
	// who already left is not an error, the returned bool reports
	// whether a removal actually happened.
	RevokeAccess(ctx context.Context, user *model.User) (bool, error)
}

type enforcerUC struct {
	subs  SubscriptionUseCase
	users repository.UserRepository
	gate  adapter.GroupGate
	log   *zerolog.Logger
}

func NewEnforcerUseCase(subs SubscriptionUseCase, users repository.UserRepository, gate adapter.GroupGate, logger *zerolog.Logger) *enforcerUC {
	compLog := logger.With().Str("component", "EnforcerUC").Logger()
	return &enforcerUC{subs: subs, users: users, gate: gate, log: &compLog}
}

func (u *enforcerUC) GrantAccess(ctx context.Context, userID string) (string, error) {
	if _, err := u.subs.CheckActive(ctx, userID); err != nil {
		return "", err
	}

	name := fmt.Sprintf("member-%s", userID)
	link, err := u.gate.CreateInviteLink(ctx, name, time.Now().Add(inviteLinkTTL))
	if err != nil {
		u.log.Error().Err(err).Str("user_id", userID).Msg("invite link creation failed")
		return "", fmt.Errorf("create invite link: %w", domain.ErrOperationFailed)
	}
	u.log.Info().Str("user_id", userID).Msg("invite link issued")
	return link, nil
}

func (u *enforcerUC) RevokeAccess(ctx context.Context, user *model.User) (bool, error) {
	removed, err := u.gate.RemoveMember(ctx, user.TelegramID)
	if err != nil {
		u.log.Error().Err(err).Str("user_id", user.ID).Int64("telegram_id", user.TelegramID).
			Msg("member removal failed")
		return false, err
	}
	if removed {
		u.log.Info().Str("user_id", user.ID).Msg("member removed from group")
	}
	return removed, nil
}
