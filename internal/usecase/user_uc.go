package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/repository"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase covers registration and profile upkeep. Every inbound
// interaction funnels through EnsureUser so the roster stays current
// without an explicit signup step.
type UserUseCase interface {
	// EnsureUser registers the sender on first contact and refreshes
	// profile fields and activity on every later one. The bool reports
	// whether this call created the user.
	EnsureUser(ctx context.Context, tgID int64, username, firstName, lastName string) (*model.User, bool, error)
	Find(ctx context.Context, userID string) (*model.User, error)
	FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	compLog := logger.With().Str("component", "UserUC").Logger()
	return &userUC{users: users, log: &compLog}
}

func (u *userUC) EnsureUser(ctx context.Context, tgID int64, username, firstName, lastName string) (*model.User, bool, error) {
	user, err := u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
	switch {
	case err == nil:
		user.Username = username
		user.FirstName = firstName
		user.LastName = lastName
		user.Touch()
		if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
			return nil, false, err
		}
		return user, false, nil
	case errors.Is(err, domain.ErrNotFound):
		user, err = model.NewUser("", tgID, username, firstName, lastName)
		if err != nil {
			return nil, false, err
		}
		if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
			return nil, false, err
		}
		u.log.Info().Str("user_id", user.ID).Int64("telegram_id", tgID).Msg("user registered")
		return user, true, nil
	default:
		return nil, false, err
	}
}

func (u *userUC) Find(ctx context.Context, userID string) (*model.User, error) {
	return u.users.FindByID(ctx, repository.NoTX, userID)
}

func (u *userUC) FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
}
