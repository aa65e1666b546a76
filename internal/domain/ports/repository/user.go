package repository

import (
	"context"
	"time"

	"telegram-club-bot/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
	// ListRegisteredBefore returns users whose registration predates the
	// cutoff, used by the renewal-nudge job.
	ListRegisteredBefore(ctx context.Context, tx Tx, cutoff time.Time) ([]*model.User, error)
}
