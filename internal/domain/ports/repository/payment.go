package repository

import (
	"context"
	"time"

	"telegram-club-bot/internal/domain/model"
)

// PaymentRepository is the ledger of payment attempts. Rows are append-and-
// mutate only; nothing is ever deleted.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// AddProof appends a structured proof record to the payment.
	AddProof(ctx context.Context, tx Tx, paymentID string, proof model.PaymentProof) error
	// UpdateStatusIfPending flips the status only when the row is still
	// pending, reporting whether a row was changed. Confirmed and failed
	// are terminal.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, confirmedAt *time.Time) (bool, error)
	// CountCreatedBetween counts payments created in [from, to), for statistics.
	CountCreatedBetween(ctx context.Context, tx Tx, from, to time.Time) (int, error)
}
