package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, product, amount, method, status, proofs, created_at, updated_at, confirmed_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, product, amount, method, status, proofs, created_at, updated_at, confirmed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  method=$5, status=$6, proofs=$7, updated_at=$9, confirmed_at=$10;`

	proofs, err := json.Marshal(p.Proofs)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, string(p.Product), p.Amount, p.Method.String(),
		string(p.Status), proofs, p.CreatedAt, p.UpdatedAt, p.ConfirmedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) AddProof(ctx context.Context, tx repository.Tx, paymentID string, proof model.PaymentProof) error {
	const q = `UPDATE payments SET proofs = proofs || $2::jsonb, updated_at=NOW() WHERE id=$1;`
	buf, err := json.Marshal([]model.PaymentProof{proof})
	if err != nil {
		return domain.ErrInvalidArgument
	}
	tag, err := execSQL(ctx, r.pool, tx, q, paymentID, buf)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, confirmedAt *time.Time) (bool, error) {
	var at *time.Time
	if status == model.PaymentStatusConfirmed {
		at = confirmedAt
	}
	const q = `UPDATE payments SET status=$2, confirmed_at=COALESCE($3, confirmed_at), updated_at=NOW()
WHERE id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, string(status), at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() > 0, nil
}

func (r *paymentRepo) CountCreatedBetween(ctx context.Context, tx repository.Tx, from, to time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM payments WHERE created_at >= $1 AND created_at < $2;`
	row, err := pickRow(ctx, r.pool, tx, q, from, to)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var product, method, status string
	var proofs []byte
	if err := row.Scan(&p.ID, &p.UserID, &product, &p.Amount, &method, &status, &proofs, &p.CreatedAt, &p.UpdatedAt, &p.ConfirmedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Product = model.ProductType(product)
	p.Status = model.PaymentStatus(status)
	m, err := model.ParseMethod(method)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	p.Method = m
	if len(proofs) > 0 {
		if err := json.Unmarshal(proofs, &p.Proofs); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return p, nil
}
