package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/ports/repository"
)

var _ repository.ReferralRepository = (*referralRepo)(nil)

type referralRepo struct{ pool *pgxpool.Pool }

func NewReferralRepo(pool *pgxpool.Pool) *referralRepo {
	return &referralRepo{pool: pool}
}

func (r *referralRepo) Add(ctx context.Context, tx repository.Tx, referrerID, referredID string) error {
	const q = `
INSERT INTO referrals (referrer_id, referred_id, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT (referrer_id, referred_id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, referrerID, referredID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *referralRepo) CountByReferrer(ctx context.Context, tx repository.Tx, referrerID string) (int, error) {
	const q = `SELECT COUNT(*) FROM referrals WHERE referrer_id=$1;`
	return r.count(ctx, tx, q, referrerID)
}

func (r *referralRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `SELECT COUNT(*) FROM referrals;`
	return r.count(ctx, tx, q)
}

func (r *referralRepo) ListReferrersWithAtLeast(ctx context.Context, tx repository.Tx, n int) ([]string, error) {
	const q = `SELECT referrer_id FROM referrals GROUP BY referrer_id HAVING COUNT(*) >= $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *referralRepo) count(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
