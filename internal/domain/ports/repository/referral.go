package repository

import (
	"context"
)

// ReferralRepository tracks who invited whom. Simple counters; referral
// rows have no lifecycle of their own.
type ReferralRepository interface {
	// Add records that referrer invited referred. Duplicate pairs are ignored.
	Add(ctx context.Context, tx Tx, referrerID, referredID string) error
	CountByReferrer(ctx context.Context, tx Tx, referrerID string) (int, error)
	CountAll(ctx context.Context, tx Tx) (int, error)
	// ListReferrersWithAtLeast returns user ids with >= n referrals, for
	// the limited-offer job.
	ListReferrersWithAtLeast(ctx context.Context, tx Tx, n int) ([]string, error)
}
