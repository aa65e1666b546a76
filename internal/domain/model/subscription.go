package model

import (
	"time"

	"telegram-club-bot/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription is one interval of granted access for one user.
// At most one active subscription exists per user at any instant.
type Subscription struct {
	ID        string // UUID
	UserID    string // UUID
	StartAt   time.Time
	EndAt     time.Time
	Status    SubscriptionStatus
	PaymentID *string // originating payment, for audit
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscription creates an active subscription running validityDays from now.
func NewSubscription(id, userID string, now time.Time, validityDays int, paymentID *string) (*Subscription, error) {
	if id == "" || userID == "" || validityDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		UserID:    userID,
		StartAt:   now,
		EndAt:     now.Add(time.Duration(validityDays) * 24 * time.Hour),
		Status:    SubscriptionStatusActive,
		PaymentID: paymentID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Extend moves the end forward by validityDays, anchored on the later of
// now and the current end. Early renewal never forfeits unused time and
// late renewal grants no retroactive credit for the lapsed gap.
func (s *Subscription) Extend(now time.Time, validityDays int) {
	anchor := now
	if s.EndAt.After(now) {
		anchor = s.EndAt
	}
	s.EndAt = anchor.Add(time.Duration(validityDays) * 24 * time.Hour)
	s.Status = SubscriptionStatusActive
	s.UpdatedAt = now
}

// ActiveAt reports whether the subscription grants access at the given instant.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && s.EndAt.After(now)
}

// DaysLeft returns whole days of access remaining, never negative.
func (s *Subscription) DaysLeft(now time.Time) int {
	if !s.ActiveAt(now) {
		return 0
	}
	return int(s.EndAt.Sub(now).Hours() / 24)
}
