//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/usecase"
)

func TestEnforcerUseCase_GrantAccess(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("should mint a short-lived invite for an active member", func(t *testing.T) {
		subs := newMemSubRepo()
		subUC := usecase.NewSubscriptionUseCase(subs, NewMockTxManager(), logger)
		if _, err := subUC.ActivateOrExtend(ctx, "u1", 30, nil); err != nil {
			t.Fatal(err)
		}

		gate := &MockGroupGate{}
		var gotExpire time.Time
		gate.CreateInviteLinkFunc = func(ctx context.Context, name string, expireAt time.Time) (string, error) {
			gotExpire = expireAt
			return "https://t.me/+fresh", nil
		}
		uc := usecase.NewEnforcerUseCase(subUC, newMemUserRepo(), gate, logger)

		link, err := uc.GrantAccess(ctx, "u1")
		if err != nil {
			t.Fatalf("GrantAccess: %v", err)
		}
		if link != "https://t.me/+fresh" {
			t.Errorf("link = %q", link)
		}
		wantExpire := time.Now().Add(24 * time.Hour)
		if gotExpire.Before(wantExpire.Add(-time.Minute)) || gotExpire.After(wantExpire.Add(time.Minute)) {
			t.Errorf("invite expiry = %v, want ~%v", gotExpire, wantExpire)
		}
	})

	t.Run("should refuse a user without an active subscription", func(t *testing.T) {
		subUC := usecase.NewSubscriptionUseCase(newMemSubRepo(), NewMockTxManager(), logger)
		uc := usecase.NewEnforcerUseCase(subUC, newMemUserRepo(), &MockGroupGate{}, logger)

		if _, err := uc.GrantAccess(ctx, "ghost"); !errors.Is(err, domain.ErrNoActiveSubscription) {
			t.Errorf("err = %v, want ErrNoActiveSubscription", err)
		}
	})

	t.Run("should surface a link creation failure as operation failed", func(t *testing.T) {
		subs := newMemSubRepo()
		subUC := usecase.NewSubscriptionUseCase(subs, NewMockTxManager(), logger)
		if _, err := subUC.ActivateOrExtend(ctx, "u1", 30, nil); err != nil {
			t.Fatal(err)
		}
		gate := &MockGroupGate{CreateInviteLinkFunc: func(ctx context.Context, name string, expireAt time.Time) (string, error) {
			return "", errors.New("api down")
		}}
		uc := usecase.NewEnforcerUseCase(subUC, newMemUserRepo(), gate, logger)

		if _, err := uc.GrantAccess(ctx, "u1"); !errors.Is(err, domain.ErrOperationFailed) {
			t.Errorf("err = %v, want ErrOperationFailed", err)
		}
	})
}

func TestEnforcerUseCase_RevokeAccess(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	user, _ := model.NewUser("u1", 42, "alice", "Alice", "")

	t.Run("should remove the member from the group", func(t *testing.T) {
		subUC := usecase.NewSubscriptionUseCase(newMemSubRepo(), NewMockTxManager(), logger)
		gate := &MockGroupGate{}
		uc := usecase.NewEnforcerUseCase(subUC, newMemUserRepo(), gate, logger)

		removed, err := uc.RevokeAccess(ctx, user)
		if err != nil {
			t.Fatalf("RevokeAccess: %v", err)
		}
		if !removed {
			t.Error("expected a removal")
		}
		if len(gate.Removed) != 1 || gate.Removed[0] != 42 {
			t.Errorf("removed = %v, want [42]", gate.Removed)
		}
	})

	t.Run("should treat an already-departed member as a no-op", func(t *testing.T) {
		subUC := usecase.NewSubscriptionUseCase(newMemSubRepo(), NewMockTxManager(), logger)
		gate := &MockGroupGate{RemoveMemberFunc: func(ctx context.Context, tgID int64) (bool, error) {
			return false, nil
		}}
		uc := usecase.NewEnforcerUseCase(subUC, newMemUserRepo(), gate, logger)

		removed, err := uc.RevokeAccess(ctx, user)
		if err != nil {
			t.Fatalf("RevokeAccess: %v", err)
		}
		if removed {
			t.Error("no removal should be reported")
		}
	})
}
