//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/usecase"
)

func TestReferralUseCase_Link(t *testing.T) {
	uc := usecase.NewReferralUseCase(newMemReferralRepo(), newMemUserRepo(), "clubbot", newTestLogger())
	user, _ := model.NewUser("abc", 42, "alice", "Alice", "")
	if got, want := uc.Link(user), "https://t.me/clubbot?start=ref_abc"; got != want {
		t.Errorf("link = %q, want %q", got, want)
	}
}

func TestReferralUseCase_Attribute(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*memUserRepo, *memReferralRepo, usecase.ReferralUseCase, *model.User) {
		t.Helper()
		users := newMemUserRepo()
		referrals := newMemReferralRepo()
		uc := usecase.NewReferralUseCase(referrals, users, "clubbot", newTestLogger())
		referrer, _ := model.NewUser("ref1", 1, "ref", "Ref", "")
		if err := users.Save(ctx, nil, referrer); err != nil {
			t.Fatal(err)
		}
		return users, referrals, uc, referrer
	}

	t.Run("should attribute a new member to their referrer", func(t *testing.T) {
		users, _, uc, referrer := setup(t)
		referred, _ := model.NewUser("new1", 2, "bob", "Bob", "")
		if err := users.Save(ctx, nil, referred); err != nil {
			t.Fatal(err)
		}

		if err := uc.Attribute(ctx, referrer.ID, referred); err != nil {
			t.Fatalf("Attribute: %v", err)
		}
		if n, _ := uc.CountFor(ctx, referrer.ID); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
		stored, _ := users.FindByID(ctx, nil, referred.ID)
		if stored.ReferrerID == nil || *stored.ReferrerID != referrer.ID {
			t.Errorf("referrer not persisted on user: %+v", stored.ReferrerID)
		}
	})

	t.Run("should ignore self-referral", func(t *testing.T) {
		_, _, uc, referrer := setup(t)
		if err := uc.Attribute(ctx, referrer.ID, referrer); err != nil {
			t.Fatalf("Attribute: %v", err)
		}
		if n, _ := uc.CountFor(ctx, referrer.ID); n != 0 {
			t.Errorf("count = %d, want 0", n)
		}
	})

	t.Run("should ignore an unknown referrer", func(t *testing.T) {
		users, _, uc, _ := setup(t)
		referred, _ := model.NewUser("new1", 2, "bob", "Bob", "")
		if err := users.Save(ctx, nil, referred); err != nil {
			t.Fatal(err)
		}
		if err := uc.Attribute(ctx, "nobody", referred); err != nil {
			t.Fatalf("Attribute: %v", err)
		}
		if referred.ReferrerID != nil {
			t.Error("unknown referrer must not be attributed")
		}
	})

	t.Run("should attribute a user at most once", func(t *testing.T) {
		users, _, uc, referrer := setup(t)
		other, _ := model.NewUser("ref2", 3, "eve", "Eve", "")
		if err := users.Save(ctx, nil, other); err != nil {
			t.Fatal(err)
		}
		referred, _ := model.NewUser("new1", 2, "bob", "Bob", "")
		if err := users.Save(ctx, nil, referred); err != nil {
			t.Fatal(err)
		}

		if err := uc.Attribute(ctx, referrer.ID, referred); err != nil {
			t.Fatal(err)
		}
		if err := uc.Attribute(ctx, other.ID, referred); err != nil {
			t.Fatal(err)
		}
		if n, _ := uc.CountFor(ctx, other.ID); n != 0 {
			t.Errorf("second referrer credited: %d", n)
		}
		if n, _ := uc.CountFor(ctx, referrer.ID); n != 1 {
			t.Errorf("first referrer count = %d, want 1", n)
		}
	})
}

func TestReferralUseCase_ListReferrersWithAtLeast(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo()
	referrals := newMemReferralRepo()
	uc := usecase.NewReferralUseCase(referrals, users, "clubbot", newTestLogger())

	for _, pair := range [][2]string{{"a", "x"}, {"a", "y"}, {"b", "z"}} {
		if err := referrals.Add(ctx, nil, pair[0], pair[1]); err != nil {
			t.Fatal(err)
		}
	}

	got, err := uc.ListReferrersWithAtLeast(ctx, 2)
	if err != nil {
		t.Fatalf("ListReferrersWithAtLeast: %v", err)
	}
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("got = %v, want [a]", got)
	}
	if total, _ := uc.CountAll(ctx); total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}
