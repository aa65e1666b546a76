//go:build !integration

package usecase_test

import (
	"errors"
	"testing"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/usecase"
)

func TestPricingUseCase_Resolve(t *testing.T) {
	uc := usecase.NewPricingUseCase(testCatalog())

	p, err := uc.Resolve(model.ProductMembership)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Amount != 1000 || p.ValidityDays != 30 {
		t.Errorf("product = %+v", p)
	}

	if _, err := uc.Resolve("helicopter_ride"); !errors.Is(err, domain.ErrUnknownProduct) {
		t.Errorf("err = %v, want ErrUnknownProduct", err)
	}

	if got := len(uc.List()); got != 2 {
		t.Errorf("catalog size = %d, want 2", got)
	}
}
