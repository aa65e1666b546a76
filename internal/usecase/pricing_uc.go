package usecase

import (
	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
)

// Compile-time check
var _ PricingUseCase = (*pricingUC)(nil)

// PricingUseCase resolves a product identifier against the configured
// catalog. Pure lookup; no side effects.
type PricingUseCase interface {
	Resolve(productType model.ProductType) (model.Product, error)
	List() []model.Product
}

type pricingUC struct {
	catalog map[model.ProductType]model.Product
}

func NewPricingUseCase(catalog map[model.ProductType]model.Product) *pricingUC {
	return &pricingUC{catalog: catalog}
}

func (u *pricingUC) Resolve(productType model.ProductType) (model.Product, error) {
	p, ok := u.catalog[productType]
	if !ok {
		return model.Product{}, domain.ErrUnknownProduct
	}
	return p, nil
}

func (u *pricingUC) List() []model.Product {
	out := make([]model.Product, 0, len(u.catalog))
	for _, p := range u.catalog {
		out = append(out, p)
	}
	return out
}
