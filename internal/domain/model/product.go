package model

type ProductType string

const (
	ProductMembership        ProductType = "membership"
	ProductEventTour         ProductType = "event_tour"
	ProductEventConsultation ProductType = "event_consultation"
)

// Product is a purchasable item resolved from static configuration.
// ValidityDays is zero for one-off products (events) that grant no
// time-bounded access.
type Product struct {
	Type         ProductType
	DisplayName  string
	Description  string
	Amount       int64 // base fiat units
	ValidityDays int
}

// IsMembership reports whether a confirmed payment for this product
// should create or extend a subscription.
func (p ProductType) IsMembership() bool { return p == ProductMembership }

func (p ProductType) Valid() bool {
	switch p {
	case ProductMembership, ProductEventTour, ProductEventConsultation:
		return true
	}
	return false
}
