package model

import (
	"fmt"
	"strings"
	"time"

	"telegram-club-bot/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // created, awaiting proof and/or operator review
	PaymentStatusConfirmed PaymentStatus = "confirmed" // terminal
	PaymentStatusFailed    PaymentStatus = "failed"    // terminal
)

type MethodKind string

const (
	MethodCard   MethodKind = "card"
	MethodStars  MethodKind = "stars"
	MethodCrypto MethodKind = "crypto"
)

// PaymentMethod is a tagged variant: Card | Stars | Crypto(asset).
// Asset is set only for MethodCrypto.
type PaymentMethod struct {
	Kind  MethodKind
	Asset string
}

func CardMethod() PaymentMethod               { return PaymentMethod{Kind: MethodCard} }
func StarsMethod() PaymentMethod              { return PaymentMethod{Kind: MethodStars} }
func CryptoMethod(asset string) PaymentMethod { return PaymentMethod{Kind: MethodCrypto, Asset: asset} }

// String renders the method for storage and operator messages, e.g.
// "card", "stars", "crypto:BTC". A crypto method whose asset has not been
// chosen yet renders as plain "crypto".
func (m PaymentMethod) String() string {
	if m.Kind == MethodCrypto && m.Asset != "" {
		return fmt.Sprintf("crypto:%s", m.Asset)
	}
	return string(m.Kind)
}

// ParseMethod is the inverse of String, used when loading ledger rows.
func ParseMethod(s string) (PaymentMethod, error) {
	switch {
	case s == string(MethodCard):
		return CardMethod(), nil
	case s == string(MethodStars):
		return StarsMethod(), nil
	case s == string(MethodCrypto):
		return CryptoMethod(""), nil
	case strings.HasPrefix(s, "crypto:"):
		return CryptoMethod(strings.TrimPrefix(s, "crypto:")), nil
	}
	return PaymentMethod{}, domain.ErrInvalidArgument
}

type ProofKind string

const (
	ProofScreenshot ProofKind = "screenshot"
	ProofTxID       ProofKind = "txid"
)

// PaymentProof is one piece of submitted evidence. For screenshots the
// value is the platform file id; for crypto it is the transaction id verbatim.
type PaymentProof struct {
	Kind        ProofKind `json:"kind"`
	Value       string    `json:"value"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Payment records one attempt to pay for a product, independent of its
// eventual success. Rows are never deleted; they feed audit and statistics.
type Payment struct {
	ID          string // UUID
	UserID      string // UUID
	Product     ProductType
	Amount      int64 // fixed at creation, base fiat units
	Method      PaymentMethod
	Status      PaymentStatus
	Proofs      []PaymentProof
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ConfirmedAt *time.Time
}

// NewPayment validates and constructs a pending payment.
func NewPayment(id, userID string, product ProductType, amount int64, method PaymentMethod) (*Payment, error) {
	if id == "" || userID == "" || amount <= 0 || !product.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Payment{
		ID:        id,
		UserID:    userID,
		Product:   product,
		Amount:    amount,
		Method:    method,
		Status:    PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Payment) IsZero() bool { return p == nil || p.ID == "" }

// LastProof returns the most recently submitted proof, or nil.
func (p *Payment) LastProof() *PaymentProof {
	if len(p.Proofs) == 0 {
		return nil
	}
	return &p.Proofs[len(p.Proofs)-1]
}
