package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-club-bot/internal/config"
	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/adapter"
	"telegram-club-bot/internal/domain/ports/repository"
	"telegram-club-bot/internal/infra/metrics"
)

// invoicePayloadPrefix tags the opaque checkout payload so the success
// callback can be routed back to the originating ledger row.
const invoicePayloadPrefix = "payment_"

// Fixed platform-currency conversion: the invoice charges
// floor(amount * 0.75) stars.
const (
	starsRateNum = 75
	starsRateDen = 100
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentInstructions is what a user must act on after choosing a method.
type PaymentInstructions struct {
	Payment     *model.Payment
	Product     model.Product
	CardDetails string           // set for card
	Invoice     *adapter.Invoice // set for stars
}

// CryptoInstructions carry the payment-address artifact for one asset.
// Rendering the address as a QR image is the transport layer's concern.
type CryptoInstructions struct {
	Payment       *model.Payment
	Product       model.Product
	Asset         string
	CryptoAmount  float64
	WalletAddress string
}

// ConfirmOutcome reports what a confirmation changed so the caller can
// notify the right parties.
type ConfirmOutcome struct {
	Payment      *model.Payment
	Product      model.Product
	Subscription *model.Subscription // non-nil when a membership was granted or extended
	// AlreadyResolved is set when the payment had already left pending;
	// confirming twice is a no-op, not an error.
	AlreadyResolved bool
}

// PaymentUseCase routes a chosen payment method into ledger records and
// user instructions, and resolves pending payments on confirmation.
type PaymentUseCase interface {
	// ChooseMethod creates a pending Payment and returns the instructions
	// for the chosen method. Card enters the awaiting-screenshot wait.
	ChooseMethod(ctx context.Context, userID string, productType model.ProductType, kind model.MethodKind) (*PaymentInstructions, error)
	// ChooseCryptoAsset binds an asset to a crypto payment created by
	// ChooseMethod and enters the awaiting-txid wait. Fails with
	// domain.ErrAssetUnavailable when the asset has no rate or wallet;
	// the ledger row is left untouched in that case.
	ChooseCryptoAsset(ctx context.Context, userID, paymentID, asset string) (*CryptoInstructions, error)
	// Confirm is the operator action flipping a pending payment to
	// confirmed. Membership products also activate or extend access.
	Confirm(ctx context.Context, paymentID string) (*ConfirmOutcome, error)
	// Fail is the operator action for rejected proofs.
	Fail(ctx context.Context, paymentID string) (*ConfirmOutcome, error)
	// ConfirmPlatform handles the platform checkout success callback,
	// whose payload must parse as "payment_<id>".
	ConfirmPlatform(ctx context.Context, payload string) (*ConfirmOutcome, error)
	Find(ctx context.Context, paymentID string) (*model.Payment, error)
	// CountCreatedBetween feeds the statistics job.
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	states   repository.StateRepository
	pricing  PricingUseCase
	subs     SubscriptionUseCase
	payCfg   config.PaymentConfig
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	states repository.StateRepository,
	pricing PricingUseCase,
	subs SubscriptionUseCase,
	payCfg config.PaymentConfig,
	logger *zerolog.Logger,
) *paymentUC {
	compLog := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments: payments,
		states:   states,
		pricing:  pricing,
		subs:     subs,
		payCfg:   payCfg,
		log:      &compLog,
	}
}

// StarsAmount converts a fiat amount into platform-currency units.
func StarsAmount(fiat int64) int64 { return fiat * starsRateNum / starsRateDen }

// CryptoAmount computes the owed amount in asset units, rounded to 8
// decimal places.
func CryptoAmount(fiat int64, rate float64) float64 {
	return math.Round(float64(fiat)/rate*1e8) / 1e8
}

// InvoicePayload renders the opaque payload for a payment id.
func InvoicePayload(paymentID string) string { return invoicePayloadPrefix + paymentID }

func (u *paymentUC) ChooseMethod(ctx context.Context, userID string, productType model.ProductType, kind model.MethodKind) (*PaymentInstructions, error) {
	product, err := u.pricing.Resolve(productType)
	if err != nil {
		return nil, err
	}

	var method model.PaymentMethod
	switch kind {
	case model.MethodCard:
		method = model.CardMethod()
	case model.MethodStars:
		method = model.StarsMethod()
	case model.MethodCrypto:
		method = model.CryptoMethod("")
	default:
		return nil, domain.ErrInvalidArgument
	}

	p, err := model.NewPayment(uuid.NewString(), userID, productType, product.Amount, method)
	if err != nil {
		return nil, err
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	metrics.IncPaymentCreated(string(kind))
	u.log.Info().Str("payment_id", p.ID).Str("user_id", userID).
		Str("method", method.String()).Int64("amount", p.Amount).Msg("payment created")

	out := &PaymentInstructions{Payment: p, Product: product}
	switch kind {
	case model.MethodCard:
		out.CardDetails = u.payCfg.CardDetails
		if err := u.states.SetState(ctx, userID, &repository.ConversationState{
			Step:      repository.StepAwaitingScreenshot,
			PaymentID: p.ID,
		}); err != nil {
			return nil, err
		}
	case model.MethodStars:
		out.Invoice = &adapter.Invoice{
			Title:       fmt.Sprintf("Pay for %s", product.DisplayName),
			Description: product.Description,
			Payload:     InvoicePayload(p.ID),
			Label:       product.DisplayName,
			StarsAmount: StarsAmount(product.Amount),
		}
	}
	return out, nil
}

func (u *paymentUC) ChooseCryptoAsset(ctx context.Context, userID, paymentID, asset string) (*CryptoInstructions, error) {
	rate := u.payCfg.Crypto.Rates[asset]
	wallet := u.payCfg.Crypto.Wallets[asset]
	if rate == 0 || wallet == "" {
		return nil, domain.ErrAssetUnavailable
	}

	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	if p.UserID != userID || p.Method.Kind != model.MethodCrypto || p.Status != model.PaymentStatusPending {
		return nil, domain.ErrInvalidArgument
	}

	product, err := u.pricing.Resolve(p.Product)
	if err != nil {
		return nil, err
	}

	p.Method = model.CryptoMethod(asset)
	p.UpdatedAt = time.Now()
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	if err := u.states.SetState(ctx, userID, &repository.ConversationState{
		Step:      repository.StepAwaitingTxID,
		PaymentID: p.ID,
	}); err != nil {
		return nil, err
	}

	u.log.Info().Str("payment_id", p.ID).Str("asset", asset).Msg("crypto asset chosen")
	return &CryptoInstructions{
		Payment:       p,
		Product:       product,
		Asset:         asset,
		CryptoAmount:  CryptoAmount(p.Amount, rate),
		WalletAddress: wallet,
	}, nil
}

func (u *paymentUC) Confirm(ctx context.Context, paymentID string) (*ConfirmOutcome, error) {
	return u.resolve(ctx, paymentID, model.PaymentStatusConfirmed)
}

func (u *paymentUC) Fail(ctx context.Context, paymentID string) (*ConfirmOutcome, error) {
	return u.resolve(ctx, paymentID, model.PaymentStatusFailed)
}

func (u *paymentUC) ConfirmPlatform(ctx context.Context, payload string) (*ConfirmOutcome, error) {
	id := strings.TrimPrefix(payload, invoicePayloadPrefix)
	if id == "" || id == payload {
		return nil, domain.ErrPaymentNotFound
	}
	return u.resolve(ctx, id, model.PaymentStatusConfirmed)
}

func (u *paymentUC) Find(ctx context.Context, paymentID string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (u *paymentUC) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	return u.payments.CountCreatedBetween(ctx, repository.NoTX, from, to)
}

func (u *paymentUC) resolve(ctx context.Context, paymentID string, status model.PaymentStatus) (*ConfirmOutcome, error) {
	p, err := u.Find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	product, err := u.pricing.Resolve(p.Product)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	changed, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, status, &now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &ConfirmOutcome{Payment: p, Product: product, AlreadyResolved: true}, nil
	}
	p.Status = status
	p.UpdatedAt = now
	if status == model.PaymentStatusConfirmed {
		p.ConfirmedAt = &now
	}
	metrics.IncPaymentResolved(string(status))
	u.log.Info().Str("payment_id", p.ID).Str("status", string(status)).Msg("payment resolved")

	out := &ConfirmOutcome{Payment: p, Product: product}
	if status == model.PaymentStatusConfirmed && p.Product.IsMembership() {
		sub, err := u.subs.ActivateOrExtend(ctx, p.UserID, product.ValidityDays, &p.ID)
		if err != nil {
			// The ledger row is already confirmed; surface the error so the
			// operator can retry the grant, but keep the payment state.
			return out, fmt.Errorf("activate subscription for payment %s: %w", p.ID, err)
		}
		out.Subscription = sub
	}
	return out, nil
}
