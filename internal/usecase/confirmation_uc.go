package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/adapter"
	"telegram-club-bot/internal/domain/ports/repository"
	"telegram-club-bot/internal/infra/metrics"
)

// UserLocker serializes conversation operations for one user. Satisfied by
// the Redis locker.
type UserLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Proof is one submitted piece of payment evidence. For screenshots the
// value is the platform file id (Document distinguishes file uploads from
// photos); for crypto it is the transaction id text.
type Proof struct {
	Kind     model.ProofKind
	Value    string
	Document bool
}

type SubmitStatus string

const (
	// ProofAccepted: proof recorded, operators notified, state cleared.
	ProofAccepted SubmitStatus = "accepted"
	// ProofWrongKind: message did not carry the expected proof; the wait
	// is preserved and the user should be re-prompted.
	ProofWrongKind SubmitStatus = "wrong_kind"
	// ProofNoPending: the user is not in a proof wait at all.
	ProofNoPending SubmitStatus = "no_pending"
	// ProofPaymentMissing: the referenced payment no longer resolves
	// (stale state after a restart); the wait was aborted.
	ProofPaymentMissing SubmitStatus = "payment_missing"
)

type SubmitOutcome struct {
	Status  SubmitStatus
	Kind    model.ProofKind
	Payment *model.Payment
}

// Compile-time check
var _ ConfirmationUseCase = (*confirmationUC)(nil)

// ConfirmationUseCase is the per-user conversational state machine
// tracking which payment is awaiting which kind of proof, and the handoff
// into operator review.
type ConfirmationUseCase interface {
	// Pending reports the user's current proof wait, nil when idle.
	Pending(ctx context.Context, userID string) (*repository.ConversationState, error)
	// SubmitProof consumes a message sent while a proof wait is active.
	SubmitProof(ctx context.Context, userID string, proof Proof) (*SubmitOutcome, error)
	// Cancel clears any wait unconditionally; canceling with no active
	// state is a no-op.
	Cancel(ctx context.Context, userID string) error
}

type confirmationUC struct {
	states      repository.StateRepository
	payments    repository.PaymentRepository
	users       repository.UserRepository
	notifier    adapter.Notifier
	locker      UserLocker
	operatorIDs []int64
	log         *zerolog.Logger
}

func NewConfirmationUseCase(
	states repository.StateRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	notifier adapter.Notifier,
	locker UserLocker,
	operatorIDs []int64,
	logger *zerolog.Logger,
) *confirmationUC {
	compLog := logger.With().Str("component", "ConfirmationUC").Logger()
	return &confirmationUC{
		states:      states,
		payments:    payments,
		users:       users,
		notifier:    notifier,
		locker:      locker,
		operatorIDs: operatorIDs,
		log:         &compLog,
	}
}

func lockKey(userID string) string { return "conv_lock:" + userID }

func (u *confirmationUC) Pending(ctx context.Context, userID string) (*repository.ConversationState, error) {
	return u.states.GetState(ctx, userID)
}

func (u *confirmationUC) SubmitProof(ctx context.Context, userID string, proof Proof) (*SubmitOutcome, error) {
	token, err := u.locker.TryLock(ctx, lockKey(userID), 30*time.Second)
	if err != nil {
		return nil, domain.ErrUserBusy
	}
	defer func() {
		if err := u.locker.Unlock(ctx, lockKey(userID), token); err != nil {
			u.log.Warn().Err(err).Str("user_id", userID).Msg("unlock failed")
		}
	}()

	state, err := u.states.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &SubmitOutcome{Status: ProofNoPending}, nil
	}

	expected := model.ProofScreenshot
	if state.Step == repository.StepAwaitingTxID {
		expected = model.ProofTxID
	}
	if proof.Kind != expected || strings.TrimSpace(proof.Value) == "" {
		// Re-entrant wait: state untouched, caller re-prompts.
		return &SubmitOutcome{Status: ProofWrongKind, Kind: expected}, nil
	}

	payment, err := u.payments.FindByID(ctx, repository.NoTX, state.PaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Stale reference, usually post-restart. Abort the wait.
			if err := u.states.ClearState(ctx, userID); err != nil {
				u.log.Warn().Err(err).Str("user_id", userID).Msg("clear state failed")
			}
			return &SubmitOutcome{Status: ProofPaymentMissing, Kind: expected}, nil
		}
		return nil, err
	}

	rec := model.PaymentProof{Kind: proof.Kind, Value: proof.Value, SubmittedAt: time.Now()}
	if err := u.payments.AddProof(ctx, repository.NoTX, payment.ID, rec); err != nil {
		return nil, err
	}
	payment.Proofs = append(payment.Proofs, rec)
	metrics.IncProofSubmitted(string(proof.Kind))

	// Operator notification failures never block state cleanup; a user
	// must not be stuck in a wait because an operator is unreachable.
	u.notifyOperators(ctx, payment, proof)

	if err := u.states.ClearState(ctx, userID); err != nil {
		u.log.Error().Err(err).Str("user_id", userID).Msg("clear state after proof failed")
	}
	return &SubmitOutcome{Status: ProofAccepted, Kind: proof.Kind, Payment: payment}, nil
}

func (u *confirmationUC) Cancel(ctx context.Context, userID string) error {
	return u.states.ClearState(ctx, userID)
}

func (u *confirmationUC) notifyOperators(ctx context.Context, p *model.Payment, proof Proof) {
	caption := u.reviewMessage(ctx, p, proof)
	for _, opID := range u.operatorIDs {
		var err error
		switch {
		case proof.Kind == model.ProofScreenshot && proof.Document:
			err = u.notifier.SendDocument(ctx, opID, proof.Value, caption)
		case proof.Kind == model.ProofScreenshot:
			err = u.notifier.SendPhoto(ctx, opID, proof.Value, caption)
		default:
			err = u.notifier.SendMessage(ctx, opID, caption)
		}
		if err != nil {
			u.log.Error().Err(err).Int64("operator_id", opID).
				Str("payment_id", p.ID).Msg("operator notification failed")
			continue
		}
		u.log.Info().Int64("operator_id", opID).Str("payment_id", p.ID).Msg("operator notified")
	}
}

func (u *confirmationUC) reviewMessage(ctx context.Context, p *model.Payment, proof Proof) string {
	who := p.UserID
	if user, err := u.users.FindByID(ctx, repository.NoTX, p.UserID); err == nil {
		who = fmt.Sprintf("%s (%s)", user.DisplayName(), user.Link())
	}

	var sb strings.Builder
	sb.WriteString("💰 Payment awaiting review\n\n")
	sb.WriteString(fmt.Sprintf("Payment: %s\n", p.ID))
	sb.WriteString(fmt.Sprintf("User: %s\n", who))
	sb.WriteString(fmt.Sprintf("Product: %s\n", p.Product))
	sb.WriteString(fmt.Sprintf("Amount: %d\n", p.Amount))
	sb.WriteString(fmt.Sprintf("Method: %s\n", p.Method))
	if proof.Kind == model.ProofTxID {
		sb.WriteString(fmt.Sprintf("TxID: %s\n", proof.Value))
	}
	sb.WriteString(fmt.Sprintf("\nConfirm with: /confirm_payment_%s", p.ID))
	return sb.String()
}
