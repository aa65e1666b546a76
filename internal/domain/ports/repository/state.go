package repository

import (
	"context"
)

// Conversation steps the confirmation flow moves through.
const (
	StepAwaitingScreenshot = "awaiting_screenshot"
	StepAwaitingTxID       = "awaiting_txid"
)

// ConversationState holds what a user is in the middle of: which proof we
// are waiting for and which payment it belongs to. It is cleared, not
// archived, on completion or cancellation.
type ConversationState struct {
	Step      string `json:"step"`
	PaymentID string `json:"payment_id"`
}

// StateRepository is the port for managing per-user conversational state.
// At most one state exists per user.
type StateRepository interface {
	SetState(ctx context.Context, userID string, state *ConversationState) error
	// GetState returns nil with no error when the user has no state.
	GetState(ctx context.Context, userID string) (*ConversationState, error)
	ClearState(ctx context.Context, userID string) error
}
