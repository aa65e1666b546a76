package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnknownProduct       = errors.New("unknown product type")
	ErrAssetUnavailable     = errors.New("crypto asset unavailable")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotPending    = errors.New("payment is not pending")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrUserBusy             = errors.New("another operation for this user is in progress")

	// Infra-level errors surfaced through repositories
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
