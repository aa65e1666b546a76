package repository

import (
	"context"
)

// Tx is an opaque transaction handle passed through repository calls.
// The concrete type is infra-defined (pgx.Tx for Postgres). Repositories
// MUST gracefully accept NoTX (nil) and run against the pool directly.
type Tx interface{}

// NoTX marks a non-transactional call.
var NoTX Tx

// TransactionManager executes a function within a storage transaction,
// passing the transaction handle via tx. Keeping the handle opaque stops
// transaction types from leaking into use-case signatures.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
