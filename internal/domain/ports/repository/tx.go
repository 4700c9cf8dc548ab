package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque query executor handle. Repositories accept it as `qx any`
// so the same method can run inside or outside a transaction.
type Tx = any

// TransactionManager runs fn inside a database transaction, committing on
// nil and rolling back on error.
type TransactionManager interface {
	WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
