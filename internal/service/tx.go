package service

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// TxRunner runs a function inside a single database transaction.
// *database.DB implements it; tests substitute a pass-through.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}
