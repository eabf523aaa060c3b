package ports

import "context"

// Tx is an opaque transaction handle. The persistence adapter decides the
// concrete type (*gorm.DB for the relational store).
type Tx interface{}

// UnitOfWork runs fn inside one transaction: an error from fn rolls back,
// nil commits. Repositories called with the ctx passed to fn join the
// transaction.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) Tx {
	if ctx == nil {
		return nil
	}
	return ctx.Value(txKey{})
}
