package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and hands the
// transaction to fn as tx. Repositories accept that tx (or nil for the pool)
// and lock rows with SELECT ... FOR UPDATE when they see a real transaction.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		p, err := payments.FindByID(ctx, tx, id)
//		...
//		return err
//	})
//
// fn returning an error rolls everything back.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
