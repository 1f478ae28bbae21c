package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner starts transactions. *pgxpool.Pool satisfies this interface.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// vaultLockSpace is the first key of every vault advisory lock.
const vaultLockSpace int32 = 7301

// AdvisoryLock serializes per-organization work across processes with a
// transaction-scoped PostgreSQL advisory lock.
type AdvisoryLock struct {
	db TxBeginner
}

func NewAdvisoryLock(db TxBeginner) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// Lock blocks until the organization's lock is held. The returned func
// rolls back the holding transaction, which releases the lock.
func (l *AdvisoryLock) Lock(ctx context.Context, organizationID string) (func(), error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin lock transaction: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, vaultLockSpace, organizationID); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("acquire advisory lock for organization %s: %w", organizationID, err)
	}
	return func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}, nil
}
