package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockTx overrides the pgx.Tx methods the advisory lock uses.
type mockTx struct {
	pgx.Tx
	mock.Mock
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockTx) Rollback(ctx context.Context) error {
	return m.Called().Error(0)
}

type mockBeginner struct {
	mock.Mock
}

func (m *mockBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func TestAdvisoryLock_LockAndRelease(t *testing.T) {
	ctx := context.Background()
	tx := &mockTx{}
	db := &mockBeginner{}
	db.On("Begin", ctx).Return(tx, nil)
	tx.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "pg_advisory_xact_lock", "hashtext($2)")
	}), []any{vaultLockSpace, "org-1"}).Return(pgconn.NewCommandTag("SELECT 1"), nil)
	tx.On("Rollback").Return(nil).Once()

	unlock, err := NewAdvisoryLock(db).Lock(ctx, "org-1")
	require.NoError(t, err)
	tx.AssertNotCalled(t, "Rollback")

	unlock()
	tx.AssertExpectations(t)
	db.AssertExpectations(t)
}

func TestAdvisoryLock_BeginError(t *testing.T) {
	ctx := context.Background()
	db := &mockBeginner{}
	db.On("Begin", ctx).Return(nil, errors.New("pool closed"))

	_, err := NewAdvisoryLock(db).Lock(ctx, "org-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin lock transaction: pool closed")
}

func TestAdvisoryLock_LockErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	tx := &mockTx{}
	db := &mockBeginner{}
	db.On("Begin", ctx).Return(tx, nil)
	tx.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("canceling statement due to lock timeout"))
	tx.On("Rollback").Return(nil).Once()

	_, err := NewAdvisoryLock(db).Lock(ctx, "org-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire advisory lock for organization org-1")
	tx.AssertExpectations(t)
}
