package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletLedger/internal/model"
	"WalletLedger/internal/repository"
)

func newWallet(t *testing.T, balance float64) *model.Wallet {
	t.Helper()
	w, err := model.NewWallet("owner-1", model.MustMoney(balance, model.USD))
	require.NoError(t, err)
	return w
}

func TestMemoryRepository_Wallets(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()

	_, err := repo.GetWallet(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrWalletNotFound)

	w := newWallet(t, 10)
	require.NoError(t, repo.SaveWallet(ctx, w))

	loaded, err := repo.GetWallet(ctx, w.ID())
	require.NoError(t, err)
	assert.Equal(t, w.State(), loaded.State())

	// loaded aggregates are independent copies
	require.NoError(t, loaded.Deposit(model.MustMoney(5, model.USD)))
	again, err := repo.GetWallet(ctx, w.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), again.Balance().MinorUnits())
}

func TestMemoryRepository_RunInTxCommits(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	w := newWallet(t, 10)
	require.NoError(t, repo.SaveWallet(ctx, w))

	err := repo.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.LockWallet(ctx, w.ID())
		if err != nil {
			return err
		}
		if err := locked.Withdraw(model.MustMoney(4, model.USD)); err != nil {
			return err
		}
		if err := tx.SaveWallet(ctx, locked); err != nil {
			return err
		}

		// reads inside the unit see staged writes
		staged, err := tx.GetWallet(ctx, w.ID())
		if err != nil {
			return err
		}
		assert.Equal(t, int64(600), staged.Balance().MinorUnits())

		record, err := model.NewTransaction(w.ID(), "", model.Withdrawal, model.MustMoney(4, model.USD))
		if err != nil {
			return err
		}
		return tx.SaveTransaction(ctx, record)
	})
	require.NoError(t, err)

	loaded, err := repo.GetWallet(ctx, w.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(600), loaded.Balance().MinorUnits())

	history, err := repo.ListTransactions(ctx, w.ID(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMemoryRepository_RunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	w := newWallet(t, 10)
	require.NoError(t, repo.SaveWallet(ctx, w))
	boom := errors.New("boom")

	err := repo.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.LockWallet(ctx, w.ID())
		require.NoError(t, err)
		require.NoError(t, locked.Deposit(model.MustMoney(90, model.USD)))
		require.NoError(t, tx.SaveWallet(ctx, locked))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	loaded, err := repo.GetWallet(ctx, w.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), loaded.Balance().MinorUnits())
}

func TestMemoryRepository_RunInTxCanceledContext(t *testing.T) {
	repo := repository.NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryRepository_Transactions(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := repository.NewMemoryRepository()

	_, err := repo.GetTransaction(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)

	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		tr, err := model.NewTransaction("wallet-a", "wallet-b", model.Transfer, model.MustMoney(1, model.USD),
			model.WithClock(func() time.Time { return at }))
		require.NoError(t, err)
		require.NoError(t, repo.SaveTransaction(ctx, tr))
		ids = append(ids, tr.ID())
	}
	other, err := model.NewTransaction("wallet-c", "", model.Deposit, model.MustMoney(1, model.USD))
	require.NoError(t, err)
	require.NoError(t, repo.SaveTransaction(ctx, other))

	history, err := repo.ListTransactions(ctx, "wallet-b", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ids[2], history[0].ID())
	assert.Equal(t, ids[1], history[1].ID())

	all, err := repo.ListTransactions(ctx, "wallet-a", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	loaded, err := repo.GetTransaction(ctx, ids[0])
	require.NoError(t, err)
	require.NoError(t, loaded.Approve())
	require.NoError(t, repo.SaveTransaction(ctx, loaded))

	again, err := repo.GetTransaction(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, again.Status())
}
