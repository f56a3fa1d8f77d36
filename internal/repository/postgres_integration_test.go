package repository_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletLedger/internal/model"
	"WalletLedger/internal/repository"
)

// newPostgresRepository connects to TEST_DB_URL and applies the schema.
func newPostgresRepository(t *testing.T) *repository.PostgresRepository {
	t.Helper()
	dbURL := os.Getenv("TEST_DB_URL")
	if dbURL == "" {
		t.Skip("TEST_DB_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	repo := repository.NewPostgresRepository(db)
	migration, err := filepath.Abs(filepath.Join("..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(context.Background(), migration))
	return repo
}

func TestPostgresRepository_WalletRoundTrip(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	w := newWallet(t, 100)
	require.NoError(t, repo.SaveWallet(ctx, w))

	loaded, err := repo.GetWallet(ctx, w.ID())
	require.NoError(t, err)
	assert.Equal(t, w.ID(), loaded.ID())
	assert.True(t, w.Balance().Equals(loaded.Balance()))
	assert.True(t, loaded.IsActive())

	_, err = repo.GetWallet(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, model.ErrWalletNotFound)
}

func TestPostgresRepository_TransferInTx(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	from := newWallet(t, 100)
	to := newWallet(t, 0)
	require.NoError(t, repo.SaveWallet(ctx, from))
	require.NoError(t, repo.SaveWallet(ctx, to))

	record, err := model.NewTransaction(from.ID(), to.ID(), model.Transfer, model.MustMoney(30, model.USD))
	require.NoError(t, err)

	err = repo.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		src, err := tx.LockWallet(ctx, from.ID())
		if err != nil {
			return err
		}
		dst, err := tx.LockWallet(ctx, to.ID())
		if err != nil {
			return err
		}
		if err := src.TransferTo(dst, record.Amount()); err != nil {
			return err
		}
		if err := record.Approve(); err != nil {
			return err
		}
		for _, w := range []*model.Wallet{src, dst} {
			if err := tx.SaveWallet(ctx, w); err != nil {
				return err
			}
		}
		return tx.SaveTransaction(ctx, record)
	})
	require.NoError(t, err)

	src, err := repo.GetWallet(ctx, from.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(7000), src.Balance().MinorUnits())

	history, err := repo.ListTransactions(ctx, to.ID(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusApproved, history[0].Status())
}
