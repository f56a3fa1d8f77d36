package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lib/pq"

	"WalletLedger/internal/model"
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresRepository struct {
	pgQueries
	db *sql.DB
}

// NewPostgresRepository wraps db. opts are applied to every loaded aggregate.
func NewPostgresRepository(db *sql.DB, opts ...model.Option) *PostgresRepository {
	return &PostgresRepository{pgQueries: pgQueries{q: db, opts: opts}, db: db}
}

func (r *PostgresRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(ctx, &pgTx{pgQueries{q: sqlTx, opts: r.opts}}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// RunMigrations executes the SQL file at path, resolved against the
// working directory when relative.
func (r *PostgresRepository) RunMigrations(ctx context.Context, path string) error {
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, path)
	}

	migration, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read migration file at %s: %w", path, err)
	}

	if _, err := r.db.ExecContext(ctx, string(migration)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	return nil
}

type pgTx struct {
	pgQueries
}

func (t *pgTx) LockWallet(ctx context.Context, id string) (*model.Wallet, error) {
	return t.getWallet(ctx, walletSelect+" WHERE id = $1 FOR UPDATE", id)
}

func (t *pgTx) LockTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	return t.getTransaction(ctx, transactionSelect+" WHERE id = $1 FOR UPDATE", id)
}

type pgQueries struct {
	q    querier
	opts []model.Option
}

const walletSelect = `SELECT id::text, owner_id, balance, currency, active, created_at, updated_at FROM wallets`

const transactionSelect = `SELECT id::text, sender_id::text, receiver_id::text, type, status, amount, currency, reason, created_at, updated_at FROM transactions`

func (p pgQueries) GetWallet(ctx context.Context, id string) (*model.Wallet, error) {
	return p.getWallet(ctx, walletSelect+" WHERE id = $1", id)
}

func (p pgQueries) getWallet(ctx context.Context, query, id string) (*model.Wallet, error) {
	var (
		s        model.WalletState
		cents    int64
		currency string
	)
	err := p.q.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.OwnerID, &cents, &currency, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.WalletNotFound(id)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	s.Balance, err = model.NewMoneyFromMinor(cents, model.Currency(currency))
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", id, err)
	}
	return model.LoadWallet(s, p.opts...)
}

func (p pgQueries) SaveWallet(ctx context.Context, w *model.Wallet) error {
	s := w.State()
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO wallets (id, owner_id, balance, currency, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			balance = EXCLUDED.balance,
			currency = EXCLUDED.currency,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		s.ID, s.OwnerID, s.Balance.MinorUnits(), string(s.Balance.Currency()), s.Active, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return mapPQError("failed to save wallet", err)
	}
	return nil
}

func (p pgQueries) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	return p.getTransaction(ctx, transactionSelect+" WHERE id = $1", id)
}

func (p pgQueries) getTransaction(ctx context.Context, query, id string) (*model.Transaction, error) {
	t, err := p.scanTransaction(p.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.TransactionNotFound(id)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p pgQueries) scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		s        model.TransactionState
		receiver sql.NullString
		kind     string
		status   string
		cents    int64
		currency string
	)
	if err := row.Scan(&s.ID, &s.SenderID, &receiver, &kind, &status, &cents, &currency,
		&s.Reason, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}

	amount, err := model.NewMoneyFromMinor(cents, model.Currency(currency))
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", s.ID, err)
	}
	s.Amount = amount
	s.ReceiverID = receiver.String
	s.Type = model.TransactionType(kind)
	s.Status = model.TransactionStatus(status)
	return model.LoadTransaction(s, p.opts...)
}

func (p pgQueries) SaveTransaction(ctx context.Context, t *model.Transaction) error {
	s := t.State()
	receiver := sql.NullString{String: s.ReceiverID, Valid: s.ReceiverID != ""}
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO transactions (id, sender_id, receiver_id, type, status, amount, currency, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at`,
		s.ID, s.SenderID, receiver, string(s.Type), string(s.Status), s.Amount.MinorUnits(),
		string(s.Amount.Currency()), s.Reason, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return mapPQError("failed to save transaction", err)
	}
	return nil
}

func (p pgQueries) ListTransactions(ctx context.Context, walletID string, limit int) ([]*model.Transaction, error) {
	// LIMIT NULL is LIMIT ALL
	var rowLimit any
	if limit > 0 {
		rowLimit = limit
	}
	rows, err := p.q.QueryContext(ctx,
		transactionSelect+` WHERE sender_id = $1 OR receiver_id = $1 ORDER BY created_at DESC, id LIMIT $2`,
		walletID, rowLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := p.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return out, nil
}

// mapPQError turns constraint violations into ledger errors so callers can
// tell them apart from infrastructure failures.
func mapPQError(msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqCheckViolation:
			return &model.Error{Code: model.CodeInvariant, Message: msg + ": " + pqErr.Message, Cause: err}
		case pqUniqueViolation:
			return &model.Error{Code: model.CodeConflict, Message: msg + ": " + pqErr.Message, Cause: err}
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
