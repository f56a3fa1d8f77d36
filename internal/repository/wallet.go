package repository

import (
	"context"

	"WalletLedger/internal/model"
)

// WalletRepository loads and persists wallets. SaveWallet is a full
// replace of the stored row.
type WalletRepository interface {
	GetWallet(ctx context.Context, id string) (*model.Wallet, error)
	SaveWallet(ctx context.Context, w *model.Wallet) error
}

// TransactionRepository loads and persists transaction records.
type TransactionRepository interface {
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	SaveTransaction(ctx context.Context, t *model.Transaction) error
	// ListTransactions returns the newest records where walletID is the
	// sender or the receiver.
	ListTransactions(ctx context.Context, walletID string, limit int) ([]*model.Transaction, error)
}

// Tx is a unit of work. Lock* read a row and hold it until the unit ends.
type Tx interface {
	WalletRepository
	TransactionRepository
	LockWallet(ctx context.Context, id string) (*model.Wallet, error)
	LockTransaction(ctx context.Context, id string) (*model.Transaction, error)
}

// Store is the storage contract consumed by the ledger service. RunInTx
// commits when fn returns nil and rolls back otherwise.
type Store interface {
	WalletRepository
	TransactionRepository
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
