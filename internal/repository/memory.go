package repository

import (
	"context"
	"sort"
	"sync"

	"WalletLedger/internal/model"
)

// MemoryRepository keeps aggregates in process memory. Units of work run
// one at a time and stage their writes until commit.
type MemoryRepository struct {
	txMu sync.Mutex

	mu           sync.RWMutex
	wallets      map[string]model.WalletState
	transactions map[string]model.TransactionState
	seq          map[string]int
	next         int

	opts []model.Option
}

func NewMemoryRepository(opts ...model.Option) *MemoryRepository {
	return &MemoryRepository{
		wallets:      make(map[string]model.WalletState),
		transactions: make(map[string]model.TransactionState),
		seq:          make(map[string]int),
		opts:         opts,
	}
}

func (r *MemoryRepository) GetWallet(ctx context.Context, id string) (*model.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	s, ok := r.wallets[id]
	r.mu.RUnlock()
	if !ok {
		return nil, model.WalletNotFound(id)
	}
	return model.LoadWallet(s, r.opts...)
}

func (r *MemoryRepository) SaveWallet(ctx context.Context, w *model.Wallet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID()] = w.State()
	return nil
}

func (r *MemoryRepository) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	s, ok := r.transactions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, model.TransactionNotFound(id)
	}
	return model.LoadTransaction(s, r.opts...)
}

func (r *MemoryRepository) SaveTransaction(ctx context.Context, t *model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putTransaction(t.State())
	return nil
}

// putTransaction requires r.mu held for writing.
func (r *MemoryRepository) putTransaction(s model.TransactionState) {
	if _, ok := r.seq[s.ID]; !ok {
		r.next++
		r.seq[s.ID] = r.next
	}
	r.transactions[s.ID] = s
}

func (r *MemoryRepository) ListTransactions(ctx context.Context, walletID string, limit int) ([]*model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var states []model.TransactionState
	for _, s := range r.transactions {
		if s.SenderID == walletID || s.ReceiverID == walletID {
			states = append(states, s)
		}
	}
	seq := make(map[string]int, len(states))
	for _, s := range states {
		seq[s.ID] = r.seq[s.ID]
	}
	r.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		if !states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].CreatedAt.After(states[j].CreatedAt)
		}
		return seq[states[i].ID] > seq[states[j].ID]
	})
	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}

	out := make([]*model.Transaction, 0, len(states))
	for _, s := range states {
		t, err := model.LoadTransaction(s, r.opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *MemoryRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		repo:         r,
		wallets:      make(map[string]model.WalletState),
		transactions: make(map[string]model.TransactionState),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range tx.wallets {
		r.wallets[id] = s
	}
	for _, id := range tx.order {
		r.putTransaction(tx.transactions[id])
	}
	return nil
}

type memoryTx struct {
	repo         *MemoryRepository
	wallets      map[string]model.WalletState
	transactions map[string]model.TransactionState
	order        []string
}

func (t *memoryTx) GetWallet(ctx context.Context, id string) (*model.Wallet, error) {
	if s, ok := t.wallets[id]; ok {
		return model.LoadWallet(s, t.repo.opts...)
	}
	return t.repo.GetWallet(ctx, id)
}

// LockWallet is GetWallet: units of work are already serialized.
func (t *memoryTx) LockWallet(ctx context.Context, id string) (*model.Wallet, error) {
	return t.GetWallet(ctx, id)
}

func (t *memoryTx) SaveWallet(ctx context.Context, w *model.Wallet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.wallets[w.ID()] = w.State()
	return nil
}

func (t *memoryTx) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if s, ok := t.transactions[id]; ok {
		return model.LoadTransaction(s, t.repo.opts...)
	}
	return t.repo.GetTransaction(ctx, id)
}

func (t *memoryTx) LockTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	return t.GetTransaction(ctx, id)
}

func (t *memoryTx) SaveTransaction(ctx context.Context, tr *model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.transactions[tr.ID()]; !ok {
		t.order = append(t.order, tr.ID())
	}
	t.transactions[tr.ID()] = tr.State()
	return nil
}

// ListTransactions reads committed records only.
func (t *memoryTx) ListTransactions(ctx context.Context, walletID string, limit int) ([]*model.Transaction, error) {
	return t.repo.ListTransactions(ctx, walletID, limit)
}
