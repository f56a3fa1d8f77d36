package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"WalletLedger/internal/logger"
	"WalletLedger/internal/model"
	"WalletLedger/internal/repository"
)

// ErrShutdown is returned for calls made after Shutdown.
var ErrShutdown = errors.New("ledger service is shut down")

// LedgerService orchestrates wallets and transaction records over a Store.
type LedgerService interface {
	CreateWallet(ctx context.Context, ownerID string, initial model.Money) (*model.Wallet, error)
	GetWallet(ctx context.Context, walletID string) (*model.Wallet, error)
	RemoveWallet(ctx context.Context, walletID string) (*model.Wallet, error)
	RestoreWallet(ctx context.Context, walletID string) (*model.Wallet, error)

	Deposit(ctx context.Context, walletID string, amount model.Money) (*model.Transaction, error)
	Withdraw(ctx context.Context, walletID string, amount model.Money) (*model.Transaction, error)
	Transfer(ctx context.Context, fromID, toID string, amount model.Money) (*model.Transaction, error)

	SubmitTransaction(ctx context.Context, req TransactionRequest) (*model.Transaction, error)
	ApproveTransaction(ctx context.Context, transactionID string) (*model.Transaction, error)
	RejectTransaction(ctx context.Context, transactionID, reason string) (*model.Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, walletID string) ([]*model.Transaction, error)

	Shutdown()
}

// Options tunes the worker pool. Zero values fall back to defaults.
type Options struct {
	Workers      int
	QueueSize    int
	HistoryLimit int
	Logger       *logger.Logger
	Model        []model.Option
}

const (
	defaultWorkers      = 16
	defaultQueueSize    = 10000
	defaultHistoryLimit = 50
)

type ledgerService struct {
	store        repository.Store
	log          *logger.Logger
	modelOpts    []model.Option
	historyLimit int

	mu      sync.RWMutex
	closed  bool
	queues  []chan job
	workers int
	wg      sync.WaitGroup
}

type job struct {
	ctx    context.Context
	run    func(ctx context.Context) error
	result chan error
}

// NewLedgerService starts the workers. Mutations touching the same primary
// wallet are queued on the same shard and applied in arrival order.
func NewLedgerService(store repository.Store, opts Options) LedgerService {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	queues := make([]chan job, opts.Workers)
	for i := range queues {
		queues[i] = make(chan job, opts.QueueSize)
	}

	s := &ledgerService{
		store:        store,
		log:          opts.Logger,
		modelOpts:    opts.Model,
		historyLimit: opts.HistoryLimit,
		queues:       queues,
		workers:      opts.Workers,
	}

	for i := 0; i < opts.Workers; i++ {
		s.wg.Add(1)
		go s.processJobs(i)
	}

	return s
}

func (s *ledgerService) getShard(walletID string) int {
	h := fnv.New32a()
	h.Write([]byte(walletID))
	return int(h.Sum32() % uint32(s.workers))
}

// submit runs fn on the shard owning key and waits for its result.
func (s *ledgerService) submit(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	resultChan := make(chan error, 1)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrShutdown
	}
	select {
	case s.queues[s.getShard(key)] <- job{ctx: ctx, run: fn, result: resultChan}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ledgerService) processJobs(shardIndex int) {
	defer s.wg.Done()
	for j := range s.queues[shardIndex] {
		j.result <- j.run(j.ctx)
	}
}

func (s *ledgerService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for i := range s.queues {
		close(s.queues[i])
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *ledgerService) CreateWallet(ctx context.Context, ownerID string, initial model.Money) (*model.Wallet, error) {
	w, err := model.NewWallet(ownerID, initial, s.modelOpts...)
	if err != nil {
		return nil, err
	}

	var opening *model.Transaction
	if initial.IsPositive() {
		opening, err = model.NewTransaction(w.ID(), "", model.Deposit, initial, s.modelOpts...)
		if err != nil {
			return nil, err
		}
		if err := opening.Approve(); err != nil {
			return nil, err
		}
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		if opening != nil {
			return tx.SaveTransaction(ctx, opening)
		}
		return nil
	})
	if err != nil {
		s.log.Error("create wallet failed", "ownerId", ownerID, "error", err)
		return nil, err
	}

	s.log.Info("wallet created", "walletId", w.ID(), "ownerId", ownerID, "balance", w.Balance().String())
	return w, nil
}

func (s *ledgerService) GetWallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	return s.store.GetWallet(ctx, walletID)
}

func (s *ledgerService) RemoveWallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	return s.updateWallet(ctx, walletID, "wallet removed", (*model.Wallet).Remove)
}

func (s *ledgerService) RestoreWallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	return s.updateWallet(ctx, walletID, "wallet restored", (*model.Wallet).Restore)
}

func (s *ledgerService) updateWallet(ctx context.Context, walletID, event string, mutate func(*model.Wallet) error) (*model.Wallet, error) {
	var updated *model.Wallet
	err := s.submit(ctx, walletID, func(ctx context.Context) error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			w, err := tx.LockWallet(ctx, walletID)
			if err != nil {
				return err
			}
			if err := mutate(w); err != nil {
				return err
			}
			if err := tx.SaveWallet(ctx, w); err != nil {
				return err
			}
			updated = w
			return nil
		})
	})
	if err != nil {
		s.logFailure(event, err, "walletId", walletID)
		return nil, err
	}
	s.log.Info(event, "walletId", walletID)
	return updated, nil
}

func (s *ledgerService) Deposit(ctx context.Context, walletID string, amount model.Money) (*model.Transaction, error) {
	return s.settleNew(ctx, walletID, "", model.Deposit, amount)
}

func (s *ledgerService) Withdraw(ctx context.Context, walletID string, amount model.Money) (*model.Transaction, error) {
	return s.settleNew(ctx, walletID, "", model.Withdrawal, amount)
}

func (s *ledgerService) Transfer(ctx context.Context, fromID, toID string, amount model.Money) (*model.Transaction, error) {
	return s.settleNew(ctx, fromID, toID, model.Transfer, amount)
}

func (s *ledgerService) logFailure(event string, err error, keysAndValues ...interface{}) {
	keysAndValues = append(keysAndValues, "error", err)
	if isDomainError(err) || model.CodeOf(err) == model.CodeNotFound {
		s.log.Warn(event+" refused", keysAndValues...)
		return
	}
	s.log.Error(event+" failed", keysAndValues...)
}
