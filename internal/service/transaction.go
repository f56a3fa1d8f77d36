package service

import (
	"context"
	"sort"

	"WalletLedger/internal/model"
	"WalletLedger/internal/repository"
)

// TransactionRequest describes a movement submitted for later approval.
type TransactionRequest struct {
	SenderID   string
	ReceiverID string
	Type       model.TransactionType
	Amount     model.Money
}

// settleNew records a movement and applies it at once. A movement the
// wallets refuse is stored as rejected and its error returned; the wallets
// are left as they were.
func (s *ledgerService) settleNew(ctx context.Context, senderID, receiverID string, kind model.TransactionType, amount model.Money) (*model.Transaction, error) {
	record, err := model.NewTransaction(senderID, receiverID, kind, amount, s.modelOpts...)
	if err != nil {
		return nil, err
	}

	var refused error
	err = s.submit(ctx, senderID, func(ctx context.Context) error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			wallets, err := applyMovement(ctx, tx, record)
			if err != nil {
				if !isDomainError(err) {
					return err
				}
				refused = err
				if err := record.Reject(err.Error()); err != nil {
					return err
				}
				return tx.SaveTransaction(ctx, record)
			}
			if err := record.Approve(); err != nil {
				return err
			}
			return saveAll(ctx, tx, record, wallets)
		})
	})
	if err != nil {
		s.logFailure(string(kind), err, "senderId", senderID, "receiverId", receiverID, "amount", amount.String())
		return nil, err
	}
	if refused != nil {
		s.log.Warn(string(kind)+" rejected", "transactionId", record.ID(), "senderId", senderID,
			"receiverId", receiverID, "amount", amount.String(), "reason", model.ReasonOf(refused))
		return nil, refused
	}

	s.log.Info(string(kind)+" approved", "transactionId", record.ID(), "senderId", senderID,
		"receiverId", receiverID, "amount", amount.String())
	return record, nil
}

func (s *ledgerService) SubmitTransaction(ctx context.Context, req TransactionRequest) (*model.Transaction, error) {
	record, err := model.NewTransaction(req.SenderID, req.ReceiverID, req.Type, req.Amount, s.modelOpts...)
	if err != nil {
		return nil, err
	}

	for _, id := range walletIDs(record) {
		w, err := s.store.GetWallet(ctx, id)
		if err != nil {
			return nil, err
		}
		if w.Currency() != req.Amount.Currency() {
			return nil, &model.Error{
				Code:    model.CodeConflict,
				Reason:  model.ReasonCurrencyMismatch,
				Message: "wallet " + id + " holds " + string(w.Currency()) + ", not " + string(req.Amount.Currency()),
			}
		}
	}

	if err := s.store.SaveTransaction(ctx, record); err != nil {
		s.log.Error("submit transaction failed", "error", err)
		return nil, err
	}
	s.log.Info("transaction submitted", "transactionId", record.ID(), "type", string(record.Type()),
		"amount", record.Amount().String())
	return record, nil
}

// ApproveTransaction applies a pending movement and approves it. When the
// wallets refuse the movement the record stays pending.
func (s *ledgerService) ApproveTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	pending, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var approved *model.Transaction
	err = s.submit(ctx, pending.SenderID(), func(ctx context.Context) error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			record, err := tx.LockTransaction(ctx, transactionID)
			if err != nil {
				return err
			}
			if record.IsTerminal() {
				return record.Approve()
			}
			wallets, err := applyMovement(ctx, tx, record)
			if err != nil {
				return err
			}
			if err := record.Approve(); err != nil {
				return err
			}
			if err := saveAll(ctx, tx, record, wallets); err != nil {
				return err
			}
			approved = record
			return nil
		})
	})
	if err != nil {
		s.logFailure("approve transaction", err, "transactionId", transactionID)
		return nil, err
	}
	s.log.Info("transaction approved", "transactionId", transactionID)
	return approved, nil
}

func (s *ledgerService) RejectTransaction(ctx context.Context, transactionID, reason string) (*model.Transaction, error) {
	var rejected *model.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		record, err := tx.LockTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := record.Reject(reason); err != nil {
			return err
		}
		if err := tx.SaveTransaction(ctx, record); err != nil {
			return err
		}
		rejected = record
		return nil
	})
	if err != nil {
		s.logFailure("reject transaction", err, "transactionId", transactionID)
		return nil, err
	}
	s.log.Info("transaction rejected", "transactionId", transactionID, "reason", rejected.Reason())
	return rejected, nil
}

func (s *ledgerService) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	return s.store.GetTransaction(ctx, transactionID)
}

func (s *ledgerService) ListTransactions(ctx context.Context, walletID string) ([]*model.Transaction, error) {
	if _, err := s.store.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, walletID, s.historyLimit)
}

// walletIDs lists the wallets a record moves money through. Deposits and
// withdrawals act on the sender wallet.
func walletIDs(record *model.Transaction) []string {
	if record.Type() == model.Transfer {
		return []string{record.SenderID(), record.ReceiverID()}
	}
	return []string{record.SenderID()}
}

// applyMovement locks the wallets of record in id order and applies the
// movement to them in memory.
func applyMovement(ctx context.Context, tx repository.Tx, record *model.Transaction) ([]*model.Wallet, error) {
	ids := walletIDs(record)
	locked := append([]string(nil), ids...)
	sort.Strings(locked)

	byID := make(map[string]*model.Wallet, len(locked))
	for _, id := range locked {
		w, err := tx.LockWallet(ctx, id)
		if err != nil {
			return nil, err
		}
		byID[id] = w
	}

	sender := byID[record.SenderID()]
	var err error
	switch record.Type() {
	case model.Deposit:
		err = sender.Deposit(record.Amount())
	case model.Withdrawal:
		err = sender.Withdraw(record.Amount())
	case model.Transfer:
		err = sender.TransferTo(byID[record.ReceiverID()], record.Amount())
	default:
		err = model.ErrInvalidOperation
	}
	if err != nil {
		return nil, err
	}

	wallets := make([]*model.Wallet, 0, len(locked))
	for _, id := range locked {
		wallets = append(wallets, byID[id])
	}
	return wallets, nil
}

func saveAll(ctx context.Context, tx repository.Tx, record *model.Transaction, wallets []*model.Wallet) error {
	for _, w := range wallets {
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
	}
	return tx.SaveTransaction(ctx, record)
}

// isDomainError reports whether err is a refusal by the ledger model rather
// than a lookup or infrastructure failure.
func isDomainError(err error) bool {
	switch model.CodeOf(err) {
	case model.CodeValidation, model.CodeInvariant, model.CodeConflict, model.CodeDivisionByZero:
		return true
	}
	return false
}
