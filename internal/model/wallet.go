package model

import (
	"time"
)

// Wallet is the balance aggregate of one owner. The balance is never
// negative; a wallet is removed logically and only while empty.
type Wallet struct {
	id        string
	ownerID   string
	balance   Money
	active    bool
	createdAt time.Time
	updatedAt time.Time
	now       func() time.Time
}

// WalletState is the persisted form of a Wallet.
type WalletState struct {
	ID        string
	OwnerID   string
	Balance   Money
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWallet opens an active wallet for ownerID holding initial.
func NewWallet(ownerID string, initial Money, opts ...Option) (*Wallet, error) {
	if ownerID == "" {
		return nil, validationError(ReasonInvalidOperation, "owner id is required")
	}
	if !initial.currency.IsValid() {
		return nil, validationError(ReasonInvalidCurrency, "currency %q is not supported", initial.currency)
	}
	if initial.IsNegative() {
		return nil, validationError(ReasonInvalidAmount, "initial balance %s must not be negative", initial)
	}

	o := buildOptions(opts)
	now := o.now()
	return &Wallet{
		id:        o.newID(),
		ownerID:   ownerID,
		balance:   initial,
		active:    true,
		createdAt: now,
		updatedAt: now,
		now:       o.now,
	}, nil
}

// NewEmptyWallet opens an active wallet with a zero balance.
func NewEmptyWallet(ownerID string, currency Currency, opts ...Option) (*Wallet, error) {
	return NewWallet(ownerID, Zero(currency), opts...)
}

// LoadWallet rebuilds a wallet from storage, rejecting states that break
// the aggregate invariants.
func LoadWallet(s WalletState, opts ...Option) (*Wallet, error) {
	if s.ID == "" || s.OwnerID == "" {
		return nil, validationError(ReasonInvalidOperation, "wallet state requires id and owner id")
	}
	if !s.Balance.currency.IsValid() {
		return nil, validationError(ReasonInvalidCurrency, "wallet %s has unsupported currency %q", s.ID, s.Balance.currency)
	}
	if s.Balance.IsNegative() {
		return nil, invariantError(ReasonInsufficientBalance, "wallet %s has negative balance %s", s.ID, s.Balance)
	}
	o := buildOptions(opts)
	return &Wallet{
		id:        s.ID,
		ownerID:   s.OwnerID,
		balance:   s.Balance,
		active:    s.Active,
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
		now:       o.now,
	}, nil
}

func (w *Wallet) ID() string           { return w.id }
func (w *Wallet) OwnerID() string      { return w.ownerID }
func (w *Wallet) Balance() Money       { return w.balance }
func (w *Wallet) Currency() Currency   { return w.balance.currency }
func (w *Wallet) IsActive() bool       { return w.active }
func (w *Wallet) CreatedAt() time.Time { return w.createdAt }
func (w *Wallet) UpdatedAt() time.Time { return w.updatedAt }

func (w *Wallet) State() WalletState {
	return WalletState{
		ID:        w.id,
		OwnerID:   w.ownerID,
		Balance:   w.balance,
		Active:    w.active,
		CreatedAt: w.createdAt,
		UpdatedAt: w.updatedAt,
	}
}

// Deposit credits a positive amount.
func (w *Wallet) Deposit(amount Money) error {
	if err := w.checkMovement(amount); err != nil {
		return err
	}
	balance, err := w.balance.Add(amount)
	if err != nil {
		return err
	}
	w.balance = balance
	w.touch()
	return nil
}

// Withdraw debits a positive amount no larger than the balance.
func (w *Wallet) Withdraw(amount Money) error {
	if err := w.checkMovement(amount); err != nil {
		return err
	}
	short, err := w.balance.LessThan(amount)
	if err != nil {
		return err
	}
	if short {
		e := invariantError(ReasonInsufficientBalance,
			"insufficient balance in wallet %s: current balance %s, required %s", w.id, w.balance, amount)
		e.Metadata = map[string]string{"walletId": w.id, "balance": w.balance.String(), "required": amount.String()}
		return e
	}
	balance, err := w.balance.Subtract(amount)
	if err != nil {
		return err
	}
	w.balance = balance
	w.touch()
	return nil
}

// TransferTo moves amount from w into target. Both wallets are left
// untouched when either side refuses the movement. Persisting both
// wallets atomically is up to the caller.
func (w *Wallet) TransferTo(target *Wallet, amount Money) error {
	if target == nil {
		return validationError(ReasonInvalidOperation, "transfer target is required")
	}
	if target == w || target.id == w.id {
		return validationError(ReasonSelfTransfer, "cannot transfer wallet %s to itself", w.id)
	}

	before := w.State()
	if err := w.Withdraw(amount); err != nil {
		return err
	}
	if err := target.Deposit(amount); err != nil {
		w.balance = before.Balance
		w.updatedAt = before.UpdatedAt
		return err
	}
	return nil
}

// Remove deactivates an empty wallet.
func (w *Wallet) Remove() error {
	if !w.active {
		return invariantError(ReasonAlreadyRemoved, "cannot remove wallet %s: it has already been removed", w.id)
	}
	if w.balance.IsPositive() {
		e := invariantError(ReasonHasBalance,
			"cannot remove wallet %s: current balance is %s, but it must be zero", w.id, w.balance)
		e.Metadata = map[string]string{"walletId": w.id, "balance": w.balance.String()}
		return e
	}
	w.active = false
	w.touch()
	return nil
}

// Restore reactivates a removed wallet.
func (w *Wallet) Restore() error {
	if w.active {
		return invariantError(ReasonAlreadyActive, "cannot restore wallet %s: it is already active", w.id)
	}
	w.active = true
	w.touch()
	return nil
}

func (w *Wallet) checkMovement(amount Money) error {
	if !amount.IsPositive() {
		return validationError(ReasonInvalidAmount, "amount %s must be greater than zero", amount)
	}
	if !w.active {
		return invariantError(ReasonInactive, "wallet %s is not active", w.id)
	}
	return nil
}

func (w *Wallet) touch() {
	if w.now == nil {
		w.updatedAt = time.Now().UTC()
		return
	}
	w.updatedAt = w.now()
}
