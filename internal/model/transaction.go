package model

import (
	"strings"
	"time"
)

type TransactionType string

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
	Transfer   TransactionType = "transfer"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case Deposit, Withdrawal, Transfer:
		return true
	}
	return false
}

// ParseTransactionType accepts a type name in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", validationError(ReasonInvalidOperation, "invalid transaction type %q", s)
	}
	return t, nil
}

type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Transaction is the audit record of one money movement. Only the status,
// the rejection reason and updatedAt change after creation, and the status
// leaves pending at most once.
type Transaction struct {
	id         string
	senderID   string
	receiverID string
	kind       TransactionType
	status     TransactionStatus
	amount     Money
	reason     string
	createdAt  time.Time
	updatedAt  time.Time
	now        func() time.Time
}

// TransactionState is the persisted form of a Transaction. An empty
// ReceiverID means no receiver.
type TransactionState struct {
	ID         string
	SenderID   string
	ReceiverID string
	Type       TransactionType
	Status     TransactionStatus
	Amount     Money
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewTransaction records a pending movement. receiverID is required for
// transfers and optional otherwise.
func NewTransaction(senderID, receiverID string, kind TransactionType, amount Money, opts ...Option) (*Transaction, error) {
	if err := validateTransaction(senderID, receiverID, kind, amount); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	now := o.now()
	return &Transaction{
		id:         o.newID(),
		senderID:   senderID,
		receiverID: receiverID,
		kind:       kind,
		status:     StatusPending,
		amount:     amount,
		createdAt:  now,
		updatedAt:  now,
		now:        o.now,
	}, nil
}

// LoadTransaction rebuilds a transaction from storage.
func LoadTransaction(s TransactionState, opts ...Option) (*Transaction, error) {
	if s.ID == "" {
		return nil, validationError(ReasonInvalidOperation, "transaction state requires an id")
	}
	if !s.Status.IsValid() {
		return nil, validationError(ReasonInvalidOperation, "transaction %s has invalid status %q", s.ID, s.Status)
	}
	if err := validateTransaction(s.SenderID, s.ReceiverID, s.Type, s.Amount); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Transaction{
		id:         s.ID,
		senderID:   s.SenderID,
		receiverID: s.ReceiverID,
		kind:       s.Type,
		status:     s.Status,
		amount:     s.Amount,
		reason:     s.Reason,
		createdAt:  s.CreatedAt,
		updatedAt:  s.UpdatedAt,
		now:        o.now,
	}, nil
}

func validateTransaction(senderID, receiverID string, kind TransactionType, amount Money) error {
	if !kind.IsValid() {
		return validationError(ReasonInvalidOperation, "invalid transaction type %q", kind)
	}
	if !amount.currency.IsValid() {
		return validationError(ReasonInvalidCurrency, "currency %q is not supported", amount.currency)
	}
	if !amount.IsPositive() {
		return validationError(ReasonInvalidAmount, "invalid amount %s: must be greater than zero", amount)
	}
	if senderID == "" {
		return validationError(ReasonInvalidOperation, "sender id is required")
	}
	if kind == Transfer {
		if receiverID == "" {
			return validationError(ReasonInvalidOperation, "receiver id is required for a transfer")
		}
		if senderID == receiverID {
			return validationError(ReasonSelfTransfer, "sender and receiver cannot be the same for a transfer")
		}
	}
	return nil
}

func (t *Transaction) ID() string                { return t.id }
func (t *Transaction) SenderID() string          { return t.senderID }
func (t *Transaction) ReceiverID() string        { return t.receiverID }
func (t *Transaction) Type() TransactionType     { return t.kind }
func (t *Transaction) Status() TransactionStatus { return t.status }
func (t *Transaction) Amount() Money             { return t.amount }
func (t *Transaction) Reason() string            { return t.reason }
func (t *Transaction) CreatedAt() time.Time      { return t.createdAt }
func (t *Transaction) UpdatedAt() time.Time      { return t.updatedAt }

func (t *Transaction) IsTerminal() bool {
	return t.status != StatusPending
}

// HasReceiver reports whether the transaction names a receiver.
func (t *Transaction) HasReceiver() bool {
	return t.receiverID != ""
}

func (t *Transaction) State() TransactionState {
	return TransactionState{
		ID:         t.id,
		SenderID:   t.senderID,
		ReceiverID: t.receiverID,
		Type:       t.kind,
		Status:     t.status,
		Amount:     t.amount,
		Reason:     t.reason,
		CreatedAt:  t.createdAt,
		UpdatedAt:  t.updatedAt,
	}
}

func (t *Transaction) Approve() error {
	return t.transition(StatusApproved)
}

// Reject closes a pending transaction, keeping reason for the audit trail.
func (t *Transaction) Reject(reason string) error {
	if err := t.transition(StatusRejected); err != nil {
		return err
	}
	t.reason = strings.TrimSpace(reason)
	return nil
}

func (t *Transaction) transition(to TransactionStatus) error {
	if t.status != StatusPending {
		e := invariantError(ReasonInvalidTransition, "cannot change status from %q to %q", t.status, to)
		e.Metadata = map[string]string{"transactionId": t.id, "from": string(t.status), "to": string(to)}
		return e
	}
	t.status = to
	if t.now == nil {
		t.updatedAt = time.Now().UTC()
	} else {
		t.updatedAt = t.now()
	}
	return nil
}
