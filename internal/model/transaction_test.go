package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletLedger/internal/model"
)

func TestNewTransaction(t *testing.T) {
	clock := &fixedClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tx, err := model.NewTransaction("sender-a", "receiver-b", model.Transfer, model.MustMoney(50, model.USD),
		model.WithIDGenerator(sequentialIDs("tx")),
		model.WithClock(clock.Now))
	require.NoError(t, err)

	assert.Equal(t, "tx-1", tx.ID())
	assert.Equal(t, "sender-a", tx.SenderID())
	assert.Equal(t, "receiver-b", tx.ReceiverID())
	assert.True(t, tx.HasReceiver())
	assert.Equal(t, model.Transfer, tx.Type())
	assert.Equal(t, model.StatusPending, tx.Status())
	assert.False(t, tx.IsTerminal())
	assert.Equal(t, clock.now, tx.CreatedAt())
	assert.Equal(t, clock.now, tx.UpdatedAt())
}

func TestNewTransaction_ValidationErrors(t *testing.T) {
	fifty := model.MustMoney(50, model.USD)

	testCases := []struct {
		name     string
		sender   string
		receiver string
		kind     model.TransactionType
		amount   model.Money
		expected error
	}{
		{name: "Unknown type", sender: "a", kind: "refund", amount: fifty, expected: model.ErrInvalidOperation},
		{name: "Zero amount", sender: "a", kind: model.Deposit, amount: model.Zero(model.USD), expected: model.ErrInvalidAmount},
		{name: "Negative amount", sender: "a", kind: model.Withdrawal, amount: model.MustMoney(-1, model.USD), expected: model.ErrInvalidAmount},
		{name: "Missing sender", sender: "", kind: model.Deposit, amount: fifty, expected: model.ErrValidation},
		{name: "Transfer to self", sender: "a", receiver: "a", kind: model.Transfer, amount: fifty, expected: model.ErrSelfTransfer},
		{name: "Transfer without receiver", sender: "a", kind: model.Transfer, amount: fifty, expected: model.ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := model.NewTransaction(tc.sender, tc.receiver, tc.kind, tc.amount)
			assert.ErrorIs(t, err, tc.expected)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestNewTransaction_DepositWithoutReceiver(t *testing.T) {
	tx, err := model.NewTransaction("wallet-1", "", model.Deposit, model.MustMoney(1, model.BRL))
	require.NoError(t, err)
	assert.False(t, tx.HasReceiver())
	assert.NotEmpty(t, tx.ID())
}

func TestTransaction_ApproveOnce(t *testing.T) {
	clock := &fixedClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tx, err := model.NewTransaction("sender-a", "receiver-b", model.Transfer, model.MustMoney(50, model.USD),
		model.WithClock(clock.Now))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, tx.Approve())
	assert.Equal(t, model.StatusApproved, tx.Status())
	assert.True(t, tx.IsTerminal())
	assert.Equal(t, clock.now, tx.UpdatedAt())

	err = tx.Reject("too late")
	assert.ErrorIs(t, err, model.ErrInvariantViolation)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, model.StatusApproved, tx.Status())
	assert.Empty(t, tx.Reason())

	assert.ErrorIs(t, tx.Approve(), model.ErrInvalidTransition)
	assert.Equal(t, model.StatusApproved, tx.Status())
}

func TestTransaction_RejectOnce(t *testing.T) {
	tx, err := model.NewTransaction("wallet-1", "", model.Withdrawal, model.MustMoney(5, model.EUR))
	require.NoError(t, err)

	require.NoError(t, tx.Reject("  insufficient balance "))
	assert.Equal(t, model.StatusRejected, tx.Status())
	assert.Equal(t, "insufficient balance", tx.Reason())

	assert.ErrorIs(t, tx.Reject("again"), model.ErrInvalidTransition)
	assert.ErrorIs(t, tx.Approve(), model.ErrInvalidTransition)
	assert.Equal(t, model.StatusRejected, tx.Status())
	assert.Equal(t, "insufficient balance", tx.Reason())
}

func TestTransaction_ImmutableFields(t *testing.T) {
	tx, err := model.NewTransaction("sender-a", "receiver-b", model.Transfer, model.MustMoney(50, model.USD))
	require.NoError(t, err)
	before := tx.State()

	require.NoError(t, tx.Approve())
	after := tx.State()

	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.SenderID, after.SenderID)
	assert.Equal(t, before.ReceiverID, after.ReceiverID)
	assert.Equal(t, before.Type, after.Type)
	assert.True(t, before.Amount.Equals(after.Amount))
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

func TestLoadTransaction(t *testing.T) {
	state := model.TransactionState{
		ID:        "tx-9",
		SenderID:  "wallet-1",
		Type:      model.Deposit,
		Status:    model.StatusRejected,
		Amount:    model.MustMoney(3, model.USD),
		Reason:    "manual",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	tx, err := model.LoadTransaction(state)
	require.NoError(t, err)
	assert.Equal(t, state, tx.State())
	assert.ErrorIs(t, tx.Approve(), model.ErrInvalidTransition)

	state.Status = "settled"
	_, err = model.LoadTransaction(state)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestParseTransactionType(t *testing.T) {
	kind, err := model.ParseTransactionType("TRANSFER")
	require.NoError(t, err)
	assert.Equal(t, model.Transfer, kind)

	_, err = model.ParseTransactionType("refund")
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
}
