package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"WalletLedger/internal/model"
	"WalletLedger/internal/service"
)

// Operation types accepted on a wallet's transactions route.
const (
	OperationDeposit  = "DEPOSIT"
	OperationWithdraw = "WITHDRAW"
)

type walletOperationRequest struct {
	OperationType string `json:"operationType"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

type transferRequest struct {
	FromWalletID string `json:"fromWalletId"`
	ToWalletID   string `json:"toWalletId"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

type submitRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type transactionResponse struct {
	TransactionID string    `json:"transactionId"`
	SenderID      string    `json:"senderId"`
	ReceiverID    string    `json:"receiverId,omitempty"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		TransactionID: t.ID(),
		SenderID:      t.SenderID(),
		ReceiverID:    t.ReceiverID(),
		Type:          string(t.Type()),
		Status:        string(t.Status()),
		Amount:        t.Amount().Decimal().StringFixed(model.MinorUnitPlaces),
		Currency:      string(t.Amount().Currency()),
		Reason:        t.Reason(),
		CreatedAt:     t.CreatedAt(),
		UpdatedAt:     t.UpdatedAt(),
	}
}

func parseAmount(amount, currency string) (model.Money, error) {
	c, err := model.ParseCurrency(currency)
	if err != nil {
		return model.Money{}, err
	}
	return model.ParseMoney(amount, c)
}

// HandleTransaction deposits into or withdraws from the wallet in the path.
func (h *WalletHandler) HandleTransaction(w http.ResponseWriter, r *http.Request) {
	walletID, ok := pathID(w, r, "wallet")
	if !ok {
		return
	}

	var req walletOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	op := strings.ToUpper(strings.TrimSpace(req.OperationType))
	if op != OperationDeposit && op != OperationWithdraw {
		sendErrorResponse(w, "Invalid operation type", http.StatusBadRequest)
		return
	}

	amount, err := parseAmount(req.Amount, req.Currency)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}

	var record *model.Transaction
	if op == OperationDeposit {
		record, err = h.service.Deposit(r.Context(), walletID, amount)
	} else {
		record, err = h.service.Withdraw(r.Context(), walletID, amount)
	}
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}

	sendSuccessResponse(w, toTransactionResponse(record))
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	walletID, ok := pathID(w, r, "wallet")
	if !ok {
		return
	}

	history, err := h.service.ListTransactions(r.Context(), walletID)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(history))
	for _, t := range history {
		out = append(out, toTransactionResponse(t))
	}
	sendSuccessResponse(w, out)
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if !isUUID(req.FromWalletID) || !isUUID(req.ToWalletID) {
		sendErrorResponse(w, "Invalid wallet ID format", http.StatusBadRequest)
		return
	}

	amount, err := parseAmount(req.Amount, req.Currency)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}

	record, err := h.service.Transfer(r.Context(), req.FromWalletID, req.ToWalletID, amount)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}

	sendSuccessResponse(w, toTransactionResponse(record))
}

// SubmitTransaction records a pending transaction for later approval.
func (h *WalletHandler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if !isUUID(req.SenderID) || (req.ReceiverID != "" && !isUUID(req.ReceiverID)) {
		sendErrorResponse(w, "Invalid wallet ID format", http.StatusBadRequest)
		return
	}

	kind, err := model.ParseTransactionType(req.Type)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount, req.Currency)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}

	record, err := h.service.SubmitTransaction(r.Context(), service.TransactionRequest{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Type:       kind,
		Amount:     amount,
	})
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}

	sendSuccessResponse(w, toTransactionResponse(record))
}

func (h *WalletHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := pathID(w, r, "transaction")
	if !ok {
		return
	}

	record, err := h.service.GetTransaction(r.Context(), transactionID)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	sendSuccessResponse(w, toTransactionResponse(record))
}

func (h *WalletHandler) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := pathID(w, r, "transaction")
	if !ok {
		return
	}

	record, err := h.service.ApproveTransaction(r.Context(), transactionID)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	sendSuccessResponse(w, toTransactionResponse(record))
}

// RejectTransaction accepts an optional {"reason": "..."} body.
func (h *WalletHandler) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := pathID(w, r, "transaction")
	if !ok {
		return
	}

	var req rejectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
			return
		}
	}

	record, err := h.service.RejectTransaction(r.Context(), transactionID, req.Reason)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	sendSuccessResponse(w, toTransactionResponse(record))
}
