package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"WalletLedger/internal/logger"
	"WalletLedger/internal/model"
	"WalletLedger/internal/service"

	"github.com/google/uuid"
)

type WalletHandler struct {
	service service.LedgerService
	log     *logger.Logger
}

// NewWalletHandler serves the ledger API. Failed requests that end in a 5xx
// are logged on log; a nil log discards them.
func NewWalletHandler(service service.LedgerService, log *logger.Logger) *WalletHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &WalletHandler{service: service, log: log}
}

// Routes mounts the ledger API on mux.
func (h *WalletHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/wallets", h.CreateWallet)
	mux.HandleFunc("GET /api/v1/wallets/{id}", h.GetWallet)
	mux.HandleFunc("DELETE /api/v1/wallets/{id}", h.RemoveWallet)
	mux.HandleFunc("POST /api/v1/wallets/{id}/restore", h.RestoreWallet)
	mux.HandleFunc("POST /api/v1/wallets/{id}/transactions", h.HandleTransaction)
	mux.HandleFunc("GET /api/v1/wallets/{id}/transactions", h.ListTransactions)
	mux.HandleFunc("POST /api/v1/transfers", h.Transfer)
	mux.HandleFunc("POST /api/v1/transactions", h.SubmitTransaction)
	mux.HandleFunc("GET /api/v1/transactions/{id}", h.GetTransaction)
	mux.HandleFunc("POST /api/v1/transactions/{id}/approve", h.ApproveTransaction)
	mux.HandleFunc("POST /api/v1/transactions/{id}/reject", h.RejectTransaction)
}

type createWalletRequest struct {
	OwnerID        string `json:"ownerId"`
	Currency       string `json:"currency"`
	InitialBalance string `json:"initialBalance"`
}

type walletResponse struct {
	WalletID  string    `json:"walletId"`
	OwnerID   string    `json:"ownerId"`
	Balance   string    `json:"balance"`
	Currency  string    `json:"currency"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toWalletResponse(w *model.Wallet) walletResponse {
	return walletResponse{
		WalletID:  w.ID(),
		OwnerID:   w.OwnerID(),
		Balance:   w.Balance().Decimal().StringFixed(model.MinorUnitPlaces),
		Currency:  string(w.Currency()),
		Active:    w.IsActive(),
		CreatedAt: w.CreatedAt(),
		UpdatedAt: w.UpdatedAt(),
	}
}

func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	currency, err := model.ParseCurrency(req.Currency)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	initial := model.Zero(currency)
	if req.InitialBalance != "" {
		if initial, err = model.ParseMoney(req.InitialBalance, currency); err != nil {
			h.sendDomainError(w, r, err)
			return
		}
	}

	wallet, err := h.service.CreateWallet(r.Context(), req.OwnerID, initial)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}

	sendSuccessResponse(w, toWalletResponse(wallet))
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	walletID, ok := pathID(w, r, "wallet")
	if !ok {
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), walletID)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	sendSuccessResponse(w, toWalletResponse(wallet))
}

func (h *WalletHandler) RemoveWallet(w http.ResponseWriter, r *http.Request) {
	walletID, ok := pathID(w, r, "wallet")
	if !ok {
		return
	}

	wallet, err := h.service.RemoveWallet(r.Context(), walletID)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	sendSuccessResponse(w, toWalletResponse(wallet))
}

func (h *WalletHandler) RestoreWallet(w http.ResponseWriter, r *http.Request) {
	walletID, ok := pathID(w, r, "wallet")
	if !ok {
		return
	}

	wallet, err := h.service.RestoreWallet(r.Context(), walletID)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	sendSuccessResponse(w, toWalletResponse(wallet))
}

// pathID reads the {id} path value and rejects anything that is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request, kind string) (string, bool) {
	id := r.PathValue("id")
	if !isUUID(id) {
		sendErrorResponse(w, "Invalid "+kind+" ID format", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    statusCode,
			"message": message,
		},
	})
}

// sendDomainError maps ledger error codes onto HTTP statuses. The body also
// carries the ledger code and reason so clients can branch on them.
func (h *WalletHandler) sendDomainError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusFor(err)
	message := err.Error()
	if statusCode >= http.StatusInternalServerError {
		h.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", statusCode,
			"error", err,
		)
	}
	if statusCode == http.StatusInternalServerError {
		message = "Internal server error"
	}

	body := map[string]interface{}{
		"code":    statusCode,
		"message": message,
	}
	var e *model.Error
	if errors.As(err, &e) {
		body["type"] = string(e.Code)
		if e.Reason != "" {
			body["reason"] = e.Reason
		}
		if len(e.Metadata) > 0 {
			body["metadata"] = e.Metadata
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{"error": body})
}

func statusFor(err error) int {
	switch model.CodeOf(err) {
	case model.CodeValidation, model.CodeDivisionByZero:
		return http.StatusBadRequest
	case model.CodeNotFound:
		return http.StatusNotFound
	case model.CodeInvariant, model.CodeConflict:
		return http.StatusConflict
	}
	if errors.Is(err, service.ErrShutdown) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func sendSuccessResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": data,
	})
}
