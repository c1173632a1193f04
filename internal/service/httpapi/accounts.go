package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const defaultHistoryLimit = 50

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &validationError{message: "invalid " + name}
	}
	return id, nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 500 {
		return 0, &validationError{message: "limit must be between 1 and 500"}
	}
	return limit, nil
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	balance, err := h.ledger.GetBalance(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, balanceResponse{AccountID: id, Balance: balance})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	txns, err := h.ledger.History(r.Context(), id, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, newTransactionResponse(txn))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var txn domain.Transaction
	err = h.units.DoWithRetry(r.Context(), func(ctx context.Context, wk domain.Work) error {
		var err error
		switch domain.TransactionKind(req.Kind) {
		case domain.TransactionTopUp:
			txn, err = h.ledger.TopUp(ctx, wk, id, req.Points, req.Description)
		case domain.TransactionDebit:
			txn, err = h.ledger.Debit(ctx, wk, id, req.Points, req.Description)
		default:
			txn, err = h.ledger.Earn(ctx, wk, id, req.Points, req.Description)
		}
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, newTransactionResponse(txn))
}

func (h *Handler) listAccountOrders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	orders, err := h.orders.ListByAccount(r.Context(), id, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeOrders(w, orders)
}
