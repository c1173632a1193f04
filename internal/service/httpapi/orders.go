package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/service/order"
)

func (h *Handler) writeOrders(w http.ResponseWriter, orders []domain.Order) {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, h.newOrderResponse(o))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]order.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, order.CartItem{ProductID: item.ProductID, Quantity: item.Quantity, Variant: item.Variant})
	}

	created, err := h.orders.Checkout(r.Context(), req.AccountID, items)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, h.newOrderResponse(created))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, h.newOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseOrderStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	orders, err := h.orders.ListByStatus(r.Context(), status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeOrders(w, orders)
}

func (h *Handler) orderHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.orders.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]orderEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, newOrderEventResponse(e))
	}
	writeSuccess(w, http.StatusOK, out)
}

// mutateOrder выполняет изменение заказа в единице работы и отдаёт итоговое состояние.
func (h *Handler) mutateOrder(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, wk domain.Work, orderID string) (domain.Order, error)) {
	orderID := chi.URLParam(r, "id")
	var result domain.Order
	err := h.units.DoWithRetry(r.Context(), func(ctx context.Context, wk domain.Work) error {
		var err error
		result, err = fn(ctx, wk, orderID)
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, h.newOrderResponse(result))
}

func (h *Handler) assignOrder(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutateOrder(w, r, func(ctx context.Context, wk domain.Work, orderID string) (domain.Order, error) {
		return h.orders.AssignToStaff(ctx, wk, orderID, req.StaffID)
	})
}

func (h *Handler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	target, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutateOrder(w, r, func(ctx context.Context, wk domain.Work, orderID string) (domain.Order, error) {
		return h.orders.AdvanceStatus(ctx, wk, orderID, target, req.StaffID)
	})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutateOrder(w, r, func(ctx context.Context, wk domain.Work, orderID string) (domain.Order, error) {
		return h.orders.Cancel(ctx, wk, orderID, req.ActorID, req.Reason)
	})
}
