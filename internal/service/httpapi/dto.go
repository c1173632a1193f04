package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/service/scheduler"
)

type transactionRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=top_up debit earning"`
	Points      int64  `json:"points" validate:"gt=0"`
	Description string `json:"description" validate:"max=255"`
}

type cartItemRequest struct {
	ProductID int64  `json:"product_id" validate:"gt=0"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=100"`
	Variant   string `json:"variant" validate:"max=32"`
}

type checkoutRequest struct {
	AccountID int64             `json:"account_id" validate:"gt=0"`
	Items     []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

type assignRequest struct {
	StaffID int64 `json:"staff_id" validate:"gt=0"`
}

type statusRequest struct {
	Status  string `json:"status" validate:"required"`
	StaffID *int64 `json:"staff_id,omitempty" validate:"omitempty,gt=0"`
}

type cancelRequest struct {
	ActorID int64  `json:"actor_id" validate:"gt=0"`
	Reason  string `json:"reason" validate:"max=500"`
}

type eventSettingsRequest struct {
	Enabled          bool   `json:"enabled"`
	NotifyDays       []int  `json:"notify_days" validate:"required,min=1,dive,gte=0,lte=365"`
	NotifyTime       string `json:"notify_time" validate:"required,len=5"`
	RewardAmount     int64  `json:"reward_amount" validate:"gte=0"`
	RewardMultiplier int64  `json:"reward_multiplier" validate:"gte=0"`
	StockThreshold   int    `json:"stock_threshold" validate:"gte=0"`
}

type preferencesRequest struct {
	Birthday    bool `json:"birthday"`
	Anniversary bool `json:"anniversary"`
	Stock       bool `json:"stock"`
}

type balanceResponse struct {
	AccountID int64 `json:"account_id"`
	Balance   int64 `json:"balance"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	AccountID   int64     `json:"account_id"`
	Amount      int64     `json:"amount"`
	Kind        string    `json:"kind"`
	KindName    string    `json:"kind_name"`
	Description string    `json:"description"`
	OrderID     *string   `json:"order_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newTransactionResponse(txn domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:          txn.ID,
		AccountID:   txn.AccountID,
		Amount:      txn.Amount,
		Kind:        string(txn.Kind),
		KindName:    txn.Kind.DisplayName(),
		Description: txn.Description,
		OrderID:     txn.OrderID,
		CreatedAt:   txn.CreatedAt,
	}
}

type orderLineResponse struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Variant   string `json:"variant,omitempty"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	AccountID       int64               `json:"account_id"`
	TotalCost       int64               `json:"total_cost"`
	Status          string              `json:"status"`
	StatusName      string              `json:"status_name"`
	AssignedStaffID *int64              `json:"assigned_staff_id,omitempty"`
	Lines           []orderLineResponse `json:"lines"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (h *Handler) newOrderResponse(o domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineResponse{ProductID: l.ProductID, Quantity: l.Quantity, Price: l.Price, Variant: l.Variant})
	}
	return orderResponse{
		ID:              o.ID,
		AccountID:       o.AccountID,
		TotalCost:       o.TotalCost,
		Status:          string(o.Status),
		StatusName:      h.registry.DisplayName(o.Status),
		AssignedStaffID: o.AssignedStaffID,
		Lines:           lines,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

type orderEventResponse struct {
	From       *string   `json:"from,omitempty"`
	To         string    `json:"to"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newOrderEventResponse(e domain.OrderEvent) orderEventResponse {
	out := orderEventResponse{To: string(e.To), ActorID: e.ActorID, Reason: e.Reason, OccurredAt: e.OccurredAt}
	if e.From != nil {
		from := string(*e.From)
		out.From = &from
	}
	return out
}

type statusResponse struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	CommentUser string `json:"comment_user,omitempty"`
	CommentHR   string `json:"comment_hr,omitempty"`
	OrderIndex  int    `json:"order_index"`
}

func newStatusResponse(s domain.StatusInfo) statusResponse {
	return statusResponse{
		Code:        string(s.Code),
		DisplayName: s.DisplayName(),
		Description: s.Description,
		CommentUser: s.CommentUser,
		CommentHR:   s.CommentHR,
		OrderIndex:  s.OrderIndex,
	}
}

type eventSettingsResponse struct {
	Type             string `json:"type"`
	Enabled          bool   `json:"enabled"`
	NotifyDays       []int  `json:"notify_days"`
	NotifyTime       string `json:"notify_time"`
	RewardAmount     int64  `json:"reward_amount"`
	RewardMultiplier int64  `json:"reward_multiplier"`
	StockThreshold   int    `json:"stock_threshold"`
}

func newEventSettingsResponse(s domain.EventSettings) eventSettingsResponse {
	return eventSettingsResponse{
		Type:             string(s.Type),
		Enabled:          s.Enabled,
		NotifyDays:       s.NotifyDays,
		NotifyTime:       s.NotifyTime.String(),
		RewardAmount:     s.RewardAmount,
		RewardMultiplier: s.RewardMultiplier,
		StockThreshold:   s.StockThreshold,
	}
}

type checkResultResponse struct {
	Type        string `json:"type"`
	Checked     int    `json:"checked"`
	Notified    int    `json:"notified"`
	Undelivered int    `json:"undelivered"`
	Awarded     int    `json:"awarded"`
	AlreadyPaid int    `json:"already_paid"`
	Error       string `json:"error,omitempty"`
}

type reportResponse struct {
	StartedAt time.Time             `json:"started_at"`
	Results   []checkResultResponse `json:"results"`
	Error     string                `json:"error,omitempty"`
}

func newReportResponse(r scheduler.Report) reportResponse {
	out := reportResponse{StartedAt: r.StartedAt, Results: make([]checkResultResponse, 0, len(r.Results))}
	for _, res := range r.Results {
		item := checkResultResponse{
			Type:        string(res.Type),
			Checked:     res.Checked,
			Notified:    res.Notified,
			Undelivered: res.Undelivered,
			Awarded:     res.Awarded,
			AlreadyPaid: res.AlreadyPaid,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		out.Results = append(out.Results, item)
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

type upcomingResponse struct {
	AccountID   int64  `json:"account_id"`
	DisplayName string `json:"display_name"`
	Date        string `json:"date"`
	DaysLeft    int    `json:"days_left"`
	Years       int    `json:"years"`
}

func newUpcomingResponse(u scheduler.Upcoming) upcomingResponse {
	return upcomingResponse{
		AccountID:   u.Account.ID,
		DisplayName: u.Account.DisplayName(),
		Date:        u.Date.Format("2006-01-02"),
		DaysLeft:    u.DaysLeft,
		Years:       u.Years,
	}
}
