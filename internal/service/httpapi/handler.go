package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/service/order"
	"github.com/vladislavdragonenkov/tpoints/internal/service/scheduler"
)

// Ledger описывает операции с баллами, доступные через API.
type Ledger interface {
	GetBalance(ctx context.Context, accountID int64) (int64, error)
	History(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error)
	TopUp(ctx context.Context, tx domain.Tx, accountID, points int64, description string) (domain.Transaction, error)
	Debit(ctx context.Context, tx domain.Tx, accountID, points int64, description string) (domain.Transaction, error)
	Earn(ctx context.Context, tx domain.Tx, accountID, points int64, description string) (domain.Transaction, error)
}

type Orders interface {
	Checkout(ctx context.Context, accountID int64, items []order.CartItem) (domain.Order, error)
	AssignToStaff(ctx context.Context, w domain.Work, orderID string, staffID int64) (domain.Order, error)
	AdvanceStatus(ctx context.Context, w domain.Work, orderID string, target domain.OrderStatus, staffID *int64) (domain.Order, error)
	Cancel(ctx context.Context, w domain.Work, orderID string, actorID int64, reason string) (domain.Order, error)
	GetByID(ctx context.Context, id string) (domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]domain.Order, error)
	History(ctx context.Context, orderID string) ([]domain.OrderEvent, error)
}

type Scheduler interface {
	RunManualCheck(ctx context.Context, eventType *domain.EventType) (scheduler.Report, error)
	UpcomingBirthdays(ctx context.Context, days int) ([]scheduler.Upcoming, error)
	UpcomingAnniversaries(ctx context.Context, days int) ([]scheduler.Upcoming, error)
}

type Registry interface {
	Statuses() []domain.StatusInfo
	DisplayName(code domain.OrderStatus) string
}

// Handler — HTTP-поверхность ядра T-Points.
type Handler struct {
	units     domain.UnitRunner
	ledger    Ledger
	orders    Orders
	scheduler Scheduler
	settings  domain.SettingsRepository
	registry  Registry
	logger    *log.Entry
}

// NewHandler создаёт Handler.
func NewHandler(units domain.UnitRunner, ledger Ledger, orders Orders, sched Scheduler, settings domain.SettingsRepository, registry Registry, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{
		units:     units,
		ledger:    ledger,
		orders:    orders,
		scheduler: sched,
		settings:  settings,
		registry:  registry,
		logger:    logger,
	}
}

// Routes возвращает chi-роутер со всеми маршрутами API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/statuses", h.listStatuses)

	r.Route("/accounts/{id}", func(r chi.Router) {
		r.Get("/balance", h.getBalance)
		r.Get("/transactions", h.listTransactions)
		r.Post("/transactions", h.createTransaction)
		r.Get("/orders", h.listAccountOrders)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/checkout", h.checkout)
		r.Get("/{id}", h.getOrder)
		r.Get("/{id}/history", h.orderHistory)
		r.Post("/{id}/assign", h.assignOrder)
		r.Post("/{id}/status", h.advanceStatus)
		r.Post("/{id}/cancel", h.cancelOrder)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/events/check", h.runCheck)
		r.Get("/events/upcoming", h.upcoming)
		r.Get("/events/{type}", h.getEventSettings)
		r.Put("/events/{type}", h.putEventSettings)
		r.Get("/staff/{id}/preferences", h.getPreferences)
		r.Put("/staff/{id}/preferences", h.putPreferences)
	})

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(started).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}

func (h *Handler) listStatuses(w http.ResponseWriter, _ *http.Request) {
	statuses := h.registry.Statuses()
	out := make([]statusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, newStatusResponse(s))
	}
	writeSuccess(w, http.StatusOK, out)
}
