package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/metrics"
	"github.com/vladislavdragonenkov/tpoints/internal/service/directory"
	"github.com/vladislavdragonenkov/tpoints/internal/service/httpapi"
	"github.com/vladislavdragonenkov/tpoints/internal/service/inventory"
	"github.com/vladislavdragonenkov/tpoints/internal/service/ledger"
	"github.com/vladislavdragonenkov/tpoints/internal/service/order"
	"github.com/vladislavdragonenkov/tpoints/internal/service/outbox"
	"github.com/vladislavdragonenkov/tpoints/internal/service/registry"
	"github.com/vladislavdragonenkov/tpoints/internal/service/scheduler"
)

// Dependencies — собранный граф сервисов T-Points.
type Dependencies struct {
	Store     Storage
	Boundary  *outbox.Boundary
	Registry  *registry.Registry
	Ledger    *ledger.Service
	Orders    *order.Service
	Directory *directory.Service
	Scheduler *scheduler.Engine
	Handler   *httpapi.Handler
	Logger    *log.Entry
}

// NewDependencies связывает сервисы поверх хранилища и канала доставки.
// Справочник статусов загружается из хранилища, пустое хранилище оставляет значения по умолчанию.
func NewDependencies(
	ctx context.Context,
	cfg Config,
	store Storage,
	delivery domain.DeliveryService,
	marker scheduler.RunMarker,
	m *metrics.Metrics,
	logger *log.Entry,
) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	boundary := outbox.NewBoundary(store, delivery, outbox.WithLogger(logger.WithField("component", "outbox")))

	reg := registry.New(store.Statuses(), logger.WithField("component", "registry"))
	if err := reg.Load(ctx); err != nil {
		return nil, fmt.Errorf("load status registry: %w", err)
	}

	ledgerSvc := ledger.NewService(store.Accounts(), store.Transactions(), boundary,
		ledger.WithLogger(logger.WithField("component", "ledger")),
		ledger.WithMetrics(m),
	)
	orders := order.NewService(store.Orders(), store.History(), boundary, ledgerSvc,
		inventory.NewCatalog(logger.WithField("component", "inventory")), reg,
		order.WithLogger(logger.WithField("component", "orders")),
		order.WithMetrics(m),
	)
	dir := directory.NewService(store.Accounts(), store.Settings())
	engine := scheduler.NewEngine(store.Settings(), dir, store.Products(), boundary, ledgerSvc, delivery,
		scheduler.WithLogger(logger.WithField("component", "scheduler")),
		scheduler.WithMetrics(m),
		scheduler.WithMarker(marker),
		scheduler.WithInterval(cfg.SchedulerInterval),
		scheduler.WithRetryInterval(cfg.SchedulerRetryInterval),
		scheduler.WithLocation(loc),
	)
	handler := httpapi.NewHandler(boundary, ledgerSvc, orders, engine, store.Settings(), reg,
		logger.WithField("component", "http"))

	return &Dependencies{
		Store:     store,
		Boundary:  boundary,
		Registry:  reg,
		Ledger:    ledgerSvc,
		Orders:    orders,
		Directory: dir,
		Scheduler: engine,
		Handler:   handler,
		Logger:    logger,
	}, nil
}
