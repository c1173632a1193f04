package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/service/delivery"
	"github.com/vladislavdragonenkov/tpoints/internal/service/directory"
	"github.com/vladislavdragonenkov/tpoints/internal/service/httpapi"
	"github.com/vladislavdragonenkov/tpoints/internal/service/inventory"
	"github.com/vladislavdragonenkov/tpoints/internal/service/ledger"
	"github.com/vladislavdragonenkov/tpoints/internal/service/order"
	"github.com/vladislavdragonenkov/tpoints/internal/service/outbox"
	"github.com/vladislavdragonenkov/tpoints/internal/service/registry"
	"github.com/vladislavdragonenkov/tpoints/internal/service/scheduler"
	"github.com/vladislavdragonenkov/tpoints/internal/storage/memory"
)

const (
	userID  int64 = 1
	staffID int64 = 2
	mugID   int64 = 10
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type HandlerSuite struct {
	suite.Suite
	ctx    context.Context
	store  *memory.Store
	server *httptest.Server
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()

	boundary := outbox.NewBoundary(s.store, delivery.NewLogService(nil))
	ledgerSvc := ledger.NewService(s.store.Accounts(), s.store.Transactions(), boundary)
	reg := registry.New(nil, nil)
	orders := order.NewService(s.store.Orders(), s.store.History(), boundary, ledgerSvc, inventory.NewCatalog(nil), reg)
	engine := scheduler.NewEngine(
		s.store.Settings(),
		directory.NewService(s.store.Accounts(), s.store.Settings()),
		s.store.Products(),
		boundary,
		ledgerSvc,
		delivery.NewLogService(nil),
		scheduler.WithClock(scheduler.NewFakeClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))),
		scheduler.WithLocation(time.UTC),
	)

	birth := time.Date(1990, time.March, 10, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Accounts().Create(s.ctx, domain.Account{ID: userID, Username: "anna", Role: domain.RoleUser, IsActive: true, BirthDate: &birth}))
	s.Require().NoError(s.store.Accounts().Create(s.ctx, domain.Account{ID: staffID, Role: domain.RoleHR, IsActive: true}))
	_, err := s.store.Products().Create(s.ctx, domain.Product{ID: mugID, Name: "Mug", Price: 300, IsAvailable: true, Stock: 2})
	s.Require().NoError(err)

	handler := httpapi.NewHandler(boundary, ledgerSvc, orders, engine, s.store.Settings(), reg, nil)
	s.server = httptest.NewServer(handler.Routes())
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

func (s *HandlerSuite) do(method, path string, body any) (int, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *HandlerSuite) decode(env envelope, dest any) {
	s.Require().NoError(json.Unmarshal(env.Data, dest))
}

func (s *HandlerSuite) topUp(points int64) {
	status, env := s.do(http.MethodPost, "/accounts/1/transactions", map[string]any{
		"kind": "top_up", "points": points, "description": "Welcome bonus",
	})
	s.Require().Equal(http.StatusCreated, status, "%+v", env.Error)
}

func (s *HandlerSuite) TestTopUpAndBalance() {
	s.topUp(1000)

	status, env := s.do(http.MethodGet, "/accounts/1/balance", nil)
	s.Require().Equal(http.StatusOK, status)
	var balance struct {
		Balance int64 `json:"balance"`
	}
	s.decode(env, &balance)
	s.Equal(int64(1000), balance.Balance)

	status, env = s.do(http.MethodGet, "/accounts/1/transactions?limit=10", nil)
	s.Require().Equal(http.StatusOK, status)
	var txns []struct {
		Kind   string `json:"kind"`
		Amount int64  `json:"amount"`
	}
	s.decode(env, &txns)
	s.Require().Len(txns, 1)
	s.Equal("top_up", txns[0].Kind)
}

func (s *HandlerSuite) TestDebitBeyondBalanceIs422() {
	s.topUp(100)

	status, env := s.do(http.MethodPost, "/accounts/1/transactions", map[string]any{
		"kind": "debit", "points": 500, "description": "Correction",
	})
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("insufficient_balance", env.Error.Code)
}

func (s *HandlerSuite) TestValidationErrors() {
	status, env := s.do(http.MethodPost, "/accounts/1/transactions", map[string]any{"kind": "purchase", "points": 0})
	s.Require().Equal(http.StatusUnprocessableEntity, status)
	s.Contains(env.Error.Details, "kind")
	s.Contains(env.Error.Details, "points")

	status, _ = s.do(http.MethodGet, "/accounts/abc/balance", nil)
	s.Equal(http.StatusUnprocessableEntity, status)

	status, _ = s.do(http.MethodGet, "/accounts/99/balance", nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *HandlerSuite) TestOrderLifecycle() {
	s.topUp(1000)

	status, env := s.do(http.MethodPost, "/orders/checkout", map[string]any{
		"account_id": userID,
		"items":      []map[string]any{{"product_id": mugID, "quantity": 2}},
	})
	s.Require().Equal(http.StatusCreated, status, "%+v", env.Error)
	var created struct {
		ID        string `json:"id"`
		TotalCost int64  `json:"total_cost"`
		Status    string `json:"status"`
	}
	s.decode(env, &created)
	s.Equal(int64(600), created.TotalCost)
	s.Equal("new", created.Status)

	status, env = s.do(http.MethodPost, "/orders/"+created.ID+"/assign", map[string]any{"staff_id": staffID})
	s.Require().Equal(http.StatusOK, status, "%+v", env.Error)

	status, env = s.do(http.MethodPost, "/orders/"+created.ID+"/status", map[string]any{"status": "delivered"})
	s.Equal(http.StatusConflict, status)
	s.Equal("conflict", env.Error.Code)

	status, env = s.do(http.MethodPost, "/orders/"+created.ID+"/cancel", map[string]any{"actor_id": staffID, "reason": "out of stock"})
	s.Require().Equal(http.StatusOK, status, "%+v", env.Error)

	status, env = s.do(http.MethodGet, "/accounts/1/balance", nil)
	s.Require().Equal(http.StatusOK, status)
	var balance struct {
		Balance int64 `json:"balance"`
	}
	s.decode(env, &balance)
	s.Equal(int64(1000), balance.Balance)

	status, env = s.do(http.MethodGet, "/orders/"+created.ID+"/history", nil)
	s.Require().Equal(http.StatusOK, status)
	var history []map[string]any
	s.decode(env, &history)
	s.Len(history, 3)

	status, env = s.do(http.MethodGet, "/orders?status=cancelled", nil)
	s.Require().Equal(http.StatusOK, status)
	var cancelled []map[string]any
	s.decode(env, &cancelled)
	s.Len(cancelled, 1)
}

func (s *HandlerSuite) TestCheckoutInsufficientStock() {
	s.topUp(5000)
	status, env := s.do(http.MethodPost, "/orders/checkout", map[string]any{
		"account_id": userID,
		"items":      []map[string]any{{"product_id": mugID, "quantity": 3}},
	})
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("insufficient_stock", env.Error.Code)
}

func (s *HandlerSuite) TestOrderNotFound() {
	status, env := s.do(http.MethodGet, "/orders/missing", nil)
	s.Equal(http.StatusNotFound, status)
	s.Equal("not_found", env.Error.Code)
}

func (s *HandlerSuite) TestEventSettingsRoundTrip() {
	status, env := s.do(http.MethodPut, "/admin/events/birthday", map[string]any{
		"enabled": true, "notify_days": []int{7, 0}, "notify_time": "08:30", "reward_amount": 1500,
	})
	s.Require().Equal(http.StatusOK, status, "%+v", env.Error)

	status, env = s.do(http.MethodGet, "/admin/events/birthday", nil)
	s.Require().Equal(http.StatusOK, status)
	var settings struct {
		NotifyDays   []int  `json:"notify_days"`
		NotifyTime   string `json:"notify_time"`
		RewardAmount int64  `json:"reward_amount"`
	}
	s.decode(env, &settings)
	s.Equal([]int{7, 0}, settings.NotifyDays)
	s.Equal("08:30", settings.NotifyTime)
	s.Equal(int64(1500), settings.RewardAmount)

	status, _ = s.do(http.MethodPut, "/admin/events/birthday", map[string]any{
		"enabled": true, "notify_days": []int{0}, "notify_time": "25:00",
	})
	s.Equal(http.StatusUnprocessableEntity, status)

	status, _ = s.do(http.MethodGet, "/admin/events/holiday", nil)
	s.Equal(http.StatusUnprocessableEntity, status)
}

func (s *HandlerSuite) TestManualCheckAndUpcoming() {
	status, env := s.do(http.MethodPost, "/admin/events/check?type=birthday", nil)
	s.Require().Equal(http.StatusOK, status, "%+v", env.Error)
	var report struct {
		Results []struct {
			Type    string `json:"type"`
			Awarded int    `json:"awarded"`
		} `json:"results"`
	}
	s.decode(env, &report)
	s.Require().Len(report.Results, 1)
	s.Equal(1, report.Results[0].Awarded)

	status, env = s.do(http.MethodGet, "/admin/events/upcoming?type=birthday&days=5", nil)
	s.Require().Equal(http.StatusOK, status)
	var upcoming []struct {
		AccountID int64 `json:"account_id"`
		DaysLeft  int   `json:"days_left"`
	}
	s.decode(env, &upcoming)
	s.Require().Len(upcoming, 1)
	s.Equal(userID, upcoming[0].AccountID)
	s.Equal(0, upcoming[0].DaysLeft)
}

func (s *HandlerSuite) TestPreferences() {
	status, env := s.do(http.MethodPut, "/admin/staff/2/preferences", map[string]any{"birthday": true, "stock": true})
	s.Require().Equal(http.StatusOK, status, "%+v", env.Error)

	status, env = s.do(http.MethodGet, "/admin/staff/2/preferences", nil)
	s.Require().Equal(http.StatusOK, status)
	var prefs struct {
		Birthday    bool `json:"birthday"`
		Anniversary bool `json:"anniversary"`
		Stock       bool `json:"stock"`
	}
	s.decode(env, &prefs)
	s.True(prefs.Birthday)
	s.False(prefs.Anniversary)
	s.True(prefs.Stock)
}

func (s *HandlerSuite) TestStatuses() {
	status, env := s.do(http.MethodGet, "/statuses", nil)
	s.Require().Equal(http.StatusOK, status)
	var statuses []struct {
		Code string `json:"code"`
	}
	s.decode(env, &statuses)
	s.Len(statuses, len(domain.OrderStatuses))
	s.Equal("new", statuses[0].Code)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
