package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/service/inventory"
	"github.com/vladislavdragonenkov/tpoints/internal/service/ledger"
	"github.com/vladislavdragonenkov/tpoints/internal/service/order"
	"github.com/vladislavdragonenkov/tpoints/internal/service/outbox"
	"github.com/vladislavdragonenkov/tpoints/internal/service/registry"
	"github.com/vladislavdragonenkov/tpoints/internal/storage/memory"
)

const (
	owner int64 = 100
	hr    int64 = 200
	admin int64 = 300
	other int64 = 400

	mugID    int64 = 1
	hoodieID int64 = 2
)

type recordingDelivery struct {
	mu   sync.Mutex
	sent []domain.NotificationEnvelope
}

func (d *recordingDelivery) Deliver(_ context.Context, recipientID int64, kind domain.NotificationKind, payload map[string]any) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, domain.NotificationEnvelope{RecipientID: recipientID, Kind: kind, Payload: payload})
	return true, nil
}

func (d *recordingDelivery) take() []domain.NotificationEnvelope {
	d.mu.Lock()
	defer d.mu.Unlock()
	sent := d.sent
	d.sent = nil
	return sent
}

type OrderSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	delivery *recordingDelivery
	boundary *outbox.Boundary
	ledger   *ledger.Service
	orders   *order.Service
}

func (s *OrderSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.delivery = &recordingDelivery{}
	s.boundary = outbox.NewBoundary(s.store, s.delivery)
	s.ledger = ledger.NewService(s.store.Accounts(), s.store.Transactions(), s.boundary)
	s.orders = order.NewService(
		s.store.Orders(), s.store.History(), s.boundary,
		s.ledger, inventory.NewCatalog(nil), registry.New(nil, nil),
	)

	for id, role := range map[int64]domain.Role{owner: domain.RoleUser, hr: domain.RoleHR, admin: domain.RoleAdmin, other: domain.RoleHR} {
		s.Require().NoError(s.store.Accounts().Create(s.ctx, domain.Account{ID: id, Role: role, IsActive: true}))
	}
	_, err := s.store.Products().Create(s.ctx, domain.Product{ID: mugID, Name: "Mug", Price: 200, IsAvailable: true, Stock: 5})
	s.Require().NoError(err)
	_, err = s.store.Products().Create(s.ctx, domain.Product{ID: hoodieID, Name: "Hoodie", Price: 1000, IsAvailable: true, Sizes: map[string]int{"M": 1}})
	s.Require().NoError(err)

	s.Require().NoError(s.boundary.Do(s.ctx, func(ctx context.Context, w domain.Work) error {
		_, err := s.ledger.TopUp(ctx, w, owner, 1000, "Seed")
		return err
	}))
}

func (s *OrderSuite) balance(id int64) int64 {
	b, err := s.ledger.GetBalance(s.ctx, id)
	s.Require().NoError(err)
	return b
}

func (s *OrderSuite) stock(id int64) domain.Product {
	p, err := s.store.Products().Get(s.ctx, id)
	s.Require().NoError(err)
	return p
}

func (s *OrderSuite) checkout(items ...order.CartItem) domain.Order {
	created, err := s.orders.Checkout(s.ctx, owner, items)
	s.Require().NoError(err)
	s.delivery.take()
	return created
}

func (s *OrderSuite) do(fn func(ctx context.Context, w domain.Work) error) error {
	return s.boundary.Do(s.ctx, fn)
}

func (s *OrderSuite) TestCheckoutDebitsAndNotifies() {
	created, err := s.orders.Checkout(s.ctx, owner, []order.CartItem{{ProductID: mugID, Quantity: 2}})
	s.Require().NoError(err)

	s.Equal(domain.OrderStatusNew, created.Status)
	s.Equal(int64(400), created.TotalCost)
	s.Equal(int64(600), s.balance(owner))
	s.Equal(3, s.stock(mugID).Stock)

	sent := s.delivery.take()
	s.Require().Len(sent, 1)
	s.Equal(domain.NotificationOrderCreated, sent[0].Kind)
	s.Equal(owner, sent[0].RecipientID)
	s.Equal(created.ID, sent[0].Payload["order_id"])
}

func (s *OrderSuite) TestCheckoutInsufficientBalanceRollsBackStock() {
	_, err := s.orders.Checkout(s.ctx, owner, []order.CartItem{{ProductID: mugID, Quantity: 5}, {ProductID: hoodieID, Quantity: 1, Variant: "M"}})
	s.ErrorIs(err, domain.ErrInsufficientBalance)

	s.Equal(int64(1000), s.balance(owner))
	s.Equal(5, s.stock(mugID).Stock)
	s.Equal(1, s.stock(hoodieID).Sizes["M"])
	s.Empty(s.delivery.take())

	orders, err := s.orders.ListByAccount(s.ctx, owner, 0)
	s.Require().NoError(err)
	s.Empty(orders)
}

func (s *OrderSuite) TestCheckoutInsufficientStock() {
	_, err := s.orders.Checkout(s.ctx, owner, []order.CartItem{{ProductID: hoodieID, Quantity: 2, Variant: "M"}})
	s.ErrorIs(err, domain.ErrInsufficientStock)
	s.Equal(int64(1000), s.balance(owner))
}

func (s *OrderSuite) TestCheckoutEmptyCart() {
	_, err := s.orders.Checkout(s.ctx, owner, nil)
	s.ErrorIs(err, domain.ErrEmptyCart)
}

func (s *OrderSuite) TestCreateFromCartValidation() {
	err := s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.CreateFromCart(ctx, w, owner, nil)
		return err
	})
	s.ErrorIs(err, domain.ErrEmptyCart)

	err = s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.CreateFromCart(ctx, w, owner, []domain.OrderLine{{ProductID: mugID, Quantity: 0, Price: 10}})
		return err
	})
	s.ErrorIs(err, domain.ErrLineQtyInvalid)

	err = s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.CreateFromCart(ctx, w, owner, []domain.OrderLine{{ProductID: mugID, Quantity: 1, Price: -1}})
		return err
	})
	s.ErrorIs(err, domain.ErrLinePriceInvalid)

	err = s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.CreateFromCart(ctx, w, 999, []domain.OrderLine{{ProductID: mugID, Quantity: 1, Price: 1}})
		return err
	})
	s.ErrorIs(err, domain.ErrAccountNotFound)
}

func (s *OrderSuite) TestCreateFromCartDoesNotMoveMoney() {
	var created domain.Order
	err := s.do(func(ctx context.Context, w domain.Work) error {
		var err error
		created, err = s.orders.CreateFromCart(ctx, w, owner, []domain.OrderLine{
			{ProductID: mugID, Quantity: 2, Price: 150},
			{ProductID: hoodieID, Quantity: 1, Price: 0, Variant: "M"},
		})
		return err
	})
	s.Require().NoError(err)
	s.Equal(int64(300), created.TotalCost)
	s.Empty(created.ValidateInvariants())
	s.Equal(int64(1000), s.balance(owner))
}

func (s *OrderSuite) TestFullLifecycle() {
	created := s.checkout(order.CartItem{ProductID: mugID, Quantity: 1})
	staff := hr

	s.Require().NoError(s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.AssignToStaff(ctx, w, created.ID, hr)
		return err
	}))
	s.Require().NoError(s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.AdvanceStatus(ctx, w, created.ID, domain.OrderStatusReadyForPickup, &staff)
		return err
	}))
	s.Require().NoError(s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.AdvanceStatus(ctx, w, created.ID, domain.OrderStatusDelivered, &staff)
		return err
	}))

	var kinds []domain.NotificationKind
	for _, env := range s.delivery.take() {
		s.Equal(owner, env.RecipientID)
		kinds = append(kinds, env.Kind)
	}
	s.Equal([]domain.NotificationKind{
		domain.NotificationOrderTaken,
		domain.NotificationOrderReady,
		domain.NotificationOrderCompleted,
	}, kinds)

	stored, err := s.orders.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusDelivered, stored.Status)
	s.Require().NotNil(stored.AssignedStaffID)
	s.Equal(hr, *stored.AssignedStaffID)

	history, err := s.orders.History(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 4)
	s.Nil(history[0].From)
	s.Equal(domain.OrderStatusDelivered, history[3].To)

	err = s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.Cancel(ctx, w, created.ID, owner, "too late")
		return err
	})
	s.ErrorIs(err, domain.ErrAlreadyTerminal)
	s.Equal(int64(800), s.balance(owner))
}

func (s *OrderSuite) TestAssignRules() {
	created := s.checkout(order.CartItem{ProductID: mugID, Quantity: 1})

	assign := func(staffID int64) error {
		return s.do(func(ctx context.Context, w domain.Work) error {
			_, err := s.orders.AssignToStaff(ctx, w, created.ID, staffID)
			return err
		})
	}

	s.Require().NoError(assign(hr))
	s.Len(s.delivery.take(), 1)

	s.NoError(assign(hr))
	s.Empty(s.delivery.take(), "repeated assignment by the same staff is a no-op")

	s.ErrorIs(assign(other), domain.ErrAlreadyAssigned)

	history, err := s.orders.History(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Len(history, 2)
}

func (s *OrderSuite) TestAdvanceStatusRejections() {
	created := s.checkout(order.CartItem{ProductID: mugID, Quantity: 1})
	staff := hr

	advance := func(target domain.OrderStatus, staffID *int64) error {
		return s.do(func(ctx context.Context, w domain.Work) error {
			_, err := s.orders.AdvanceStatus(ctx, w, created.ID, target, staffID)
			return err
		})
	}

	s.ErrorIs(advance(domain.OrderStatusDelivered, &staff), domain.ErrInvalidTransition)
	s.ErrorIs(advance(domain.OrderStatusReadyForPickup, &staff), domain.ErrInvalidTransition)
	s.ErrorIs(advance(domain.OrderStatusCancelled, &staff), domain.ErrInvalidTransition)
	s.ErrorIs(advance(domain.OrderStatusProcessing, nil), domain.ErrStaffRequired)
	s.ErrorIs(advance("lost", &staff), domain.ErrUnknownStatus)
	s.NoError(advance(domain.OrderStatusProcessing, &staff))
	s.ErrorIs(advance(domain.OrderStatusNew, &staff), domain.ErrInvalidTransition)

	err := s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.AdvanceStatus(ctx, w, "missing", domain.OrderStatusDelivered, &staff)
		return err
	})
	s.ErrorIs(err, domain.ErrOrderNotFound)
}

func (s *OrderSuite) TestAdvanceTerminalOrderReportsTerminal() {
	cancelled := s.checkout(order.CartItem{ProductID: mugID, Quantity: 1})
	s.Require().NoError(s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.Cancel(ctx, w, cancelled.ID, admin, "")
		return err
	}))

	staff := hr
	for _, target := range []domain.OrderStatus{domain.OrderStatusCancelled, domain.OrderStatusProcessing, domain.OrderStatusDelivered} {
		err := s.do(func(ctx context.Context, w domain.Work) error {
			_, err := s.orders.AdvanceStatus(ctx, w, cancelled.ID, target, &staff)
			return err
		})
		s.ErrorIs(err, domain.ErrAlreadyTerminal, "target %s", target)
	}
}

func (s *OrderSuite) TestCancelByOwnerRefundsRestoresAndNotifiesStaff() {
	created := s.checkout(order.CartItem{ProductID: mugID, Quantity: 2})
	s.Equal(int64(600), s.balance(owner))
	s.Equal(3, s.stock(mugID).Stock)

	err := s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.Cancel(ctx, w, created.ID, owner, "changed my mind")
		return err
	})
	s.Require().NoError(err)

	s.Equal(int64(1000), s.balance(owner))
	s.Equal(5, s.stock(mugID).Stock)

	refunds, err := s.store.Transactions().ListByOrder(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().Len(refunds, 2)
	s.Equal(domain.TransactionRefund, refunds[1].Kind)
	s.Equal(created.TotalCost, refunds[1].Amount)

	sent := s.delivery.take()
	s.Require().Len(sent, 4)
	s.Equal(domain.NotificationOrderCancelled, sent[0].Kind)
	s.Equal(owner, sent[0].RecipientID)
	recipients := make([]int64, 0, 3)
	for _, env := range sent[1:] {
		s.Equal(domain.NotificationOrderCancelledByUser, env.Kind)
		recipients = append(recipients, env.RecipientID)
	}
	s.ElementsMatch([]int64{hr, admin, other}, recipients)

	history, err := s.orders.History(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("changed my mind", history[1].Reason)
}

func (s *OrderSuite) TestCancelByStaffNotifiesOwnerOnly() {
	created := s.checkout(order.CartItem{ProductID: mugID, Quantity: 1})
	s.Require().NoError(s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.AssignToStaff(ctx, w, created.ID, hr)
		return err
	}))
	s.delivery.take()

	s.Require().NoError(s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.Cancel(ctx, w, created.ID, hr, "out of stock")
		return err
	}))

	sent := s.delivery.take()
	s.Require().Len(sent, 1)
	s.Equal(domain.NotificationOrderCancelled, sent[0].Kind)
	s.Equal(owner, sent[0].RecipientID)
	s.Equal(string(domain.OrderStatusProcessing), sent[0].Payload["old_status"])
	s.Equal(int64(1000), s.balance(owner))
}

func (s *OrderSuite) TestCancelRestoresSizedStock() {
	s.Require().NoError(s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.ledger.TopUp(ctx, w, owner, 500, "Hoodie money")
		return err
	}))
	created := s.checkout(order.CartItem{ProductID: hoodieID, Quantity: 1, Variant: "M"})
	s.Equal(0, s.stock(hoodieID).Sizes["M"])

	s.Require().NoError(s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.Cancel(ctx, w, created.ID, admin, "")
		return err
	}))
	s.Equal(1, s.stock(hoodieID).Sizes["M"])
	s.Equal(int64(1500), s.balance(owner))
}

func (s *OrderSuite) TestFailedCancelLeavesNoTrace() {
	created := s.checkout(order.CartItem{ProductID: mugID, Quantity: 1})

	boom := errors.New("delivery staff list unavailable")
	err := s.do(func(ctx context.Context, w domain.Work) error {
		if _, err := s.orders.Cancel(ctx, w, created.ID, owner, ""); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	stored, err := s.orders.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusNew, stored.Status)
	s.Equal(int64(800), s.balance(owner))
	s.Equal(4, s.stock(mugID).Stock)
	s.Empty(s.delivery.take())
}

func (s *OrderSuite) TestListByStatus() {
	first := s.checkout(order.CartItem{ProductID: mugID, Quantity: 1})
	s.checkout(order.CartItem{ProductID: mugID, Quantity: 1})
	s.Require().NoError(s.do(func(ctx context.Context, w domain.Work) error {
		_, err := s.orders.AssignToStaff(ctx, w, first.ID, hr)
		return err
	}))

	fresh, err := s.orders.ListByStatus(s.ctx, domain.OrderStatusNew)
	s.Require().NoError(err)
	s.Len(fresh, 1)

	processing, err := s.orders.ListByStatus(s.ctx, domain.OrderStatusProcessing)
	s.Require().NoError(err)
	s.Require().Len(processing, 1)
	s.Equal(first.ID, processing[0].ID)

	_, err = s.orders.ListByStatus(s.ctx, "archived")
	s.ErrorIs(err, domain.ErrUnknownStatus)
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderSuite))
}

