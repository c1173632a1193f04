package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/service/registry"
	"github.com/vladislavdragonenkov/tpoints/internal/storage/memory"
)

func status(s domain.OrderStatus) *domain.OrderStatus { return &s }

func TestRegistry_DefaultRules(t *testing.T) {
	reg := registry.New(nil, nil)

	tests := []struct {
		name     string
		from     *domain.OrderStatus
		to       domain.OrderStatus
		audience domain.Audience
		want     domain.NotificationKind
		found    bool
	}{
		{name: "created", to: domain.OrderStatusNew, audience: domain.AudienceOwner, want: domain.NotificationOrderCreated, found: true},
		{name: "taken", from: status(domain.OrderStatusNew), to: domain.OrderStatusProcessing, audience: domain.AudienceOwner, want: domain.NotificationOrderTaken, found: true},
		{name: "ready", from: status(domain.OrderStatusProcessing), to: domain.OrderStatusReadyForPickup, audience: domain.AudienceOwner, want: domain.NotificationOrderReady, found: true},
		{name: "completed", from: status(domain.OrderStatusReadyForPickup), to: domain.OrderStatusDelivered, audience: domain.AudienceOwner, want: domain.NotificationOrderCompleted, found: true},
		{name: "cancelled from processing", from: status(domain.OrderStatusProcessing), to: domain.OrderStatusCancelled, audience: domain.AudienceOwner, want: domain.NotificationOrderCancelled, found: true},
		{name: "cancelled staff", from: status(domain.OrderStatusNew), to: domain.OrderStatusCancelled, audience: domain.AudienceStaff, want: domain.NotificationOrderCancelledByUser, found: true},
		{name: "no rule", from: status(domain.OrderStatusNew), to: domain.OrderStatusProcessing, audience: domain.AudienceStaff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := reg.NotificationFor(tt.from, tt.to, tt.audience)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestRegistry_ExactRuleWinsOverWildcard(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.SeedStatuses(nil, []domain.TransitionRule{
		{To: domain.OrderStatusCancelled, Kind: domain.NotificationOrderCancelled, Audience: domain.AudienceOwner},
		{From: status(domain.OrderStatusNew), To: domain.OrderStatusCancelled, Kind: domain.NotificationOrderCancelledByUser, Audience: domain.AudienceOwner},
	}))
	reg := registry.New(store.Statuses(), nil)
	require.NoError(t, reg.Load(context.Background()))

	kind, ok := reg.NotificationFor(status(domain.OrderStatusNew), domain.OrderStatusCancelled, domain.AudienceOwner)
	require.True(t, ok)
	assert.Equal(t, domain.NotificationOrderCancelledByUser, kind)

	kind, ok = reg.NotificationFor(status(domain.OrderStatusProcessing), domain.OrderStatusCancelled, domain.AudienceOwner)
	require.True(t, ok)
	assert.Equal(t, domain.NotificationOrderCancelled, kind)

	// Статусы не заданы в хранилище, остаются значения по умолчанию.
	assert.Equal(t, "🆕 Новый", reg.DisplayName(domain.OrderStatusNew))
}

func TestRegistry_DisplayNameAndComments(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.SeedStatuses([]domain.StatusInfo{
		{Code: domain.OrderStatusNew, Name: "Fresh", OrderIndex: 2, CommentUser: "u", CommentHR: "hr"},
		{Code: domain.OrderStatusCancelled, Name: "Gone", Emoji: "🗑", OrderIndex: 1},
	}, nil))
	reg := registry.New(store.Statuses(), nil)
	require.NoError(t, reg.Load(context.Background()))

	assert.Equal(t, "Fresh", reg.DisplayName(domain.OrderStatusNew))
	assert.Equal(t, "🗑 Gone", reg.DisplayName(domain.OrderStatusCancelled))
	assert.Equal(t, "delivered", reg.DisplayName(domain.OrderStatusDelivered))
	assert.Equal(t, "u", reg.Comment(domain.OrderStatusNew, domain.AudienceOwner))
	assert.Equal(t, "hr", reg.Comment(domain.OrderStatusNew, domain.AudienceStaff))

	statuses := reg.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, domain.OrderStatusCancelled, statuses[0].Code)
}

type failingRepo struct{}

func (failingRepo) ListStatuses(context.Context) ([]domain.StatusInfo, error) {
	return nil, errors.New("db down")
}

func (failingRepo) ListTransitionRules(context.Context) ([]domain.TransitionRule, error) {
	return nil, nil
}

func TestRegistry_LoadErrorKeepsDefaults(t *testing.T) {
	reg := registry.New(failingRepo{}, nil)
	require.Error(t, reg.Load(context.Background()))
	assert.Equal(t, "✅ Выполнен", reg.DisplayName(domain.OrderStatusDelivered))
}
