package registry

import "github.com/vladislavdragonenkov/tpoints/internal/domain"

// DefaultStatuses — справочник статусов, с которым разворачивается система.
func DefaultStatuses() []domain.StatusInfo {
	return []domain.StatusInfo{
		{
			Code:        domain.OrderStatusNew,
			Name:        "Новый",
			Emoji:       "🆕",
			Description: "Заказ создан и ожидает обработки",
			CommentUser: "Ваш заказ создан и ожидает обработки HR-менеджером.",
			CommentHR:   "Новый заказ от пользователя",
			OrderIndex:  1,
		},
		{
			Code:        domain.OrderStatusProcessing,
			Name:        "В работе",
			Emoji:       "⚡",
			Description: "Заказ взят в работу HR-менеджером",
			CommentUser: "Ваш заказ взят в работу. Вы получите уведомление, когда заказ будет готов к выдаче.",
			CommentHR:   "Заказ взят в работу",
			OrderIndex:  2,
		},
		{
			Code:        domain.OrderStatusReadyForPickup,
			Name:        "Готов к выдаче",
			Emoji:       "📦",
			Description: "Заказ готов к выдаче",
			CommentUser: "Ваш заказ готов к выдаче! Пожалуйста, обратитесь к HR-менеджеру для получения заказа.",
			CommentHR:   "Заказ готов к выдаче пользователю",
			OrderIndex:  3,
		},
		{
			Code:        domain.OrderStatusDelivered,
			Name:        "Выполнен",
			Emoji:       "✅",
			Description: "Заказ выдан пользователю",
			CommentUser: "Заказ успешно выдан. Спасибо за заказ!",
			CommentHR:   "Заказ выдан пользователю",
			OrderIndex:  4,
		},
		{
			Code:        domain.OrderStatusCancelled,
			Name:        "Отменен",
			Emoji:       "❌",
			Description: "Заказ отменен",
			CommentUser: "Ваш заказ был отменен. T-points возвращены на ваш баланс.",
			CommentHR:   "Заказ отменен. T-points возвращены, товары возвращены на склад",
			OrderIndex:  5,
		},
	}
}

func statusPtr(s domain.OrderStatus) *domain.OrderStatus {
	return &s
}

// DefaultTransitionRules возвращает правила уведомлений по умолчанию.
func DefaultTransitionRules() []domain.TransitionRule {
	return []domain.TransitionRule{
		{To: domain.OrderStatusNew, Kind: domain.NotificationOrderCreated, Audience: domain.AudienceOwner},
		{From: statusPtr(domain.OrderStatusNew), To: domain.OrderStatusProcessing, Kind: domain.NotificationOrderTaken, Audience: domain.AudienceOwner},
		{From: statusPtr(domain.OrderStatusProcessing), To: domain.OrderStatusReadyForPickup, Kind: domain.NotificationOrderReady, Audience: domain.AudienceOwner},
		{From: statusPtr(domain.OrderStatusReadyForPickup), To: domain.OrderStatusDelivered, Kind: domain.NotificationOrderCompleted, Audience: domain.AudienceOwner},
		{To: domain.OrderStatusCancelled, Kind: domain.NotificationOrderCancelled, Audience: domain.AudienceOwner},
		{To: domain.OrderStatusCancelled, Kind: domain.NotificationOrderCancelledByUser, Audience: domain.AudienceStaff},
	}
}
