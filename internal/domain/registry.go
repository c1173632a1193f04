package domain

// StatusInfo — справочные данные статуса заказа.
type StatusInfo struct {
	Code        OrderStatus
	Name        string
	Emoji       string
	Description string
	CommentUser string
	CommentHR   string
	OrderIndex  int
}

// DisplayName возвращает "эмодзи название" либо код.
func (s StatusInfo) DisplayName() string {
	switch {
	case s.Name == "":
		return string(s.Code)
	case s.Emoji == "":
		return s.Name
	default:
		return s.Emoji + " " + s.Name
	}
}

// TransitionRule связывает переход статуса с видом уведомления.
// From == nil означает переход из любого статуса (в том числе создание).
type TransitionRule struct {
	From     *OrderStatus
	To       OrderStatus
	Kind     NotificationKind
	Audience Audience
}
