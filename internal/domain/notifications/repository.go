package notifications

import "context"

type Repository interface {
	Create(ctx context.Context, n Notification) error
	// ListByUser devuelve la página pedida (más recientes primero) y el total.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) (Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// Sender entrega una notificación por un canal externo (push, webhook).
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Notifier es lo que consumen los demás módulos para disparar avisos.
type Notifier interface {
	Notify(ctx context.Context, in Input) (Notification, error)
}
