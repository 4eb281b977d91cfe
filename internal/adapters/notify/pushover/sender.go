// Package pushover entrega notificaciones como push vía Pushover.
package pushover

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"care-connect/internal/domain/notifications"

	po "github.com/gregdel/pushover"
)

var ErrNotConfigured = errors.New("pushover: api token not configured")

// RecipientLookup resuelve el user key de Pushover de un usuario.
type RecipientLookup interface {
	PushoverKey(ctx context.Context, userID string) (string, error)
}

// messenger es la parte del cliente de pushover que usamos.
type messenger interface {
	SendMessage(message *po.Message, recipient *po.Recipient) (*po.Response, error)
}

type Sender struct {
	app        messenger
	recipients RecipientLookup
	title      string
}

func New(token string, recipients RecipientLookup) (*Sender, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotConfigured
	}
	if recipients == nil {
		return nil, errors.New("pushover: recipient lookup is required")
	}
	return &Sender{
		app:        po.New(token),
		recipients: recipients,
		title:      "CareConnect",
	}, nil
}

func (s *Sender) Name() string { return "pushover" }

// Send no hace nada si el usuario no registró un user key.
func (s *Sender) Send(ctx context.Context, n notifications.Notification) error {
	key, err := s.recipients.PushoverKey(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("pushover: lookup recipient: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	msg := po.NewMessageWithTitle(n.Message, s.title)
	if n.Type == notifications.TypeAdherenceAlert {
		msg.Priority = po.PriorityHigh
	}

	if _, err := s.app.SendMessage(msg, po.NewRecipient(key)); err != nil {
		return fmt.Errorf("pushover: send: %w", err)
	}
	return nil
}
