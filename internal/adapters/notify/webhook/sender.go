// Package webhook reenvía cada notificación como POST JSON a una URL externa.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"care-connect/internal/domain/notifications"
	"care-connect/internal/platform/httpclient"
)

const SignatureHeader = "X-CareConnect-Signature"

type Config struct {
	URL string
	// Secret opcional; si está, el body se firma con HMAC-SHA256.
	Secret  string
	Timeout time.Duration
}

type Sender struct {
	client *httpclient.Client
	url    string
	secret []byte
}

func New(cfg Config, client *httpclient.Client) (*Sender, error) {
	url := strings.TrimSpace(cfg.URL)
	if err := httpclient.ValidateURL(url); err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	if client == nil {
		client = httpclient.New(cfg.Timeout, nil)
	}
	return &Sender{client: client, url: url, secret: []byte(cfg.Secret)}, nil
}

func (s *Sender) Name() string { return "webhook" }

type payload struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (s *Sender) Send(ctx context.Context, n notifications.Notification) error {
	body, err := httpclient.EncodeJSON(payload{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Message:   n.Message,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt.UTC(),
	})
	if err != nil {
		return err
	}

	headers := map[string]string{}
	if len(s.secret) > 0 {
		headers[SignatureHeader] = "sha256=" + Sign(s.secret, body)
	}
	if err := s.client.PostJSON(ctx, s.url, headers, body); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// Sign devuelve el HMAC-SHA256 del body en hex.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
