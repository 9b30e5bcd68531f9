// Package notify entrega e-mails e pushes a usuários. Toda chamada é
// best-effort do ponto de vista de quem chama.
package notify

import (
	"context"
)

type Email struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

type Push struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

//go:generate mockgen -source=notify.go -destination=mock/notify_mock.go -package=mock

type Dispatcher interface {
	SendEmail(ctx context.Context, msg Email) error
	SendPush(ctx context.Context, msg Push) error
}
