package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher só registra as mensagens. Usado quando não há NOTIFY_URL.
type LogDispatcher struct {
	Logger *zap.Logger
}

func (d LogDispatcher) SendEmail(_ context.Context, msg Email) error {
	d.logger().Info("notify email", zap.String("to", msg.To), zap.String("template", msg.Template))
	return nil
}

func (d LogDispatcher) SendPush(_ context.Context, msg Push) error {
	d.logger().Info("notify push", zap.String("user_id", msg.UserID), zap.String("title", msg.Title))
	return nil
}

func (d LogDispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
