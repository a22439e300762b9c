package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification is one message addressed to a plant role or a specific actor.
// Recipient is nil for role-wide broadcasts.
type Notification struct {
	Role      string
	Recipient *uuid.UUID
	Subject   string
	Body      string
}

// Broadcast role constants
const (
	RoleDirector   = "director"
	RoleDispatcher = "dispatcher"
)

// Notifier delivers notifications to plant staff. Implementations may push to
// mobile clients, email, or just log.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier is the default Notifier. It writes each notification to the
// structured log, which is enough for single-plant installs where staff watch
// the dashboard anyway.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notification")}
}

// Notify logs the notification
func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	fields := []zap.Field{
		zap.String("subject", notification.Subject),
		zap.String("body", notification.Body),
	}
	if notification.Recipient != nil {
		fields = append(fields, zap.String("recipient_id", notification.Recipient.String()))
	} else {
		fields = append(fields, zap.String("role", notification.Role))
	}
	n.logger.Info("notification", fields...)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
