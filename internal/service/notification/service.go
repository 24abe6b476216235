package notification

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
)

type service struct {
	hub *sse.Hub
}

// NewNotificationService creates a hub-backed notification service
func NewNotificationService(hub *sse.Hub) notification.Service {
	return &service{hub: hub}
}

// NotifyAdmins implements notification.Service.
func (s *service) NotifyAdmins(ctx context.Context, typ notification.NotificationType, data interface{}) {
	s.publish(sse.AdminChannel, typ, data)
}

// NotifyEmployee implements notification.Service.
func (s *service) NotifyEmployee(ctx context.Context, employeeID string, typ notification.NotificationType, data interface{}) {
	if employeeID == "" {
		return
	}
	s.publish(sse.EmployeeChannel(employeeID), typ, data)
}

func (s *service) publish(channel string, typ notification.NotificationType, data interface{}) {
	s.hub.Publish(channel, sse.Event{
		Event: string(typ),
		Data:  data,
	})
	slog.Debug("event published", "channel", channel, "event", typ, "subscribers", s.hub.SubscriberCount(channel))
}

// Subscribe creates an SSE subscription
func (s *service) Subscribe(ctx context.Context, sub notification.Subscriber) (<-chan notification.SSEEvent, func()) {
	var channels []string
	if sub.IsAdmin {
		channels = append(channels, sse.AdminChannel)
	}
	if sub.EmployeeID != "" {
		channels = append(channels, sse.EmployeeChannel(sub.EmployeeID))
	}

	ch, cleanup := s.hub.Subscribe(channels...)

	out := make(chan notification.SSEEvent, 10)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- notification.SSEEvent{Event: event.Event, Data: event.Data}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}
