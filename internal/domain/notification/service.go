package notification

import "context"

// Service pushes attendance events to connected clients. Delivery is best
// effort; nothing is persisted.
type Service interface {
	NotifyAdmins(ctx context.Context, typ NotificationType, data interface{})
	NotifyEmployee(ctx context.Context, employeeID string, typ NotificationType, data interface{})

	// Subscribe streams events for sub until ctx ends or cleanup is called.
	Subscribe(ctx context.Context, sub Subscriber) (<-chan SSEEvent, func())
}
