package notification

// NotificationType is the SSE event name.
type NotificationType string

const (
	TypeAttendancePending   NotificationType = "attendance.pending"
	TypeAttendanceJustified NotificationType = "attendance.justified"
	TypeAttendanceDecided   NotificationType = "attendance.decided"
	TypeAbsencesReconciled  NotificationType = "attendance.reconciled"
)

// Subscriber identifies who is listening. Admins also receive the shared
// review feed.
type Subscriber struct {
	EmployeeID string
	IsAdmin    bool
}

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
