package leave

import (
	"context"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type LeaveRequestRepository interface {
	// ListApprovedOn returns approved requests whose range includes date.
	ListApprovedOn(ctx context.Context, date workday.Date) ([]LeaveRequest, error)

	// GetApprovedForEmployee returns the approved request covering date for
	// employeeID, or nil.
	GetApprovedForEmployee(ctx context.Context, employeeID string, date workday.Date) (*LeaveRequest, error)
}
