package attendance

import (
	"context"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// Create inserts a record. A second record for the same employee and date
	// fails with ErrAlreadyCheckedIn.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	GetByID(ctx context.Context, id string) (Attendance, error)

	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (Attendance, error)

	// GetByEmployeeAndDate returns nil when no record exists.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date workday.Date) (*Attendance, error)

	// Update persists mutable fields. is_violation can only go from false to
	// true.
	Update(ctx context.Context, attendance Attendance) (Attendance, error)

	// List retrieves attendance records with filters and pagination
	List(ctx context.Context, filter AttendanceFilter) ([]Attendance, int64, error)

	// StatusesOn returns the status of every record on date keyed by
	// employee id.
	StatusesOn(ctx context.Context, date workday.Date) (map[string]Status, error)

	// BulkCreateAbsences inserts alpha records and skips employees that
	// already have one for date. Returns the number actually inserted.
	BulkCreateAbsences(ctx context.Context, employeeIDs []string, date workday.Date) (int64, error)
}
