package schedule

import (
	"context"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type ShiftRepository interface {
	GetByID(ctx context.Context, id string) (Shift, error)

	// ListByIDs returns the shifts that exist among ids; unknown ids are
	// silently omitted.
	ListByIDs(ctx context.Context, ids []string) ([]Shift, error)
}

type ScheduleEntryRepository interface {
	// GetByEmployeeAndDate returns nil when the employee has no entry on date.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date workday.Date) (*ScheduleEntry, error)
	ListByDate(ctx context.Context, date workday.Date) ([]ScheduleEntry, error)

	// UpsertMany writes entries keyed by (employee_id, date), replacing the
	// shift of existing ones. Returns the number of rows written.
	UpsertMany(ctx context.Context, entries []ScheduleEntry) (int64, error)
}
