package schedule

import (
	"context"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

// Resolver determines which shift applies to an employee on a date.
type Resolver interface {
	Resolve(ctx context.Context, emp employee.Employee, date workday.Date) (ResolvedShift, error)

	// ResolveMany resolves every employee for one date. Per-employee failures
	// land in the returned error map; the final error is reserved for
	// failures that affect the whole batch.
	ResolveMany(ctx context.Context, emps []employee.Employee, date workday.Date) (map[string]ResolvedShift, map[string]error, error)
}

type ScheduleService interface {
	// ResolveForEmployee resolves the shift of one employee on one date.
	ResolveForEmployee(ctx context.Context, req ResolveRequest) (ResolvedShiftResponse, error)

	// AssignSchedule writes schedule entries for every matching weekday in a
	// date range.
	AssignSchedule(ctx context.Context, req AssignScheduleRequest) (AssignScheduleResponse, error)
}
