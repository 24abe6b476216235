package schedule

import (
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/area"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

// Shift is a named working window. A nil Start or End marks a day off.
type Shift struct {
	ID        string
	Name      string
	Start     *workday.TimeOfDay
	End       *workday.TimeOfDay
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Shift) IsDayOff() bool {
	return s.Start == nil || s.End == nil
}

// ScheduleEntry pins an employee to a shift on one date.
type ScheduleEntry struct {
	ID         string
	EmployeeID string
	Date       workday.Date
	ShiftID    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Source string

const (
	SourceEntry           Source = "entry"            // explicit schedule entry for the date
	SourceEmployeeDefault Source = "employee_default" // employee's default shift
	SourceOrgDefault      Source = "org_default"      // organisation working hours
)

// ResolvedShift is the effective working window for one employee on one date.
// Start and End are zero when DayOff is set.
type ResolvedShift struct {
	Source  Source
	ShiftID *string
	Name    string
	Start   workday.TimeOfDay
	End     workday.TimeOfDay
	DayOff  bool
}

// Policy carries the organisation-wide fallbacks.
type Policy struct {
	Location     *time.Location
	DefaultStart workday.TimeOfDay
	DefaultEnd   workday.TimeOfDay

	// SharedArea is used for employees without an assigned area. Nil means
	// no geofence applies to them.
	SharedArea *area.Area
}

func DefaultPolicy() Policy {
	return Policy{
		Location:     workday.FixedZone(workday.DefaultOffsetHours),
		DefaultStart: workday.TimeOfDay{Hour: 9},
		DefaultEnd:   workday.TimeOfDay{Hour: 17},
	}
}
