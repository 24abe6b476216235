package employee

import "time"

// Employee is the read-only view of a staff member the attendance core needs.
// Organisational data (positions, branches, payroll) is owned elsewhere.
type Employee struct {
	ID             string
	FullName       string
	IsActive       bool
	AreaID         *string
	DefaultShiftID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
