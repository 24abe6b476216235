package leave

import (
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type LeaveType string

const (
	LeaveTypeSick     LeaveType = "sakit"
	LeaveTypePermit   LeaveType = "izin"
	LeaveTypeVacation LeaveType = "cuti"
)

type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "disetujui"
	LeaveStatusRejected LeaveStatus = "ditolak"
)

// LeaveRequest is owned by the leave workflow and read-only here.
type LeaveRequest struct {
	ID         string
	EmployeeID string
	Type       LeaveType
	StartDate  workday.Date
	EndDate    workday.Date
	Status     LeaveStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Covers reports whether an approved request spans date, inclusive.
func (l LeaveRequest) Covers(date workday.Date) bool {
	return l.Status == LeaveStatusApproved && date.Between(l.StartDate, l.EndDate)
}
