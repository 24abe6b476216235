package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/geo"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type Status string

const (
	StatusPending Status = "pending" // out-of-zone check-in awaiting review
	StatusPresent Status = "hadir"
	StatusSick    Status = "sakit"
	StatusPermit  Status = "izin"
	StatusLeave   Status = "cuti"
	StatusAbsent  Status = "alpha"
)

var StatusValues = []string{
	string(StatusPending),
	string(StatusPresent),
	string(StatusSick),
	string(StatusPermit),
	string(StatusLeave),
	string(StatusAbsent),
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPresent, StatusSick, StatusPermit, StatusLeave, StatusAbsent:
		return true
	}
	return false
}

// IsLeave reports statuses written by the leave workflow.
func (s Status) IsLeave() bool {
	switch s {
	case StatusSick, StatusPermit, StatusLeave:
		return true
	}
	return false
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

var DecisionValues = []string{string(DecisionApprove), string(DecisionReject)}

func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Attendance is the single record of one employee on one calendar date.
type Attendance struct {
	ID         string
	EmployeeID string
	Date       workday.Date
	CheckIn    *time.Time
	CheckOut   *time.Time
	Status     Status

	// LateMinutes is only ever non-zero while Status is hadir.
	LateMinutes int

	// IsViolation is set once the record needed manual review and is never
	// cleared afterwards.
	IsViolation   bool
	Justification *string

	CheckInLatitude       *float64
	CheckInLongitude      *float64
	CheckInDistanceMeters *float64
	CheckInPhotoURL       *string
	CheckOutLatitude      *float64
	CheckOutLongitude     *float64
	CheckOutPhotoURL      *string

	AreaID     *string
	ShiftID    *string
	ReviewedBy *string
	ReviewedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Join
	EmployeeName *string
}

// CanCheckOut reports whether a check-out may be recorded.
func (a Attendance) CanCheckOut() error {
	if a.CheckIn == nil {
		return ErrNotCheckedIn
	}
	if a.CheckOut != nil {
		return ErrAlreadyCheckedOut
	}
	return nil
}

// RecordCheckOut closes the day. Status is left untouched, so a pending
// record stays pending.
func (a *Attendance) RecordCheckOut(at time.Time, p *geo.Point, photoURL *string) error {
	if err := a.CanCheckOut(); err != nil {
		return err
	}
	if at.Before(*a.CheckIn) {
		return ErrCheckOutBeforeCheckIn
	}

	a.CheckOut = &at
	if p != nil {
		a.CheckOutLatitude = &p.Latitude
		a.CheckOutLongitude = &p.Longitude
	}
	a.CheckOutPhotoURL = photoURL
	return nil
}

// CorrectCheckOut overwrites check_out with a corrected instant.
func (a *Attendance) CorrectCheckOut(at time.Time) error {
	if a.CheckIn == nil {
		return ErrNotCheckedIn
	}
	if at.Before(*a.CheckIn) {
		return ErrCheckOutBeforeCheckIn
	}
	a.CheckOut = &at
	return nil
}

func (a *Attendance) MarkViolation() {
	a.IsViolation = true
}

// IsDecidable reports whether an admin decision applies. Records that were
// already decided stay decidable so a repeated decision recomputes the same
// outcome.
func (a Attendance) IsDecidable() bool {
	return a.Status == StatusPending || a.IsViolation
}

// ApplyDecision resolves a reviewed record. lateMinutes must come from a
// fresh computation against the record's own check-in and date; it is
// ignored on reject.
func (a *Attendance) ApplyDecision(d Decision, lateMinutes int, adminID string, at time.Time) error {
	if !d.IsValid() {
		return ErrInvalidDecision
	}
	if !a.IsDecidable() {
		return ErrAttendanceAlreadyProcessed
	}

	switch d {
	case DecisionApprove:
		a.Status = StatusPresent
		a.LateMinutes = max(lateMinutes, 0)
	case DecisionReject:
		a.Status = StatusAbsent
		a.LateMinutes = 0
	}

	a.MarkViolation()
	a.ReviewedBy = &adminID
	a.ReviewedAt = &at
	return nil
}

// AttachJustification stores the employee's reason on a pending record.
func (a *Attendance) AttachJustification(reason string) error {
	if a.Status != StatusPending {
		return ErrNotPending
	}
	a.Justification = &reason
	return nil
}

// Validate checks the record-level invariants before it is persisted.
func (a Attendance) Validate() error {
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInconsistentRecord, a.Status)
	}
	if a.LateMinutes < 0 {
		return fmt.Errorf("%w: negative late minutes", ErrInconsistentRecord)
	}
	if a.LateMinutes > 0 && a.Status != StatusPresent {
		return fmt.Errorf("%w: late minutes on %s record", ErrInconsistentRecord, a.Status)
	}
	if a.CheckOut != nil && (a.CheckIn == nil || a.CheckOut.Before(*a.CheckIn)) {
		return fmt.Errorf("%w: %w", ErrInconsistentRecord, ErrCheckOutBeforeCheckIn)
	}
	return nil
}

// NewAbsence builds the alpha record written by reconciliation.
func NewAbsence(employeeID string, date workday.Date) Attendance {
	return Attendance{
		EmployeeID: employeeID,
		Date:       date,
		Status:     StatusAbsent,
	}
}
