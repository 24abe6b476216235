package attendance

import "errors"

var (
	// Check-in / check-out
	ErrAlreadyCheckedIn      = errors.New("you have already checked in today")
	ErrNotCheckedIn          = errors.New("you have not checked in yet")
	ErrAlreadyCheckedOut     = errors.New("you have already checked out")
	ErrLocationRequired      = errors.New("location is required; confirm to continue without it")
	ErrCheckOutBeforeCheckIn = errors.New("check-out cannot be earlier than check-in")

	// Review
	ErrInvalidDecision            = errors.New("decision must be approve or reject")
	ErrAttendanceAlreadyProcessed = errors.New("attendance has already been approved or rejected")
	ErrNotPending                 = errors.New("attendance is not awaiting review")

	// General
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrInconsistentRecord = errors.New("attendance record is inconsistent")
)
