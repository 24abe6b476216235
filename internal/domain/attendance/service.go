package attendance

import (
	"context"
	"time"
)

// AttendanceService defines business logic for attendance operations.
// Operations taking now use it as the authoritative clock.
type AttendanceService interface {
	CheckIn(ctx context.Context, req CheckInRequest, now time.Time) (CheckInResponse, error)
	CheckOut(ctx context.Context, req CheckOutRequest, now time.Time) (AttendanceResponse, error)

	// SubmitJustification attaches a reason to the caller's pending record.
	SubmitJustification(ctx context.Context, req JustificationRequest) (AttendanceResponse, error)

	// Decide approves or rejects a reviewed record (admin).
	Decide(ctx context.Context, req DecideRequest, now time.Time) (DecisionResponse, error)

	// CorrectCheckOut applies an approved correction to check_out (admin).
	CorrectCheckOut(ctx context.Context, req CorrectCheckOutRequest) (AttendanceResponse, error)

	GetAttendance(ctx context.Context, id string) (AttendanceResponse, error)
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)
	GetMyAttendance(ctx context.Context, employeeID string, filter MyAttendanceFilter) (ListAttendanceResponse, error)

	// TodayStatus summarises the employee's day: shift, record and which
	// actions are available.
	TodayStatus(ctx context.Context, employeeID string, now time.Time) (TodayStatusResponse, error)
}
