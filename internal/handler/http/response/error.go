package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/area"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingActorClaims):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrManagerAccessRequired):
		Forbidden(w, "Manager access required")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")
	case errors.Is(err, user.ErrEmployeeLinkRequired):
		Forbidden(w, "Account is not linked to an employee")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeInactive):
		Forbidden(w, "Employee is not active")

	// Schedule domain errors
	case errors.Is(err, schedule.ErrShiftNotFound):
		NotFound(w, "Shift not found")
	case errors.Is(err, schedule.ErrInvalidDateRange),
		errors.Is(err, schedule.ErrDateRangeTooLong),
		errors.Is(err, schedule.ErrNoMatchingWeekdays):
		ValidationError(w, map[string]string{"date_range": err.Error()})
	case errors.Is(err, area.ErrAreaNotFound):
		NotFound(w, "Attendance area not found")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		Conflict(w, "Attendance already recorded for today")
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Conflict(w, "Already checked out today")
	case errors.Is(err, attendance.ErrAttendanceAlreadyProcessed):
		Conflict(w, "Attendance already processed")
	case errors.Is(err, attendance.ErrNotCheckedIn):
		NotFound(w, "No check-in found for today")
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance not found")
	case errors.Is(err, attendance.ErrLocationRequired):
		ValidationError(w, map[string]string{"location": err.Error()})
	case errors.Is(err, attendance.ErrCheckOutBeforeCheckIn):
		ValidationError(w, map[string]string{"check_out": err.Error()})
	case errors.Is(err, attendance.ErrInvalidDecision):
		ValidationError(w, map[string]string{"decision": err.Error()})
	case errors.Is(err, attendance.ErrNotPending):
		Conflict(w, "Attendance is no longer pending")

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
