package schedule

import "errors"

var (
	ErrShiftNotFound      = errors.New("shift not found")
	ErrInvalidDateRange   = errors.New("end_date must not be before start_date")
	ErrDateRangeTooLong   = errors.New("date range must not exceed 366 days")
	ErrNoMatchingWeekdays = errors.New("no dates in range match the selected weekdays")
)
