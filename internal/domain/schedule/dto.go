package schedule

import (
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type ResolveRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
}

func (r *ResolveRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}
	if validator.IsEmpty(r.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ResolvedShiftResponse struct {
	EmployeeID string  `json:"employee_id"`
	Date       string  `json:"date"`
	Source     string  `json:"source"`
	ShiftID    *string `json:"shift_id,omitempty"`
	ShiftName  string  `json:"shift_name"`
	StartTime  *string `json:"start_time,omitempty"`
	EndTime    *string `json:"end_time,omitempty"`
	IsDayOff   bool    `json:"is_day_off"`
}

// NewResolvedShiftResponse renders r for employeeID on date.
func NewResolvedShiftResponse(employeeID string, date workday.Date, r ResolvedShift) ResolvedShiftResponse {
	resp := ResolvedShiftResponse{
		EmployeeID: employeeID,
		Date:       date.String(),
		Source:     string(r.Source),
		ShiftID:    r.ShiftID,
		ShiftName:  r.Name,
		IsDayOff:   r.DayOff,
	}
	if !r.DayOff {
		start, end := r.Start.String(), r.End.String()
		resp.StartTime = &start
		resp.EndTime = &end
	}
	return resp
}

// AssignScheduleRequest assigns ShiftID to every employee on each date in
// [StartDate, EndDate] whose ISO weekday (1=Monday ... 7=Sunday) is listed in
// Weekdays. An empty Weekdays selects every day.
type AssignScheduleRequest struct {
	EmployeeIDs []string `json:"employee_ids"`
	ShiftID     string   `json:"shift_id"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Weekdays    []int    `json:"weekdays"`
}

func (r *AssignScheduleRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.EmployeeIDs) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_ids",
			Message: "at least one employee is required",
		})
	}
	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{
				Field:   "employee_ids",
				Message: "employee_ids must not contain empty values",
			})
			break
		}
	}
	if validator.IsEmpty(r.ShiftID) {
		errs = append(errs, validator.ValidationError{
			Field:   "shift_id",
			Message: "shift_id is required",
		})
	}

	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}
	end, endOK := validator.IsValidDate(r.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}
	if startOK && endOK {
		if end.Before(start) {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: ErrInvalidDateRange.Error(),
			})
		} else if end.Sub(start).Hours()/24 > 365 {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: ErrDateRangeTooLong.Error(),
			})
		}
	}

	for _, wd := range r.Weekdays {
		if wd < 1 || wd > 7 {
			errs = append(errs, validator.ValidationError{
				Field:   "weekdays",
				Message: "weekdays must be between 1 (Monday) and 7 (Sunday)",
			})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Dates expands the request into the concrete dates it covers. Call after
// Validate.
func (r *AssignScheduleRequest) Dates() []workday.Date {
	start, _ := workday.ParseDate(r.StartDate)
	end, _ := workday.ParseDate(r.EndDate)

	want := make(map[int]bool, len(r.Weekdays))
	for _, wd := range r.Weekdays {
		want[wd] = true
	}

	var dates []workday.Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		if len(want) == 0 || want[d.ISOWeekday()] {
			dates = append(dates, d)
		}
	}
	return dates
}

type AssignScheduleResponse struct {
	ShiftID        string `json:"shift_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	EmployeeCount  int    `json:"employee_count"`
	DateCount      int    `json:"date_count"`
	EntriesWritten int64  `json:"entries_written"`
}
