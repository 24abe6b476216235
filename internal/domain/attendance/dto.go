package attendance

import (
	"errors"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/geo"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// ========================================
// CHECK-IN / CHECK-OUT DTOs
// ========================================

type CheckInRequest struct {
	EmployeeID string   `json:"-"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`

	// LocationUnavailableAck is the caller's explicit confirmation that the
	// check-in should proceed without a position fix.
	LocationUnavailableAck bool    `json:"location_unavailable_ack"`
	PhotoURL               *string `json:"photo_url"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}
	errs = append(errs, validateCoordinates(r.Latitude, r.Longitude)...)
	errs = append(errs, validatePhotoURL(r.PhotoURL)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Point returns the submitted position, or nil when none was sent.
func (r *CheckInRequest) Point() *geo.Point {
	return toPoint(r.Latitude, r.Longitude)
}

type CheckOutRequest struct {
	EmployeeID string   `json:"-"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	PhotoURL   *string  `json:"photo_url"`
}

func (r *CheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}
	errs = append(errs, validateCoordinates(r.Latitude, r.Longitude)...)
	errs = append(errs, validatePhotoURL(r.PhotoURL)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (r *CheckOutRequest) Point() *geo.Point {
	return toPoint(r.Latitude, r.Longitude)
}

type CheckInResponse struct {
	ID             string                         `json:"id"`
	Date           string                         `json:"date"`
	CheckIn        string                         `json:"check_in"`
	Status         string                         `json:"status"`
	LateMinutes    int                            `json:"late_minutes"`
	IsViolation    bool                           `json:"is_violation"`
	DistanceMeters *float64                       `json:"distance_meters,omitempty"`
	AreaID         *string                        `json:"area_id,omitempty"`
	Shift          schedule.ResolvedShiftResponse `json:"shift"`
}

// ========================================
// REVIEW DTOs
// ========================================

type JustificationRequest struct {
	EmployeeID   string `json:"-"`
	AttendanceID string `json:"-"`
	Reason       string `json:"reason"`
}

func (r *JustificationRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AttendanceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "attendance id is required",
		})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	} else if len(r.Reason) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 1000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DecideRequest struct {
	AttendanceID string `json:"-"`
	Decision     string `json:"decision"`
	AdminID      string `json:"-"`
}

func (r *DecideRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AttendanceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "attendance id is required",
		})
	}
	if !Decision(r.Decision).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "decision",
			Message: "decision must be one of: " + strings.Join(DecisionValues, ", "),
		})
	}
	if validator.IsEmpty(r.AdminID) {
		errs = append(errs, validator.ValidationError{
			Field:   "admin_id",
			Message: "admin identity is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DecisionResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	LateMinutes int    `json:"late_minutes"`
	IsViolation bool   `json:"is_violation"`
	ReviewedBy  string `json:"reviewed_by"`
	ReviewedAt  string `json:"reviewed_at"`
}

type CorrectCheckOutRequest struct {
	AttendanceID string `json:"-"`
	CheckOut     string `json:"check_out"` // RFC3339
	ActorID      string `json:"-"`
}

func (r *CorrectCheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AttendanceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "attendance id is required",
		})
	}
	if validator.IsEmpty(r.CheckOut) {
		errs = append(errs, validator.ValidationError{
			Field:   "check_out",
			Message: "check_out is required",
		})
	} else if _, valid := validator.IsValidDateTime(r.CheckOut); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "check_out",
			Message: "check_out must be an ISO8601 timestamp",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// CheckOutTime returns the parsed correction. Call after Validate.
func (r *CorrectCheckOutRequest) CheckOutTime() time.Time {
	t, _ := validator.IsValidDateTime(r.CheckOut)
	return t
}

// ========================================
// READ DTOs
// ========================================

type AttendanceResponse struct {
	ID                    string   `json:"id"`
	EmployeeID            string   `json:"employee_id"`
	EmployeeName          *string  `json:"employee_name,omitempty"`
	Date                  string   `json:"date"`
	CheckIn               *string  `json:"check_in,omitempty"`
	CheckOut              *string  `json:"check_out,omitempty"`
	Status                string   `json:"status"`
	LateMinutes           int      `json:"late_minutes"`
	IsViolation           bool     `json:"is_violation"`
	Justification         *string  `json:"justification,omitempty"`
	CheckInLatitude       *float64 `json:"check_in_latitude,omitempty"`
	CheckInLongitude      *float64 `json:"check_in_longitude,omitempty"`
	CheckInDistanceMeters *float64 `json:"check_in_distance_meters,omitempty"`
	CheckInPhotoURL       *string  `json:"check_in_photo_url,omitempty"`
	CheckOutLatitude      *float64 `json:"check_out_latitude,omitempty"`
	CheckOutLongitude     *float64 `json:"check_out_longitude,omitempty"`
	CheckOutPhotoURL      *string  `json:"check_out_photo_url,omitempty"`
	AreaID                *string  `json:"area_id,omitempty"`
	ShiftID               *string  `json:"shift_id,omitempty"`
	ReviewedBy            *string  `json:"reviewed_by,omitempty"`
	ReviewedAt            *string  `json:"reviewed_at,omitempty"`
	CreatedAt             string   `json:"created_at"`
	UpdatedAt             string   `json:"updated_at"`
}

// NewAttendanceResponse renders a, with instants shown in loc.
func NewAttendanceResponse(a Attendance, loc *time.Location) AttendanceResponse {
	return AttendanceResponse{
		ID:                    a.ID,
		EmployeeID:            a.EmployeeID,
		EmployeeName:          a.EmployeeName,
		Date:                  a.Date.String(),
		CheckIn:               formatInstant(a.CheckIn, loc),
		CheckOut:              formatInstant(a.CheckOut, loc),
		Status:                string(a.Status),
		LateMinutes:           a.LateMinutes,
		IsViolation:           a.IsViolation,
		Justification:         a.Justification,
		CheckInLatitude:       a.CheckInLatitude,
		CheckInLongitude:      a.CheckInLongitude,
		CheckInDistanceMeters: a.CheckInDistanceMeters,
		CheckInPhotoURL:       a.CheckInPhotoURL,
		CheckOutLatitude:      a.CheckOutLatitude,
		CheckOutLongitude:     a.CheckOutLongitude,
		CheckOutPhotoURL:      a.CheckOutPhotoURL,
		AreaID:                a.AreaID,
		ShiftID:               a.ShiftID,
		ReviewedBy:            a.ReviewedBy,
		ReviewedAt:            formatInstant(a.ReviewedAt, loc),
		CreatedAt:             a.CreatedAt.In(loc).Format(time.RFC3339),
		UpdatedAt:             a.UpdatedAt.In(loc).Format(time.RFC3339),
	}
}

type AttendanceFilter struct {
	// Search & Filter
	EmployeeID   *string `json:"employee_id,omitempty"`
	EmployeeName *string `json:"employee_name,omitempty"`
	Date         *string `json:"date,omitempty"`       // YYYY-MM-DD
	StartDate    *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate      *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status       *string `json:"status,omitempty"`
	IsViolation  *bool   `json:"is_violation,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, employee_name, check_in, check_out, status
	SortOrder string `json:"sort_order"` // asc, desc
}

var sortFields = []string{"date", "employee_name", "check_in", "check_out", "status"}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validatePagination(&f.Page, &f.Limit)...)
	errs = append(errs, validateStatus(f.Status)...)
	errs = append(errs, validateDates(f.Date, f.StartDate, f.EndDate)...)

	if f.SortBy != "" {
		if !validator.IsInSlice(f.SortBy, sortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: " + strings.Join(sortFields, ", "),
			})
		}
	} else {
		f.SortBy = "date" // Default sort
	}
	errs = append(errs, validateSortOrder(&f.SortOrder)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type MyAttendanceFilter struct {
	Date      *string `json:"date,omitempty"`       // YYYY-MM-DD
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status    *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, check_in, check_out, status
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *MyAttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validatePagination(&f.Page, &f.Limit)...)
	errs = append(errs, validateStatus(f.Status)...)
	errs = append(errs, validateDates(f.Date, f.StartDate, f.EndDate)...)

	// No employee_name sorting for own records
	if f.SortBy != "" {
		if f.SortBy == "employee_name" || !validator.IsInSlice(f.SortBy, sortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: date, check_in, check_out, status",
			})
		}
	} else {
		f.SortBy = "date"
	}
	errs = append(errs, validateSortOrder(&f.SortOrder)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ForEmployee scopes the filter to one employee.
func (f MyAttendanceFilter) ForEmployee(employeeID string) AttendanceFilter {
	return AttendanceFilter{
		EmployeeID: &employeeID,
		Date:       f.Date,
		StartDate:  f.StartDate,
		EndDate:    f.EndDate,
		Status:     f.Status,
		Page:       f.Page,
		Limit:      f.Limit,
		SortBy:     f.SortBy,
		SortOrder:  f.SortOrder,
	}
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}

type TodayStatusResponse struct {
	Date        string                         `json:"date"`
	Shift       schedule.ResolvedShiftResponse `json:"shift"`
	Attendance  *AttendanceResponse            `json:"attendance,omitempty"`
	OnLeave     bool                           `json:"on_leave"`
	CanCheckIn  bool                           `json:"can_check_in"`
	CanCheckOut bool                           `json:"can_check_out"`
}

// ========================================
// HELPERS
// ========================================

func toPoint(lat, lng *float64) *geo.Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &geo.Point{Latitude: *lat, Longitude: *lng}
}

func formatInstant(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := t.In(loc).Format(time.RFC3339)
	return &s
}

func validateCoordinates(lat, lng *float64) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if (lat == nil) != (lng == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "latitude and longitude must be sent together",
		})
		return errs
	}
	if lat == nil {
		return nil
	}

	if err := geo.ValidatePoint(geo.Point{Latitude: *lat, Longitude: *lng}); err != nil {
		field := "longitude"
		if errors.Is(err, geo.ErrInvalidLatitude) {
			field = "latitude"
		}
		errs = append(errs, validator.ValidationError{
			Field:   field,
			Message: err.Error(),
		})
	}
	return errs
}

func validatePhotoURL(u *string) validator.ValidationErrors {
	if u == nil {
		return nil
	}
	if !validator.IsValidURL(*u) {
		return validator.ValidationErrors{{
			Field:   "photo_url",
			Message: "photo_url must be an absolute http(s) URL",
		}}
	}
	return nil
}

func validatePagination(page, limit *int) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if *page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if *page == 0 {
		*page = 1 // Default page
	}

	if *limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if *limit == 0 {
		*limit = 20 // Default limit
	}
	if *limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}
	return errs
}

func validateStatus(status *string) validator.ValidationErrors {
	if status == nil || *status == "" {
		return nil
	}
	if !Status(*status).IsValid() {
		return validator.ValidationErrors{{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(StatusValues, ", "),
		}}
	}
	return nil
}

func validateDates(date, start, end *string) validator.ValidationErrors {
	var errs validator.ValidationErrors

	for _, d := range []struct {
		field string
		value *string
	}{{"date", date}, {"start_date", start}, {"end_date", end}} {
		if d.value == nil || *d.value == "" {
			continue
		}
		if _, valid := validator.IsValidDate(*d.value); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   d.field,
				Message: d.field + " must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) == 0 && start != nil && end != nil && *start != "" && *end != "" && *end < *start {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}
	return errs
}

func validateSortOrder(order *string) validator.ValidationErrors {
	if *order == "" {
		*order = "desc" // Newest first
		return nil
	}
	if !validator.IsInSlice(strings.ToLower(*order), []string{"asc", "desc"}) {
		return validator.ValidationErrors{{
			Field:   "sort_order",
			Message: "sort_order must be one of: asc, desc",
		}}
	}
	return nil
}
