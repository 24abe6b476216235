package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	// Employee self service
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	SubmitJustification(w http.ResponseWriter, r *http.Request)
	Today(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)

	// Review
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Decide(w http.ResponseWriter, r *http.Request)
	CorrectCheckOut(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	now               func() time.Time
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		now:               time.Now,
	}
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())

	var req attendance.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID = actor.EmployeeID

	result, err := h.attendanceService.CheckIn(r.Context(), req, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Status == string(attendance.StatusPending) {
		response.Created(w, "Check in recorded outside the attendance area and is awaiting review", result)
		return
	}
	response.Created(w, "Check in successful", result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())

	// The body is optional.
	var req attendance.CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID = actor.EmployeeID

	result, err := h.attendanceService.CheckOut(r.Context(), req, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Check out successful", result)
}

// SubmitJustification implements AttendanceHandler.
func (h *attendanceHandlerImpl) SubmitJustification(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())

	var req attendance.JustificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.AttendanceID = chi.URLParam(r, "id")
	req.EmployeeID = actor.EmployeeID

	result, err := h.attendanceService.SubmitJustification(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Justification submitted", result)
}

// Today implements AttendanceHandler.
func (h *attendanceHandlerImpl) Today(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())

	result, err := h.attendanceService.TodayStatus(r.Context(), actor.EmployeeID, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	// Parse query parameters
	filter := attendance.AttendanceFilter{
		EmployeeID:   optionalQuery(query.Get("employee_id")),
		EmployeeName: optionalQuery(query.Get("employee_name")),
		Date:         optionalQuery(query.Get("date")),
		StartDate:    optionalQuery(query.Get("start_date")),
		EndDate:      optionalQuery(query.Get("end_date")),
		Status:       optionalQuery(query.Get("status")),
		Page:         getIntQueryParam(r, "page", 1),
		Limit:        getIntQueryParam(r, "limit", 20),
		SortBy:       query.Get("sort_by"),
		SortOrder:    query.Get("sort_order"),
	}

	if v := query.Get("is_violation"); v != "" {
		isViolation, err := strconv.ParseBool(v)
		if err != nil {
			response.ValidationError(w, map[string]string{"is_violation": "is_violation must be true or false"})
			return
		}
		filter.IsViolation = &isViolation
	}

	// Get data from service
	results, err := h.attendanceService.ListAttendance(ctx, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results, &response.Meta{
		Page:       results.Page,
		Limit:      results.Limit,
		TotalItems: results.TotalCount,
		TotalPages: results.TotalPages,
	})
}

// GetMyAttendance implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())
	query := r.URL.Query()

	filter := attendance.MyAttendanceFilter{
		Date:      optionalQuery(query.Get("date")),
		StartDate: optionalQuery(query.Get("start_date")),
		EndDate:   optionalQuery(query.Get("end_date")),
		Status:    optionalQuery(query.Get("status")),
		Page:      getIntQueryParam(r, "page", 1),
		Limit:     getIntQueryParam(r, "limit", 20),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}

	results, err := h.attendanceService.GetMyAttendance(r.Context(), actor.EmployeeID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results, &response.Meta{
		Page:       results.Page,
		Limit:      results.Limit,
		TotalItems: results.TotalCount,
		TotalPages: results.TotalPages,
	})
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.attendanceService.GetAttendance(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Decide implements AttendanceHandler.
func (h *attendanceHandlerImpl) Decide(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())

	var req attendance.DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.AttendanceID = chi.URLParam(r, "id")
	// The reviewer is always the caller, never a body field.
	req.AdminID = actor.UserID

	result, err := h.attendanceService.Decide(r.Context(), req, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if req.Decision == string(attendance.DecisionReject) {
		response.SuccessWithMessage(w, "Attendance rejected", result)
		return
	}
	response.SuccessWithMessage(w, "Attendance approved", result)
}

// CorrectCheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CorrectCheckOut(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())

	var req attendance.CorrectCheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.AttendanceID = chi.URLParam(r, "id")
	req.ActorID = actor.UserID

	result, err := h.attendanceService.CorrectCheckOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Check out corrected", result)
}

func optionalQuery(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}
