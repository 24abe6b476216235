package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/response"
)

type ScheduleHandler interface {
	Resolve(w http.ResponseWriter, r *http.Request)
	AssignSchedule(w http.ResponseWriter, r *http.Request)
}

type scheduleHandlerImpl struct {
	scheduleService schedule.ScheduleService
}

func NewScheduleHandler(scheduleService schedule.ScheduleService) ScheduleHandler {
	return &scheduleHandlerImpl{
		scheduleService: scheduleService,
	}
}

// Resolve implements ScheduleHandler.
func (h *scheduleHandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	req := schedule.ResolveRequest{
		EmployeeID: r.URL.Query().Get("employee_id"),
		Date:       r.URL.Query().Get("date"),
	}

	result, err := h.scheduleService.ResolveForEmployee(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// AssignSchedule implements ScheduleHandler.
func (h *scheduleHandlerImpl) AssignSchedule(w http.ResponseWriter, r *http.Request) {
	var req schedule.AssignScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.scheduleService.AssignSchedule(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Schedule assigned successfully", result)
}
