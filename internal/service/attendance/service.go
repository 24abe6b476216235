package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/area"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

// Options configures check-in policy.
type Options struct {
	Policy schedule.Policy

	// GeofenceRequired rejects check-ins without coordinates unless the
	// caller acknowledges that location is unavailable.
	GeofenceRequired bool
}

type AttendanceServiceImpl struct {
	db database.Transactor
	attendance.AttendanceRepository
	employee.EmployeeRepository
	area.AreaRepository
	leave.LeaveRequestRepository
	resolver     schedule.Resolver
	notifService notification.Service
	opts         Options
}

// CheckIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest, now time.Time) (attendance.CheckInResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.CheckInResponse{}, err
	}

	point := req.Point()
	if point == nil && s.opts.GeofenceRequired && !req.LocationUnavailableAck {
		return attendance.CheckInResponse{}, attendance.ErrLocationRequired
	}

	emp, err := s.activeEmployee(ctx, req.EmployeeID)
	if err != nil {
		return attendance.CheckInResponse{}, err
	}

	loc := s.opts.Policy.Location
	date := workday.DateOf(now, loc)

	existing, err := s.AttendanceRepository.GetByEmployeeAndDate(ctx, emp.ID, date)
	if err != nil {
		return attendance.CheckInResponse{}, fmt.Errorf("failed to check existing attendance: %w", err)
	}
	if existing != nil {
		return attendance.CheckInResponse{}, attendance.ErrAlreadyCheckedIn
	}

	shift, err := s.resolver.Resolve(ctx, emp, date)
	if err != nil {
		return attendance.CheckInResponse{}, fmt.Errorf("failed to resolve shift: %w", err)
	}

	checkIn := now.UTC()
	record := attendance.Attendance{
		EmployeeID:      emp.ID,
		Date:            date,
		CheckIn:         &checkIn,
		Status:          attendance.StatusPresent,
		CheckInPhotoURL: req.PhotoURL,
		ShiftID:         shift.ShiftID,
	}
	if point != nil {
		record.CheckInLatitude = &point.Latitude
		record.CheckInLongitude = &point.Longitude
	}

	// Without a position or an area there is nothing to evaluate and the
	// check-in is accepted as present.
	if point != nil {
		geofence, err := s.areaFor(ctx, emp)
		if err != nil {
			return attendance.CheckInResponse{}, err
		}
		if geofence != nil {
			eval := geofence.Contains(*point)
			// A configured shared area has no stored row to reference.
			if geofence.ID != "" {
				record.AreaID = &geofence.ID
			}
			record.CheckInDistanceMeters = &eval.DistanceMeters
			if !eval.Inside {
				record.Status = attendance.StatusPending
				record.MarkViolation()
			}
		}
	}

	// Pending records get their lateness only once approved.
	if record.Status == attendance.StatusPresent {
		record.LateMinutes = LateMinutes(shift, date, checkIn, loc)
	}

	if err := record.Validate(); err != nil {
		return attendance.CheckInResponse{}, err
	}

	created, err := s.AttendanceRepository.Create(ctx, record)
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
			return attendance.CheckInResponse{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.CheckInResponse{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	if created.Status == attendance.StatusPending {
		slog.Info("out-of-zone check-in pending review",
			"attendance_id", created.ID,
			"employee_id", created.EmployeeID,
			"date", created.Date.String(),
			"distance_meters", math.Round(*created.CheckInDistanceMeters),
		)
		s.notifService.NotifyAdmins(ctx, notification.TypeAttendancePending, attendance.NewAttendanceResponse(created, loc))
	}

	return attendance.CheckInResponse{
		ID:             created.ID,
		Date:           created.Date.String(),
		CheckIn:        checkIn.In(loc).Format(time.RFC3339),
		Status:         string(created.Status),
		LateMinutes:    created.LateMinutes,
		IsViolation:    created.IsViolation,
		DistanceMeters: created.CheckInDistanceMeters,
		AreaID:         created.AreaID,
		Shift:          schedule.NewResolvedShiftResponse(emp.ID, date, shift),
	}, nil
}

// CheckOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest, now time.Time) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	loc := s.opts.Policy.Location
	date := workday.DateOf(now, loc)

	record, err := s.AttendanceRepository.GetByEmployeeAndDate(ctx, req.EmployeeID, date)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get today's attendance: %w", err)
	}
	if record == nil {
		return attendance.AttendanceResponse{}, attendance.ErrNotCheckedIn
	}

	if err := record.RecordCheckOut(now.UTC(), req.Point(), req.PhotoURL); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if err := record.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	updated, err := s.AttendanceRepository.Update(ctx, *record)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to update attendance: %w", err)
	}

	return attendance.NewAttendanceResponse(updated, loc), nil
}

// SubmitJustification implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) SubmitJustification(ctx context.Context, req attendance.JustificationRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	record, err := s.AttendanceRepository.GetByID(ctx, req.AttendanceID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	// Other employees' records are reported as missing.
	if record.EmployeeID != req.EmployeeID {
		return attendance.AttendanceResponse{}, attendance.ErrAttendanceNotFound
	}

	if err := record.AttachJustification(req.Reason); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	updated, err := s.AttendanceRepository.Update(ctx, record)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to update attendance: %w", err)
	}

	resp := attendance.NewAttendanceResponse(updated, s.opts.Policy.Location)
	s.notifService.NotifyAdmins(ctx, notification.TypeAttendanceJustified, resp)
	return resp, nil
}

// Decide implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Decide(ctx context.Context, req attendance.DecideRequest, now time.Time) (attendance.DecisionResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.DecisionResponse{}, err
	}
	decision := attendance.Decision(req.Decision)
	loc := s.opts.Policy.Location

	var decided attendance.Attendance
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		record, err := s.AttendanceRepository.GetByIDForUpdate(ctx, req.AttendanceID)
		if err != nil {
			return err
		}
		if !record.IsDecidable() {
			return attendance.ErrAttendanceAlreadyProcessed
		}

		lateMinutes := 0
		if decision == attendance.DecisionApprove && record.CheckIn != nil {
			lateMinutes, err = s.recomputeLateness(ctx, record)
			if err != nil {
				return err
			}
		}

		if err := record.ApplyDecision(decision, lateMinutes, req.AdminID, now.UTC()); err != nil {
			return err
		}
		if err := record.Validate(); err != nil {
			return err
		}

		decided, err = s.AttendanceRepository.Update(ctx, record)
		if err != nil {
			return fmt.Errorf("failed to update attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.DecisionResponse{}, err
	}

	slog.Info("attendance decided",
		"attendance_id", decided.ID,
		"employee_id", decided.EmployeeID,
		"decision", decision,
		"status", decided.Status,
		"late_minutes", decided.LateMinutes,
		"reviewed_by", req.AdminID,
	)

	resp := attendance.DecisionResponse{
		ID:          decided.ID,
		Status:      string(decided.Status),
		LateMinutes: decided.LateMinutes,
		IsViolation: decided.IsViolation,
		ReviewedBy:  *decided.ReviewedBy,
		ReviewedAt:  decided.ReviewedAt.In(loc).Format(time.RFC3339),
	}
	s.notifService.NotifyEmployee(ctx, decided.EmployeeID, notification.TypeAttendanceDecided, resp)
	return resp, nil
}

// recomputeLateness resolves the shift for the record's own date and measures
// the stored check-in against it.
func (s *AttendanceServiceImpl) recomputeLateness(ctx context.Context, record attendance.Attendance) (int, error) {
	emp, err := s.EmployeeRepository.GetByID(ctx, record.EmployeeID)
	if err != nil {
		return 0, fmt.Errorf("failed to get employee: %w", err)
	}

	shift, err := s.resolver.Resolve(ctx, emp, record.Date)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve shift: %w", err)
	}

	return LateMinutes(shift, record.Date, *record.CheckIn, s.opts.Policy.Location), nil
}

// CorrectCheckOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CorrectCheckOut(ctx context.Context, req attendance.CorrectCheckOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	var corrected attendance.Attendance
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		record, err := s.AttendanceRepository.GetByIDForUpdate(ctx, req.AttendanceID)
		if err != nil {
			return err
		}

		if err := record.CorrectCheckOut(req.CheckOutTime().UTC()); err != nil {
			return err
		}
		if err := record.Validate(); err != nil {
			return err
		}

		corrected, err = s.AttendanceRepository.Update(ctx, record)
		if err != nil {
			return fmt.Errorf("failed to update attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	slog.Info("check-out corrected",
		"attendance_id", corrected.ID,
		"employee_id", corrected.EmployeeID,
		"check_out", *corrected.CheckOut,
		"actor_id", req.ActorID,
	)

	return attendance.NewAttendanceResponse(corrected, s.opts.Policy.Location), nil
}

// GetAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttendance(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	record, err := s.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(record, s.opts.Policy.Location), nil
}

// ListAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := s.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	return s.listResponse(records, total, filter.Page, filter.Limit), nil
}

// GetMyAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, employeeID string, filter attendance.MyAttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := s.AttendanceRepository.List(ctx, filter.ForEmployee(employeeID))
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to get my attendance: %w", err)
	}

	return s.listResponse(records, total, filter.Page, filter.Limit), nil
}

func (s *AttendanceServiceImpl) listResponse(records []attendance.Attendance, total int64, page, limit int) attendance.ListAttendanceResponse {
	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, attendance.NewAttendanceResponse(r, s.opts.Policy.Location))
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	showing := fmt.Sprintf("%d-%d of %d", (page-1)*limit+1, min(page*limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}
}

// TodayStatus implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) TodayStatus(ctx context.Context, employeeID string, now time.Time) (attendance.TodayStatusResponse, error) {
	emp, err := s.EmployeeRepository.GetByID(ctx, employeeID)
	if err != nil {
		return attendance.TodayStatusResponse{}, err
	}

	loc := s.opts.Policy.Location
	date := workday.DateOf(now, loc)

	shift, err := s.resolver.Resolve(ctx, emp, date)
	if err != nil {
		return attendance.TodayStatusResponse{}, fmt.Errorf("failed to resolve shift: %w", err)
	}

	record, err := s.AttendanceRepository.GetByEmployeeAndDate(ctx, emp.ID, date)
	if err != nil {
		return attendance.TodayStatusResponse{}, fmt.Errorf("failed to get today's attendance: %w", err)
	}

	onLeave, err := s.LeaveRequestRepository.GetApprovedForEmployee(ctx, emp.ID, date)
	if err != nil {
		return attendance.TodayStatusResponse{}, fmt.Errorf("failed to get leave: %w", err)
	}

	resp := attendance.TodayStatusResponse{
		Date:       date.String(),
		Shift:      schedule.NewResolvedShiftResponse(emp.ID, date, shift),
		OnLeave:    onLeave != nil,
		CanCheckIn: record == nil && emp.IsActive,
	}
	if record != nil {
		r := attendance.NewAttendanceResponse(*record, loc)
		resp.Attendance = &r
		resp.CanCheckOut = record.CanCheckOut() == nil
	}
	return resp, nil
}

func (s *AttendanceServiceImpl) activeEmployee(ctx context.Context, id string) (employee.Employee, error) {
	emp, err := s.EmployeeRepository.GetByID(ctx, id)
	if err != nil {
		return employee.Employee{}, err
	}
	if !emp.IsActive {
		return employee.Employee{}, employee.ErrEmployeeInactive
	}
	return emp, nil
}

// areaFor returns the geofence for emp: the assigned area, else the
// organisation's shared area, else nil.
func (s *AttendanceServiceImpl) areaFor(ctx context.Context, emp employee.Employee) (*area.Area, error) {
	if emp.AreaID != nil {
		a, err := s.AreaRepository.GetByID(ctx, *emp.AreaID)
		if err == nil {
			return &a, nil
		}
		if !errors.Is(err, area.ErrAreaNotFound) {
			return nil, fmt.Errorf("failed to get area: %w", err)
		}
		slog.Warn("assigned area missing, using shared area", "employee_id", emp.ID, "area_id", *emp.AreaID)
	}

	a, err := s.AreaRepository.GetDefault(ctx)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, area.ErrAreaNotFound) {
		return nil, fmt.Errorf("failed to get default area: %w", err)
	}

	return s.opts.Policy.SharedArea, nil
}

func NewAttendanceService(
	db database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	areaRepo area.AreaRepository,
	leaveRepo leave.LeaveRequestRepository,
	resolver schedule.Resolver,
	notifService notification.Service,
	opts Options,
) attendance.AttendanceService {
	if opts.Policy.Location == nil {
		opts.Policy.Location = workday.FixedZone(workday.DefaultOffsetHours)
	}
	return &AttendanceServiceImpl{
		db:                     db,
		AttendanceRepository:   attendanceRepo,
		EmployeeRepository:     employeeRepo,
		AreaRepository:         areaRepo,
		LeaveRequestRepository: leaveRepo,
		resolver:               resolver,
		notifService:           notifService,
		opts:                   opts,
	}
}
