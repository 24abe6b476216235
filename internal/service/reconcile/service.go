package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/reconcile"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type reconcileServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	employeeRepo   employee.EmployeeRepository
	leaveRepo      leave.LeaveRequestRepository
	resolver       schedule.Resolver
	notifService   notification.Service
	loc            *time.Location
}

// ReconcileAbsences implements reconcile.ReconcileService.
func (s *reconcileServiceImpl) ReconcileAbsences(ctx context.Context, req reconcile.ReconcileRequest, now time.Time) (reconcile.Summary, error) {
	if err := req.Validate(); err != nil {
		return reconcile.Summary{}, err
	}

	date := workday.DateOf(now, s.loc)
	if req.Date != "" {
		parsed, err := workday.ParseDate(req.Date)
		if err != nil {
			return reconcile.Summary{}, err
		}
		date = parsed
	}
	summary := reconcile.Summary{Date: date.String()}

	employees, err := s.employeeRepo.ListActive(ctx)
	if err != nil {
		return reconcile.Summary{}, fmt.Errorf("failed to list active employees: %w", err)
	}
	summary.ActiveEmployees = len(employees)

	resolved, failed, err := s.resolver.ResolveMany(ctx, employees, date)
	if err != nil {
		return reconcile.Summary{}, fmt.Errorf("failed to resolve shifts: %w", err)
	}
	for id, resolveErr := range failed {
		slog.Error("skipping employee in reconciliation", "employee_id", id, "date", summary.Date, "error", resolveErr)
	}
	summary.Failed = len(failed)

	var scheduled []string
	for _, emp := range employees {
		shift, ok := resolved[emp.ID]
		if !ok {
			continue
		}
		if shift.DayOff {
			summary.DayOff++
			continue
		}
		scheduled = append(scheduled, emp.ID)
	}
	summary.Scheduled = len(scheduled)

	recorded, err := s.attendanceRepo.StatusesOn(ctx, date)
	if err != nil {
		return reconcile.Summary{}, fmt.Errorf("failed to list attendance for date: %w", err)
	}

	leaves, err := s.leaveRepo.ListApprovedOn(ctx, date)
	if err != nil {
		return reconcile.Summary{}, fmt.Errorf("failed to list approved leave: %w", err)
	}
	onLeave := make(map[string]bool, len(leaves))
	for _, l := range leaves {
		if l.Covers(date) {
			onLeave[l.EmployeeID] = true
		}
	}

	var absent []string
	for _, id := range scheduled {
		status, covered := recorded[id]
		switch {
		case covered && status == attendance.StatusAbsent:
			summary.AlreadyAbsent++
		case covered:
			summary.Present++
		case onLeave[id]:
			summary.OnLeave++
		default:
			absent = append(absent, id)
		}
	}

	if len(absent) > 0 {
		inserted, err := s.attendanceRepo.BulkCreateAbsences(ctx, absent, date)
		if err != nil {
			return reconcile.Summary{}, fmt.Errorf("failed to mark absences: %w", err)
		}
		summary.NewlyAbsent = inserted
	}

	slog.Info("absences reconciled",
		"date", summary.Date,
		"active_employees", summary.ActiveEmployees,
		"scheduled", summary.Scheduled,
		"day_off", summary.DayOff,
		"present", summary.Present,
		"already_absent", summary.AlreadyAbsent,
		"on_leave", summary.OnLeave,
		"newly_absent", summary.NewlyAbsent,
		"failed", summary.Failed,
	)

	if summary.NewlyAbsent > 0 {
		s.notifService.NotifyAdmins(ctx, notification.TypeAbsencesReconciled, summary)
	}

	return summary, nil
}

func NewReconcileService(
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	leaveRepo leave.LeaveRequestRepository,
	resolver schedule.Resolver,
	notifService notification.Service,
	loc *time.Location,
) reconcile.ReconcileService {
	if loc == nil {
		loc = workday.FixedZone(workday.DefaultOffsetHours)
	}
	return &reconcileServiceImpl{
		attendanceRepo: attendanceRepo,
		employeeRepo:   employeeRepo,
		leaveRepo:      leaveRepo,
		resolver:       resolver,
		notifService:   notifService,
		loc:            loc,
	}
}
