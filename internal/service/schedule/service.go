package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type scheduleServiceImpl struct {
	db           database.Transactor
	employeeRepo employee.EmployeeRepository
	shiftRepo    schedule.ShiftRepository
	entryRepo    schedule.ScheduleEntryRepository
	resolver     schedule.Resolver
}

// ResolveForEmployee implements schedule.ScheduleService.
func (s *scheduleServiceImpl) ResolveForEmployee(ctx context.Context, req schedule.ResolveRequest) (schedule.ResolvedShiftResponse, error) {
	if err := req.Validate(); err != nil {
		return schedule.ResolvedShiftResponse{}, err
	}
	date, _ := workday.ParseDate(req.Date)

	emp, err := s.employeeRepo.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return schedule.ResolvedShiftResponse{}, err
	}

	resolved, err := s.resolver.Resolve(ctx, emp, date)
	if err != nil {
		return schedule.ResolvedShiftResponse{}, err
	}

	return schedule.NewResolvedShiftResponse(emp.ID, date, resolved), nil
}

// AssignSchedule implements schedule.ScheduleService.
func (s *scheduleServiceImpl) AssignSchedule(ctx context.Context, req schedule.AssignScheduleRequest) (schedule.AssignScheduleResponse, error) {
	if err := req.Validate(); err != nil {
		return schedule.AssignScheduleResponse{}, err
	}

	if _, err := s.shiftRepo.GetByID(ctx, req.ShiftID); err != nil {
		return schedule.AssignScheduleResponse{}, err
	}

	employeeIDs := uniqueStrings(req.EmployeeIDs)
	emps, err := s.employeeRepo.GetByIDs(ctx, employeeIDs)
	if err != nil {
		return schedule.AssignScheduleResponse{}, fmt.Errorf("failed to get employees: %w", err)
	}
	if missing := missingIDs(employeeIDs, emps); len(missing) > 0 {
		return schedule.AssignScheduleResponse{}, fmt.Errorf("%w: %s", employee.ErrEmployeeNotFound, strings.Join(missing, ", "))
	}

	dates := req.Dates()
	if len(dates) == 0 {
		return schedule.AssignScheduleResponse{}, schedule.ErrNoMatchingWeekdays
	}

	entries := make([]schedule.ScheduleEntry, 0, len(employeeIDs)*len(dates))
	for _, id := range employeeIDs {
		for _, d := range dates {
			entries = append(entries, schedule.ScheduleEntry{
				EmployeeID: id,
				Date:       d,
				ShiftID:    req.ShiftID,
			})
		}
	}

	var written int64
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.entryRepo.UpsertMany(ctx, entries)
		if err != nil {
			return fmt.Errorf("failed to write schedule entries: %w", err)
		}
		written = n
		return nil
	})
	if err != nil {
		return schedule.AssignScheduleResponse{}, err
	}

	slog.Info("schedule assigned",
		"shift_id", req.ShiftID,
		"employees", len(employeeIDs),
		"dates", len(dates),
		"written", written,
	)

	return schedule.AssignScheduleResponse{
		ShiftID:        req.ShiftID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		EmployeeCount:  len(employeeIDs),
		DateCount:      len(dates),
		EntriesWritten: written,
	}, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func missingIDs(want []string, got []employee.Employee) []string {
	found := make(map[string]bool, len(got))
	for _, e := range got {
		found[e.ID] = true
	}
	var missing []string
	for _, id := range want {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func NewScheduleService(
	db database.Transactor,
	employeeRepo employee.EmployeeRepository,
	shiftRepo schedule.ShiftRepository,
	entryRepo schedule.ScheduleEntryRepository,
	resolver schedule.Resolver,
) schedule.ScheduleService {
	return &scheduleServiceImpl{
		db:           db,
		employeeRepo: employeeRepo,
		shiftRepo:    shiftRepo,
		entryRepo:    entryRepo,
		resolver:     resolver,
	}
}
