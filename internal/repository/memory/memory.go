// Package memory provides map-backed repositories for service tests. It
// mirrors the constraints the PostgreSQL schema enforces.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/area"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
	"github.com/google/uuid"
)

type dayKey struct {
	employeeID string
	date       workday.Date
}

// Store holds every table. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex

	employees   map[string]employee.Employee
	areas       map[string]area.Area
	shifts      map[string]schedule.Shift
	entries     map[dayKey]schedule.ScheduleEntry
	leaves      []leave.LeaveRequest
	attendances map[string]attendance.Attendance
	byDay       map[dayKey]string

	// Fail, when set, is returned by the named operation.
	Fail map[string]error
}

func New() *Store {
	return &Store{
		employees:   make(map[string]employee.Employee),
		areas:       make(map[string]area.Area),
		shifts:      make(map[string]schedule.Shift),
		entries:     make(map[dayKey]schedule.ScheduleEntry),
		attendances: make(map[string]attendance.Attendance),
		byDay:       make(map[dayKey]string),
		Fail:        make(map[string]error),
	}
}

func (s *Store) failure(op string) error {
	return s.Fail[op]
}

// ========================================
// SEEDING
// ========================================

func (s *Store) AddEmployee(e employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

func (s *Store) AddArea(a area.Area) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.areas[a.ID] = a
}

func (s *Store) AddShift(sh schedule.Shift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts[sh.ID] = sh
}

func (s *Store) AddLeave(l leave.LeaveRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves = append(s.leaves, l)
}

// PutAttendance stores a record as-is, bypassing the duplicate check.
func (s *Store) PutAttendance(a attendance.Attendance) attendance.Attendance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.attendances[a.ID] = a
	s.byDay[dayKey{a.EmployeeID, a.Date}] = a.ID
	return a
}

// Attendances returns every stored record ordered by employee then date.
func (s *Store) Attendances() []attendance.Attendance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]attendance.Attendance, 0, len(s.attendances))
	for _, a := range s.attendances {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// ========================================
// TRANSACTOR
// ========================================

type transactor struct{}

// WithinTx runs fn directly; the store has no rollback.
func (transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func NewTransactor() database.Transactor {
	return transactor{}
}

// ========================================
// EMPLOYEES & AREAS
// ========================================

type employeeRepository struct{ *Store }

func (s *Store) Employees() employee.EmployeeRepository { return employeeRepository{s} }

func (r employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r employeeRepository) GetByIDs(ctx context.Context, ids []string) ([]employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []employee.Employee
	for _, id := range ids {
		if e, ok := r.employees[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r employeeRepository) ListActive(ctx context.Context) ([]employee.Employee, error) {
	if err := r.failure("ListActive"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []employee.Employee
	for _, e := range r.employees {
		if e.IsActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type areaRepository struct{ *Store }

func (s *Store) Areas() area.AreaRepository { return areaRepository{s} }

func (r areaRepository) GetByID(ctx context.Context, id string) (area.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.areas[id]
	if !ok {
		return area.Area{}, area.ErrAreaNotFound
	}
	return a, nil
}

func (r areaRepository) GetDefault(ctx context.Context) (area.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.areas {
		if a.IsDefault {
			return a, nil
		}
	}
	return area.Area{}, area.ErrAreaNotFound
}

// ========================================
// SCHEDULE
// ========================================

type shiftRepository struct{ *Store }

func (s *Store) Shifts() schedule.ShiftRepository { return shiftRepository{s} }

func (r shiftRepository) GetByID(ctx context.Context, id string) (schedule.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.shifts[id]
	if !ok {
		return schedule.Shift{}, schedule.ErrShiftNotFound
	}
	return sh, nil
}

func (r shiftRepository) ListByIDs(ctx context.Context, ids []string) ([]schedule.Shift, error) {
	if err := r.failure("ListShifts"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schedule.Shift
	for _, id := range ids {
		if sh, ok := r.shifts[id]; ok {
			out = append(out, sh)
		}
	}
	return out, nil
}

type entryRepository struct{ *Store }

func (s *Store) Entries() schedule.ScheduleEntryRepository { return entryRepository{s} }

func (r entryRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date workday.Date) (*schedule.ScheduleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[dayKey{employeeID, date}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r entryRepository) ListByDate(ctx context.Context, date workday.Date) ([]schedule.ScheduleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schedule.ScheduleEntry
	for k, e := range r.entries {
		if k.date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r entryRepository) UpsertMany(ctx context.Context, entries []schedule.ScheduleEntry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, e := range entries {
		k := dayKey{e.EmployeeID, e.Date}
		if old, ok := r.entries[k]; ok {
			e.ID, e.CreatedAt = old.ID, old.CreatedAt
		} else {
			e.ID, e.CreatedAt = uuid.NewString(), now
		}
		e.UpdatedAt = now
		r.entries[k] = e
	}
	return int64(len(entries)), nil
}

// ========================================
// LEAVE
// ========================================

type leaveRepository struct{ *Store }

func (s *Store) Leaves() leave.LeaveRequestRepository { return leaveRepository{s} }

func (r leaveRepository) ListApprovedOn(ctx context.Context, date workday.Date) ([]leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []leave.LeaveRequest
	for _, l := range r.leaves {
		if l.Covers(date) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r leaveRepository) GetApprovedForEmployee(ctx context.Context, employeeID string, date workday.Date) (*leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.leaves {
		if l.EmployeeID == employeeID && l.Covers(date) {
			return &l, nil
		}
	}
	return nil, nil
}

// ========================================
// ATTENDANCE
// ========================================

type attendanceRepository struct{ *Store }

func (s *Store) AttendanceRepo() attendance.AttendanceRepository { return attendanceRepository{s} }

func (r attendanceRepository) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := dayKey{a.EmployeeID, a.Date}
	if _, exists := r.byDay[k]; exists {
		return attendance.Attendance{}, attendance.ErrAlreadyCheckedIn
	}
	now := time.Now()
	a.ID = uuid.NewString()
	a.CreatedAt, a.UpdatedAt = now, now
	r.attendances[a.ID] = a
	r.byDay[k] = a.ID
	return a, nil
}

func (r attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attendances[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return a, nil
}

func (r attendanceRepository) GetByIDForUpdate(ctx context.Context, id string) (attendance.Attendance, error) {
	return r.GetByID(ctx, id)
}

func (r attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date workday.Date) (*attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byDay[dayKey{employeeID, date}]
	if !ok {
		return nil, nil
	}
	a := r.attendances[id]
	return &a, nil
}

func (r attendanceRepository) Update(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.attendances[a.ID]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	a.IsViolation = old.IsViolation || a.IsViolation
	a.EmployeeID, a.Date, a.CreatedAt = old.EmployeeID, old.Date, old.CreatedAt
	a.UpdatedAt = time.Now()
	r.attendances[a.ID] = a
	return a, nil
}

func (r attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	r.mu.Lock()
	var matched []attendance.Attendance
	for _, a := range r.attendances {
		if matches(a, filter) {
			matched = append(matched, a)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if strings.ToLower(filter.SortOrder) == "asc" {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].Date.After(matched[j].Date)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], total, nil
}

func matches(a attendance.Attendance, f attendance.AttendanceFilter) bool {
	if f.EmployeeID != nil && a.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.Date != nil && *f.Date != "" && a.Date.String() != *f.Date {
		return false
	}
	if f.StartDate != nil && *f.StartDate != "" && a.Date.String() < *f.StartDate {
		return false
	}
	if f.EndDate != nil && *f.EndDate != "" && a.Date.String() > *f.EndDate {
		return false
	}
	if f.Status != nil && *f.Status != "" && string(a.Status) != *f.Status {
		return false
	}
	if f.IsViolation != nil && a.IsViolation != *f.IsViolation {
		return false
	}
	return true
}

func (r attendanceRepository) StatusesOn(ctx context.Context, date workday.Date) (map[string]attendance.Status, error) {
	if err := r.failure("StatusesOn"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]attendance.Status)
	for k, id := range r.byDay {
		if k.date == date {
			out[k.employeeID] = r.attendances[id].Status
		}
	}
	return out, nil
}

func (r attendanceRepository) BulkCreateAbsences(ctx context.Context, employeeIDs []string, date workday.Date) (int64, error) {
	if err := r.failure("BulkCreateAbsences"); err != nil {
		return 0, fmt.Errorf("bulk create absences: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var inserted int64
	now := time.Now()
	for _, id := range employeeIDs {
		k := dayKey{id, date}
		if _, exists := r.byDay[k]; exists {
			continue
		}
		a := attendance.NewAbsence(id, date)
		a.ID = uuid.NewString()
		a.CreatedAt, a.UpdatedAt = now, now
		r.attendances[a.ID] = a
		r.byDay[k] = a.ID
		inserted++
	}
	return inserted, nil
}
