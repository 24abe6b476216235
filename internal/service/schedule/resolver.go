package schedule

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

const orgDefaultShiftName = "Default"

// ResolveShift picks the effective shift: the date's schedule entry, else the
// employee's default shift, else the policy's working hours.
func ResolveShift(entryShift, defaultShift *schedule.Shift, policy schedule.Policy) schedule.ResolvedShift {
	switch {
	case entryShift != nil:
		return fromShift(*entryShift, schedule.SourceEntry)
	case defaultShift != nil:
		return fromShift(*defaultShift, schedule.SourceEmployeeDefault)
	}

	return schedule.ResolvedShift{
		Source: schedule.SourceOrgDefault,
		Name:   orgDefaultShiftName,
		Start:  policy.DefaultStart,
		End:    policy.DefaultEnd,
	}
}

func fromShift(s schedule.Shift, source schedule.Source) schedule.ResolvedShift {
	id := s.ID
	resolved := schedule.ResolvedShift{
		Source:  source,
		ShiftID: &id,
		Name:    s.Name,
		DayOff:  s.IsDayOff(),
	}
	if !resolved.DayOff {
		resolved.Start = *s.Start
		resolved.End = *s.End
	}
	return resolved
}

// Resolver loads schedule data and applies ResolveShift. It never writes.
type Resolver struct {
	shifts  schedule.ShiftRepository
	entries schedule.ScheduleEntryRepository
	policy  schedule.Policy
}

func NewResolver(shifts schedule.ShiftRepository, entries schedule.ScheduleEntryRepository, policy schedule.Policy) *Resolver {
	return &Resolver{
		shifts:  shifts,
		entries: entries,
		policy:  policy,
	}
}

// Resolve implements schedule.Resolver.
func (r *Resolver) Resolve(ctx context.Context, emp employee.Employee, date workday.Date) (schedule.ResolvedShift, error) {
	entry, err := r.entries.GetByEmployeeAndDate(ctx, emp.ID, date)
	if err != nil {
		return schedule.ResolvedShift{}, fmt.Errorf("failed to get schedule entry: %w", err)
	}

	var entryShift, defaultShift *schedule.Shift
	switch {
	case entry != nil:
		s, err := r.shifts.GetByID(ctx, entry.ShiftID)
		if err != nil {
			return schedule.ResolvedShift{}, fmt.Errorf("failed to get entry shift %s: %w", entry.ShiftID, err)
		}
		entryShift = &s
	case emp.DefaultShiftID != nil:
		s, err := r.shifts.GetByID(ctx, *emp.DefaultShiftID)
		if err != nil {
			return schedule.ResolvedShift{}, fmt.Errorf("failed to get default shift %s: %w", *emp.DefaultShiftID, err)
		}
		defaultShift = &s
	}

	return ResolveShift(entryShift, defaultShift, r.policy), nil
}

// ResolveMany implements schedule.Resolver with one entry scan and one shift
// lookup for the whole batch.
func (r *Resolver) ResolveMany(ctx context.Context, emps []employee.Employee, date workday.Date) (map[string]schedule.ResolvedShift, map[string]error, error) {
	entries, err := r.entries.ListByDate(ctx, date)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list schedule entries: %w", err)
	}

	entryByEmployee := make(map[string]schedule.ScheduleEntry, len(entries))
	for _, e := range entries {
		entryByEmployee[e.EmployeeID] = e
	}

	// Only shifts that can actually win are loaded.
	seen := make(map[string]bool)
	var shiftIDs []string
	for _, emp := range emps {
		var id string
		if e, ok := entryByEmployee[emp.ID]; ok {
			id = e.ShiftID
		} else if emp.DefaultShiftID != nil {
			id = *emp.DefaultShiftID
		}
		if id != "" && !seen[id] {
			seen[id] = true
			shiftIDs = append(shiftIDs, id)
		}
	}

	shiftByID := make(map[string]schedule.Shift, len(shiftIDs))
	if len(shiftIDs) > 0 {
		shifts, err := r.shifts.ListByIDs(ctx, shiftIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list shifts: %w", err)
		}
		for _, s := range shifts {
			shiftByID[s.ID] = s
		}
	}

	resolved := make(map[string]schedule.ResolvedShift, len(emps))
	failed := make(map[string]error)
	for _, emp := range emps {
		var entryShift, defaultShift *schedule.Shift

		if e, ok := entryByEmployee[emp.ID]; ok {
			s, ok := shiftByID[e.ShiftID]
			if !ok {
				failed[emp.ID] = fmt.Errorf("entry shift %s: %w", e.ShiftID, schedule.ErrShiftNotFound)
				continue
			}
			entryShift = &s
		} else if emp.DefaultShiftID != nil {
			s, ok := shiftByID[*emp.DefaultShiftID]
			if !ok {
				failed[emp.ID] = fmt.Errorf("default shift %s: %w", *emp.DefaultShiftID, schedule.ErrShiftNotFound)
				continue
			}
			defaultShift = &s
		}

		resolved[emp.ID] = ResolveShift(entryShift, defaultShift, r.policy)
	}

	return resolved, failed, nil
}

var _ schedule.Resolver = (*Resolver)(nil)
