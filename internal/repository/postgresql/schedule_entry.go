package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type scheduleEntryRepository struct {
	db *database.DB
}

const scheduleEntryColumns = `id, employee_id, date, shift_id, created_at, updated_at`

func scanScheduleEntry(row scanner) (schedule.ScheduleEntry, error) {
	var (
		e    schedule.ScheduleEntry
		date time.Time
	)
	if err := row.Scan(&e.ID, &e.EmployeeID, &date, &e.ShiftID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return schedule.ScheduleEntry{}, err
	}
	e.Date = workday.FromTime(date)
	return e, nil
}

// GetByEmployeeAndDate implements schedule.ScheduleEntryRepository.
func (r *scheduleEntryRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date workday.Date) (*schedule.ScheduleEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + scheduleEntryColumns + ` FROM schedule_entries WHERE employee_id = $1 AND date = $2`

	e, err := scanScheduleEntry(q.QueryRow(ctx, query, employeeID, date.Time()))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule entry: %w", err)
	}

	return &e, nil
}

// ListByDate implements schedule.ScheduleEntryRepository.
func (r *scheduleEntryRepository) ListByDate(ctx context.Context, date workday.Date) ([]schedule.ScheduleEntry, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+scheduleEntryColumns+` FROM schedule_entries WHERE date = $1`, date.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule entries: %w", err)
	}
	defer rows.Close()

	var entries []schedule.ScheduleEntry
	for rows.Next() {
		e, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// UpsertMany implements schedule.ScheduleEntryRepository. All rows go out in
// one statement.
func (r *scheduleEntryRepository) UpsertMany(ctx context.Context, entries []schedule.ScheduleEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	q := GetQuerier(ctx, r.db)

	ids := make([]string, len(entries))
	employeeIDs := make([]string, len(entries))
	dates := make([]time.Time, len(entries))
	shiftIDs := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = newID()
		employeeIDs[i] = e.EmployeeID
		dates[i] = e.Date.Time()
		shiftIDs[i] = e.ShiftID
	}

	query := `
		INSERT INTO schedule_entries (id, employee_id, date, shift_id)
		SELECT * FROM unnest($1::text[]::uuid[], $2::text[]::uuid[], $3::date[], $4::text[]::uuid[])
		ON CONFLICT (employee_id, date)
		DO UPDATE SET shift_id = EXCLUDED.shift_id, updated_at = NOW()
	`

	tag, err := q.Exec(ctx, query, ids, employeeIDs, dates, shiftIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert schedule entries: %w", err)
	}

	return tag.RowsAffected(), nil
}

func NewScheduleEntryRepository(db *database.DB) schedule.ScheduleEntryRepository {
	return &scheduleEntryRepository{db: db}
}
