package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
	"github.com/jackc/pgx/v5/pgtype"
)

type shiftRepository struct {
	db *database.DB
}

const shiftColumns = `id, name, start_time, end_time, created_at, updated_at`

func scanShift(row scanner) (schedule.Shift, error) {
	var (
		s          schedule.Shift
		start, end pgtype.Time
	)
	if err := row.Scan(&s.ID, &s.Name, &start, &end, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return schedule.Shift{}, err
	}
	s.Start = timeOfDay(start)
	s.End = timeOfDay(end)
	return s, nil
}

func timeOfDay(t pgtype.Time) *workday.TimeOfDay {
	if !t.Valid {
		return nil
	}
	tod := workday.FromMicroseconds(t.Microseconds)
	return &tod
}

// GetByID implements schedule.ShiftRepository.
func (r *shiftRepository) GetByID(ctx context.Context, id string) (schedule.Shift, error) {
	q := GetQuerier(ctx, r.db)

	s, err := scanShift(q.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return schedule.Shift{}, schedule.ErrShiftNotFound
		}
		return schedule.Shift{}, fmt.Errorf("failed to get shift by ID: %w", err)
	}

	return s, nil
}

// ListByIDs implements schedule.ShiftRepository.
func (r *shiftRepository) ListByIDs(ctx context.Context, ids []string) ([]schedule.Shift, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ANY($1::text[]::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	defer rows.Close()

	var shifts []schedule.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, s)
	}

	return shifts, rows.Err()
}

func NewShiftRepository(db *database.DB) schedule.ShiftRepository {
	return &shiftRepository{db: db}
}
