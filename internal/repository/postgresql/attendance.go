package postgresql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type attendanceRepository struct {
	db *database.DB
}

const attendanceColumns = `
	a.id, a.employee_id, a.date, a.check_in, a.check_out,
	a.status, a.late_minutes, a.is_violation, a.justification,
	a.check_in_latitude, a.check_in_longitude, a.check_in_distance_meters, a.check_in_photo_url,
	a.check_out_latitude, a.check_out_longitude, a.check_out_photo_url,
	a.area_id, a.shift_id, a.reviewed_by, a.reviewed_at,
	a.created_at, a.updated_at,
	e.full_name AS employee_name`

const attendanceFrom = `
	FROM attendances a
	LEFT JOIN employees e ON e.id = a.employee_id`

func scanAttendance(row scanner) (attendance.Attendance, error) {
	var (
		att  attendance.Attendance
		date time.Time
	)
	err := row.Scan(
		&att.ID, &att.EmployeeID, &date, &att.CheckIn, &att.CheckOut,
		&att.Status, &att.LateMinutes, &att.IsViolation, &att.Justification,
		&att.CheckInLatitude, &att.CheckInLongitude, &att.CheckInDistanceMeters, &att.CheckInPhotoURL,
		&att.CheckOutLatitude, &att.CheckOutLongitude, &att.CheckOutPhotoURL,
		&att.AreaID, &att.ShiftID, &att.ReviewedBy, &att.ReviewedAt,
		&att.CreatedAt, &att.UpdatedAt,
		&att.EmployeeName,
	)
	if err != nil {
		return attendance.Attendance{}, err
	}
	att.Date = workday.FromTime(date)
	return att, nil
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendances (
			id, employee_id, date, check_in, check_out,
			status, late_minutes, is_violation, justification,
			check_in_latitude, check_in_longitude, check_in_distance_meters, check_in_photo_url,
			area_id, shift_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		) RETURNING created_at, updated_at
	`

	newAttendance.ID = newID()
	err := q.QueryRow(ctx, query,
		newAttendance.ID,
		newAttendance.EmployeeID,
		newAttendance.Date.Time(),
		newAttendance.CheckIn,
		newAttendance.CheckOut,
		newAttendance.Status,
		newAttendance.LateMinutes,
		newAttendance.IsViolation,
		newAttendance.Justification,
		newAttendance.CheckInLatitude,
		newAttendance.CheckInLongitude,
		newAttendance.CheckInDistanceMeters,
		newAttendance.CheckInPhotoURL,
		newAttendance.AreaID,
		newAttendance.ShiftID,
	).Scan(&newAttendance.CreatedAt, &newAttendance.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Attendance{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return newAttendance, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	return a.getByID(ctx, id, "")
}

// GetByIDForUpdate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByIDForUpdate(ctx context.Context, id string) (attendance.Attendance, error) {
	return a.getByID(ctx, id, " FOR UPDATE OF a")
}

func (a *attendanceRepository) getByID(ctx context.Context, id, lock string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + attendanceFrom + ` WHERE a.id = $1` + lock

	att, err := scanAttendance(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by ID: %w", err)
	}

	return att, nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date workday.Date) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + attendanceFrom + ` WHERE a.employee_id = $1 AND a.date = $2`

	att, err := scanAttendance(q.QueryRow(ctx, query, employeeID, date.Time()))
	if err != nil {
		if isNoRows(err) {
			return nil, nil // No existing attendance found
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}

	return &att, nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	// employee_id and date identify the day and are never rewritten.
	query := `
		UPDATE attendances SET
			check_in = $2,
			check_out = $3,
			status = $4,
			late_minutes = $5,
			is_violation = attendances.is_violation OR $6,
			justification = $7,
			check_out_latitude = $8,
			check_out_longitude = $9,
			check_out_photo_url = $10,
			reviewed_by = $11,
			reviewed_at = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING is_violation, updated_at
	`

	err := q.QueryRow(ctx, query,
		att.ID,
		att.CheckIn,
		att.CheckOut,
		att.Status,
		att.LateMinutes,
		att.IsViolation,
		att.Justification,
		att.CheckOutLatitude,
		att.CheckOutLongitude,
		att.CheckOutPhotoURL,
		att.ReviewedBy,
		att.ReviewedAt,
	).Scan(&att.IsViolation, &att.UpdatedAt)

	if err != nil {
		if isNoRows(err) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to update attendance: %w", err)
	}

	return att, nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	// Build WHERE clause
	baseWhere := "TRUE"
	args := []interface{}{}
	argIdx := 1

	// Employee ID filter
	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND a.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	// Employee name filter (search)
	if filter.EmployeeName != nil && *filter.EmployeeName != "" {
		baseWhere += fmt.Sprintf(" AND e.full_name ILIKE $%d", argIdx)
		args = append(args, "%"+*filter.EmployeeName+"%")
		argIdx++
	}

	// Date filter
	if filter.Date != nil && *filter.Date != "" {
		baseWhere += fmt.Sprintf(" AND a.date = $%d::date", argIdx)
		args = append(args, *filter.Date)
		argIdx++
	}

	// Date range filters
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date <= $%d::date", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	// Status filter
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND a.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.IsViolation != nil {
		baseWhere += fmt.Sprintf(" AND a.is_violation = $%d", argIdx)
		args = append(args, *filter.IsViolation)
		argIdx++
	}

	// Count total (need to join employees for name filter)
	countQuery := `SELECT COUNT(*)` + attendanceFrom + ` WHERE ` + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	// Build ORDER BY
	orderByField := "a.date"
	switch filter.SortBy {
	case "employee_name":
		orderByField = "e.full_name"
	case "check_in":
		orderByField = "a.check_in"
	case "check_out":
		orderByField = "a.check_out"
	case "status":
		orderByField = "a.status"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	// Build query with pagination
	selectQuery := fmt.Sprintf(`
		SELECT %s %s
		WHERE %s
		ORDER BY %s %s, a.id
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, attendanceFrom, baseWhere, orderByField, sortOrder, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := max(filter.Page, 1)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendances: %w", err)
	}
	defer rows.Close()

	var attendances []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendances = append(attendances, att)
	}

	return attendances, total, rows.Err()
}

// StatusesOn implements attendance.AttendanceRepository.
func (a *attendanceRepository) StatusesOn(ctx context.Context, date workday.Date) (map[string]attendance.Status, error) {
	q := GetQuerier(ctx, a.db)

	rows, err := q.Query(ctx, `SELECT employee_id, status FROM attendances WHERE date = $1`, date.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]attendance.Status)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("failed to scan attendance status: %w", err)
		}
		statuses[id] = attendance.Status(status)
	}

	return statuses, rows.Err()
}

// BulkCreateAbsences implements attendance.AttendanceRepository. A record
// written concurrently by a check-in wins and the absence is skipped.
func (a *attendanceRepository) BulkCreateAbsences(ctx context.Context, employeeIDs []string, date workday.Date) (int64, error) {
	if len(employeeIDs) == 0 {
		return 0, nil
	}
	q := GetQuerier(ctx, a.db)

	ids := make([]string, len(employeeIDs))
	for i := range employeeIDs {
		ids[i] = newID()
	}

	query := `
		INSERT INTO attendances (id, employee_id, date, status, late_minutes, is_violation)
		SELECT u.id, u.employee_id, $3::date, $4::text, 0, FALSE
		FROM unnest($1::text[]::uuid[], $2::text[]::uuid[]) AS u(id, employee_id)
		ON CONFLICT (employee_id, date) DO NOTHING
	`

	tag, err := q.Exec(ctx, query, ids, employeeIDs, date.Time(), attendance.StatusAbsent)
	if err != nil {
		return 0, fmt.Errorf("failed to insert absences: %w", err)
	}

	return tag.RowsAffected(), nil
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
