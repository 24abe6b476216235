package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

type leaveRequestRepository struct {
	db *database.DB
}

const leaveRequestColumns = `id, employee_id, leave_type, start_date, end_date, status, created_at, updated_at`

func scanLeaveRequest(row scanner) (leave.LeaveRequest, error) {
	var (
		l          leave.LeaveRequest
		start, end time.Time
	)
	if err := row.Scan(&l.ID, &l.EmployeeID, &l.Type, &start, &end, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return leave.LeaveRequest{}, err
	}
	l.StartDate = workday.FromTime(start)
	l.EndDate = workday.FromTime(end)
	return l, nil
}

// ListApprovedOn implements leave.LeaveRequestRepository.
func (r *leaveRequestRepository) ListApprovedOn(ctx context.Context, date workday.Date) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveRequestColumns + `
		FROM leave_requests
		WHERE status = $1
		  AND start_date <= $2
		  AND end_date >= $2
	`

	rows, err := q.Query(ctx, query, leave.LeaveStatusApproved, date.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		l, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, l)
	}

	return requests, rows.Err()
}

// GetApprovedForEmployee implements leave.LeaveRequestRepository.
func (r *leaveRequestRepository) GetApprovedForEmployee(ctx context.Context, employeeID string, date workday.Date) (*leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveRequestColumns + `
		FROM leave_requests
		WHERE employee_id = $1
		  AND status = $2
		  AND start_date <= $3
		  AND end_date >= $3
		ORDER BY start_date
		LIMIT 1
	`

	l, err := scanLeaveRequest(q.QueryRow(ctx, query, employeeID, leave.LeaveStatusApproved, date.Time()))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get approved leave: %w", err)
	}

	return &l, nil
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepository{db: db}
}
