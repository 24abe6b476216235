package reconcile

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// Summary reports one reconciliation pass. Scheduled employees split into
// Present (any non-alpha record), AlreadyAbsent (alpha from an earlier pass),
// OnLeave and NewlyAbsent.
type Summary struct {
	Date            string `json:"date"`
	ActiveEmployees int    `json:"active_employees"`
	Scheduled       int    `json:"scheduled"`
	DayOff          int    `json:"day_off"`
	Present         int    `json:"present"`
	AlreadyAbsent   int    `json:"already_absent"`
	OnLeave         int    `json:"on_leave"`
	NewlyAbsent     int64  `json:"newly_absent"`
	Failed          int    `json:"failed"`
}

type ReconcileRequest struct {
	// Date is YYYY-MM-DD; empty means today in the organisation offset.
	Date string `json:"date"`
}

func (r *ReconcileRequest) Validate() error {
	if r.Date == "" {
		return nil
	}
	if _, valid := validator.IsValidDate(r.Date); !valid {
		return validator.ValidationErrors{{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		}}
	}
	return nil
}

type ReconcileService interface {
	// ReconcileAbsences marks scheduled employees without any record or
	// approved leave as absent. Safe to repeat for the same date.
	ReconcileAbsences(ctx context.Context, req ReconcileRequest, now time.Time) (Summary, error)
}
