// Command reconcile marks unexcused absences for one day and exits. It is
// meant to be run by an external scheduler after the working day ends.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/config"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/reconcile"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/postgresql"
	reconcileService "github.com/cmlabs-hris/attendance-backend-go/internal/service/reconcile"
	scheduleService "github.com/cmlabs-hris/attendance-backend-go/internal/service/schedule"
)

// logNotifier stands in for the live feed, which has no listeners in a
// one-shot process.
type logNotifier struct{}

func (logNotifier) NotifyAdmins(ctx context.Context, typ notification.NotificationType, data interface{}) {
	slog.Debug("notification skipped", "event", typ)
}

func (logNotifier) NotifyEmployee(ctx context.Context, employeeID string, typ notification.NotificationType, data interface{}) {
	slog.Debug("notification skipped", "event", typ, "employee_id", employeeID)
}

func (logNotifier) Subscribe(ctx context.Context, sub notification.Subscriber) (<-chan notification.SSEEvent, func()) {
	ch := make(chan notification.SSEEvent)
	close(ch)
	return ch, func() {}
}

func main() {
	date := flag.String("date", "", "day to reconcile (YYYY-MM-DD); defaults to today in the organisation time zone")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	os.Exit(run(cfg, *date, *timeout))
}

// run returns 1 when the run aborts and 2 when some employees were skipped.
func run(cfg *config.Config, date string, timeout time.Duration) int {
	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.Options{
		MaxConns:     cfg.Database.MaxConns,
		MinConns:     1,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		slog.Error("connect to database", "error", err)
		return 1
	}
	defer db.Close()

	policy := cfg.Policy()
	resolver := scheduleService.NewResolver(postgresql.NewShiftRepository(db), postgresql.NewScheduleEntryRepository(db), policy)
	svc := reconcileService.NewReconcileService(
		postgresql.NewAttendanceRepository(db),
		postgresql.NewEmployeeRepository(db),
		postgresql.NewLeaveRequestRepository(db),
		resolver,
		logNotifier{},
		policy.Location,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	summary, err := svc.ReconcileAbsences(ctx, reconcile.ReconcileRequest{Date: date}, time.Now())
	if err != nil {
		slog.Error("reconciliation failed", "error", err)
		return 1
	}

	if err := json.NewEncoder(os.Stdout).Encode(summary); err != nil {
		slog.Error("write summary", "error", err)
	}
	if summary.Failed > 0 {
		return 2
	}
	return 0
}
