package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-backend-go/internal/service/attendance"
	notificationService "github.com/cmlabs-hris/attendance-backend-go/internal/service/notification"
	reconcileService "github.com/cmlabs-hris/attendance-backend-go/internal/service/reconcile"
	scheduleService "github.com/cmlabs-hris/attendance-backend-go/internal/service/schedule"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.Options{
		MaxConns:     cfg.Database.MaxConns,
		MinConns:     cfg.Database.MinConns,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		log.Fatal("Error connecting to database: ", err)
	}
	defer db.Close()

	transactor := postgresql.NewTransactor(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	areaRepo := postgresql.NewAreaRepository(db)
	shiftRepo := postgresql.NewShiftRepository(db)
	entryRepo := postgresql.NewScheduleEntryRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)

	policy := cfg.Policy()
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub()
	notifService := notificationService.NewNotificationService(hub)
	resolver := scheduleService.NewResolver(shiftRepo, entryRepo, policy)

	attendanceSvc := attendanceService.NewAttendanceService(
		transactor,
		attendanceRepo,
		employeeRepo,
		areaRepo,
		leaveRequestRepo,
		resolver,
		notifService,
		attendanceService.Options{
			Policy:           policy,
			GeofenceRequired: cfg.Attendance.GeofenceRequired,
		},
	)
	scheduleSvc := scheduleService.NewScheduleService(transactor, employeeRepo, shiftRepo, entryRepo, resolver)
	reconcileSvc := reconcileService.NewReconcileService(attendanceRepo, employeeRepo, leaveRequestRepo, resolver, notifService, policy.Location)

	router := appHTTP.NewRouter(
		JWTService,
		appHTTP.Handlers{
			Attendance: appHTTP.NewAttendanceHandler(attendanceSvc),
			Schedule:   appHTTP.NewScheduleHandler(scheduleSvc),
			Reconcile:  appHTTP.NewReconcileHandler(reconcileSvc),
			Event:      appHTTP.NewEventHandler(notifService, JWTService),
		},
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Env:            cfg.App.Env,
			Version:        version,
			LogLevel:       cfg.SlogLevel(),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server started", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Open event streams end with the server's base context.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
