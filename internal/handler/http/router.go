package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the environment-dependent router settings.
type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	Version        string
	LogLevel       slog.Level
}

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Attendance AttendanceHandler
	Schedule   ScheduleHandler
	Reconcile  ReconcileHandler
	Event      EventHandler
}

func NewRouter(JWTService jwt.Service, h Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
		Level:       opts.LogLevel,
	})).With(
		slog.String("app", "attendance-core"),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// EventSource cannot send headers; the stream authenticates with its
		// own short-lived token.
		r.Get("/events/stream", h.Event.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Get("/events/token", h.Event.GetSSEToken)

			r.Route("/attendances", func(r chi.Router) {
				r.Use(chiMiddleware.AllowContentType("application/json"))

				// Employee self-service
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireEmployee)
					r.Post("/check-in", h.Attendance.CheckIn)
					r.Post("/check-out", h.Attendance.CheckOut)
					r.Get("/today", h.Attendance.Today)
					r.Get("/my", h.Attendance.GetMyAttendance)
					r.Post("/{id}/justification", h.Attendance.SubmitJustification)
				})

				// Admin
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager)
					r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/", h.Attendance.List)
					r.With(middleware.RequirePermission(user.PermissionAttendanceReconcile)).Post("/reconcile", h.Reconcile.Reconcile)
					r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/{id}", h.Attendance.Get)
					r.With(middleware.RequirePermission(user.PermissionAttendanceApprove)).Post("/{id}/decision", h.Attendance.Decide)
					r.With(middleware.RequirePermission(user.PermissionAttendanceCorrect)).Put("/{id}/check-out", h.Attendance.CorrectCheckOut)
				})
			})

			r.Route("/schedules", func(r chi.Router) {
				r.Use(middleware.RequireManager)
				r.Use(middleware.RequirePermission(user.PermissionScheduleManage))
				r.Get("/resolve", h.Schedule.Resolve)
				r.With(chiMiddleware.AllowContentType("application/json")).Post("/entries", h.Schedule.AssignSchedule)
			})
		})
	})

	return r
}
