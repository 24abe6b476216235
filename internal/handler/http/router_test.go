package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/area"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/geo"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/attendance-backend-go/internal/service/attendance"
	notificationService "github.com/cmlabs-hris/attendance-backend-go/internal/service/notification"
	reconcileService "github.com/cmlabs-hris/attendance-backend-go/internal/service/reconcile"
	scheduleService "github.com/cmlabs-hris/attendance-backend-go/internal/service/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

var (
	office    = geo.Point{Latitude: -6.200000, Longitude: 106.816666}
	employee1 = user.Actor{UserID: "u-e1", EmployeeID: "e1", Role: user.RoleEmployee}
	employee2 = user.Actor{UserID: "u-e2", EmployeeID: "e2", Role: user.RoleEmployee}
	manager   = user.Actor{UserID: "u-admin", Role: user.RoleManager}
)

// Tuesday 2024-03-05, 09:15 at UTC+7.
func fixedNow() time.Time {
	return time.Date(2024, 3, 5, 9, 15, 0, 0, workday.FixedZone(7))
}

type testServer struct {
	router http.Handler
	jwt    jwt.Service
	store  *memory.Store
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	store := memory.New()
	store.AddArea(area.Area{ID: "hq", Name: "HQ", Latitude: office.Latitude, Longitude: office.Longitude, RadiusMeters: 100, IsDefault: true})
	store.AddEmployee(employee.Employee{ID: "e1", FullName: "Budi", IsActive: true})
	store.AddEmployee(employee.Employee{ID: "e2", FullName: "Sari", IsActive: true})
	start, end := workday.MustTimeOfDay("07:00"), workday.MustTimeOfDay("15:00")
	store.AddShift(schedule.Shift{ID: "early", Name: "Early", Start: &start, End: &end})

	policy := schedule.DefaultPolicy()
	resolver := scheduleService.NewResolver(store.Shifts(), store.Entries(), policy)
	notifSvc := notificationService.NewNotificationService(sse.NewHub())
	jwtSvc := jwt.NewJWTService(handlerTestSecret, time.Hour)

	attendanceSvc := attendanceService.NewAttendanceService(
		memory.NewTransactor(), store.AttendanceRepo(), store.Employees(), store.Areas(), store.Leaves(),
		resolver, notifSvc, attendanceService.Options{Policy: policy, GeofenceRequired: true},
	)
	scheduleSvc := scheduleService.NewScheduleService(memory.NewTransactor(), store.Employees(), store.Shifts(), store.Entries(), resolver)
	reconcileSvc := reconcileService.NewReconcileService(store.AttendanceRepo(), store.Employees(), store.Leaves(), resolver, notifSvc, policy.Location)

	handlers := Handlers{
		Attendance: &attendanceHandlerImpl{attendanceService: attendanceSvc, now: fixedNow},
		Schedule:   NewScheduleHandler(scheduleSvc),
		Reconcile:  &reconcileHandlerImpl{reconcileService: reconcileSvc, now: fixedNow},
		Event:      NewEventHandler(notifSvc, jwtSvc),
	}
	router := NewRouter(jwtSvc, handlers, RouterOptions{Env: "test", Version: "test", LogLevel: slog.LevelError})

	return testServer{router: router, jwt: jwtSvc, store: store}
}

func (s testServer) token(t *testing.T, actor user.Actor) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken(actor)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		TotalItems int64 `json:"total_items"`
	} `json:"meta"`
}

func (s testServer) do(t *testing.T, method, path string, actor *user.Actor, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *actor))
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func pointBody(p geo.Point) map[string]interface{} {
	return map[string]interface{}{"latitude": p.Latitude, "longitude": p.Longitude}
}

func farFromOffice() geo.Point {
	return geo.Point{Latitude: office.Latitude + 1000.0/geo.EarthRadiusMeters*(180/math.Pi), Longitude: office.Longitude}
}

func TestRouter_RequiresAccessToken(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/attendances/check-in", nil, pointBody(office))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	// An SSE token is not a bearer token.
	sseToken, _, err := s.jwt.GenerateSSEToken(employee1)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendances/today", nil)
	req.Header.Set("Authorization", "Bearer "+sseToken)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RoleChecks(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/attendances", &employee1, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/reconcile", &employee1, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Managers without an employee record cannot clock in.
	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &manager, pointBody(office))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	pending := user.Actor{UserID: "u-new", EmployeeID: "e2", Role: user.RolePending}
	rec, _ = s.do(t, http.MethodGet, "/api/v1/attendances/today", &pending, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAttendanceHandler_CheckInAndOut(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee1, pointBody(office))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	var checkIn struct {
		Status      string `json:"status"`
		LateMinutes int    `json:"late_minutes"`
		Date        string `json:"date"`
	}
	decodeData(t, env, &checkIn)
	assert.Equal(t, "hadir", checkIn.Status)
	assert.Equal(t, 15, checkIn.LateMinutes)
	assert.Equal(t, "2024-03-05", checkIn.Date)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee1, pointBody(office))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The check-out body is optional.
	rec, env = s.do(t, http.MethodPost, "/api/v1/attendances/check-out", &employee1, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Check out successful", env.Message)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/check-out", &employee1, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/check-out", &employee2, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceHandler_BadInput(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee1, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee1, map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/attendances?is_violation=maybe", &manager, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "is_violation")
}

func TestAttendanceHandler_ReviewFlow(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee1, pointBody(farFromOffice()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pending struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		IsViolation bool   `json:"is_violation"`
	}
	decodeData(t, env, &pending)
	assert.Equal(t, "pending", pending.Status)
	assert.True(t, pending.IsViolation)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/"+pending.ID+"/justification", &employee1, map[string]string{"reason": "Client visit"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = s.do(t, http.MethodGet, "/api/v1/attendances?is_violation=true", &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.TotalItems)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/"+pending.ID+"/decision", &manager, map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/v1/attendances/"+pending.ID+"/decision", &manager, map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var decided struct {
		Status      string `json:"status"`
		LateMinutes int    `json:"late_minutes"`
		ReviewedBy  string `json:"reviewed_by"`
	}
	decodeData(t, env, &decided)
	assert.Equal(t, "hadir", decided.Status)
	assert.Equal(t, 15, decided.LateMinutes)
	assert.Equal(t, manager.UserID, decided.ReviewedBy)

	// Records that never left the geofence are not reviewable.
	rec, env = s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee2, pointBody(office))
	require.Equal(t, http.StatusCreated, rec.Code)
	var onSite struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &onSite)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/"+onSite.ID+"/decision", &manager, map[string]string{"decision": "reject"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/attendances/"+pending.ID, &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		EmployeeID    string  `json:"employee_id"`
		Justification *string `json:"justification"`
	}
	decodeData(t, env, &detail)
	assert.Equal(t, "e1", detail.EmployeeID)
	require.NotNil(t, detail.Justification)
	assert.Equal(t, "Client visit", *detail.Justification)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/attendances/does-not-exist", &manager, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceHandler_CorrectCheckOut(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee1, pointBody(office))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &created)

	path := "/api/v1/attendances/" + created.ID + "/check-out"
	rec, _ = s.do(t, http.MethodPut, path, &manager, map[string]string{"check_out": "2024-03-05T08:00:00+07:00"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env = s.do(t, http.MethodPut, path, &manager, map[string]string{"check_out": "2024-03-05T17:30:00+07:00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Check out corrected", env.Message)
}

func TestAttendanceHandler_SelfService(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/attendances/today", &employee1, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	_, _ = s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee1, pointBody(office))

	rec, env = s.do(t, http.MethodGet, "/api/v1/attendances/my", &employee1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.TotalItems)

	rec, env = s.do(t, http.MethodGet, "/api/v1/attendances/my", &employee2, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Meta)
	assert.Zero(t, env.Meta.TotalItems)
}

func TestReconcileHandler(t *testing.T) {
	s := newTestServer(t)

	_, _ = s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee1, pointBody(office))

	rec, env := s.do(t, http.MethodPost, "/api/v1/attendances/reconcile", &manager, map[string]string{"date": "2024-03-05"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary struct {
		Date            string `json:"date"`
		ActiveEmployees int    `json:"active_employees"`
		Present         int    `json:"present"`
		AlreadyAbsent   int    `json:"already_absent"`
		NewlyAbsent     int64  `json:"newly_absent"`
	}
	decodeData(t, env, &summary)
	assert.Equal(t, "2024-03-05", summary.Date)
	assert.Equal(t, 2, summary.ActiveEmployees)
	assert.Equal(t, 1, summary.Present)
	assert.Equal(t, int64(1), summary.NewlyAbsent)

	// No body means today, which is the same date; nothing new to mark.
	rec, env = s.do(t, http.MethodPost, "/api/v1/attendances/reconcile", &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, env, &summary)
	assert.Equal(t, "2024-03-05", summary.Date)
	assert.Zero(t, summary.NewlyAbsent)
	assert.Equal(t, 1, summary.Present)
	assert.Equal(t, 1, summary.AlreadyAbsent)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/reconcile?date=05-03-2024", &manager, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestScheduleHandler(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/schedules/resolve?employee_id=e1&date=2024-03-05", &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resolved schedule.ResolvedShiftResponse
	decodeData(t, env, &resolved)
	assert.Equal(t, "org_default", resolved.Source)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/schedules/entries", &manager, map[string]interface{}{
		"employee_ids": []string{"e1"},
		"shift_id":     "early",
		"start_date":   "2024-03-04",
		"end_date":     "2024-03-10",
		"weekdays":     []int{1, 2, 3, 4, 5},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = s.do(t, http.MethodGet, "/api/v1/schedules/resolve?employee_id=e1&date=2024-03-05", &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, env, &resolved)
	assert.Equal(t, "entry", resolved.Source)
	require.NotNil(t, resolved.StartTime)
	assert.Equal(t, "07:00", *resolved.StartTime)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/schedules/resolve?employee_id=e1", &manager, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/schedules/resolve?employee_id=e1&date=2024-03-05", &employee1, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEventHandler_Stream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	rec, env := s.do(t, http.MethodGet, "/api/v1/events/token", &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	decodeData(t, env, &tok)
	require.NotEmpty(t, tok.Token)
	assert.Equal(t, 300, tok.ExpiresIn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events/stream?token="+tok.Token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	waitFor := func(want string) {
		t.Helper()
		for lines.Scan() {
			if lines.Text() == want {
				return
			}
		}
		t.Fatalf("stream ended before %q: %v", want, lines.Err())
	}
	waitFor("event: connected")

	// An out-of-zone check-in is pushed to the admin feed.
	rec, _ = s.do(t, http.MethodPost, "/api/v1/attendances/check-in", &employee2, pointBody(farFromOffice()))
	require.Equal(t, http.StatusCreated, rec.Code)
	waitFor("event: attendance.pending")
}

func TestEventHandler_StreamRejectsBadTokens(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Access tokens are not accepted on the stream.
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/stream?token="+s.token(t, manager), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
