package attendance

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/area"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/geo"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/memory"
	scheduleservice "github.com/cmlabs-hris/attendance-backend-go/internal/service/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	wib     = workday.FixedZone(7)
	tuesday = workday.Date{Year: 2024, Month: time.March, Day: 5}
	office  = geo.Point{Latitude: -6.200000, Longitude: 106.816666}
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 5, hour, minute, 0, 0, wib)
}

func metersNorth(p geo.Point, meters float64) geo.Point {
	return geo.Point{Latitude: p.Latitude + meters/geo.EarthRadiusMeters*(180/math.Pi), Longitude: p.Longitude}
}

type recordingNotifier struct {
	mu       sync.Mutex
	admin    []notification.NotificationType
	employee map[string][]notification.NotificationType
}

func (n *recordingNotifier) NotifyAdmins(ctx context.Context, typ notification.NotificationType, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, typ)
}

func (n *recordingNotifier) NotifyEmployee(ctx context.Context, employeeID string, typ notification.NotificationType, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.employee == nil {
		n.employee = make(map[string][]notification.NotificationType)
	}
	n.employee[employeeID] = append(n.employee[employeeID], typ)
}

func (n *recordingNotifier) Subscribe(ctx context.Context, sub notification.Subscriber) (<-chan notification.SSEEvent, func()) {
	return nil, func() {}
}

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	svc      attendance.AttendanceService
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	if opts.Policy.Location == nil {
		opts.Policy = schedule.DefaultPolicy()
	}

	store := memory.New()
	store.AddArea(area.Area{ID: "hq", Name: "HQ", Latitude: office.Latitude, Longitude: office.Longitude, RadiusMeters: 100, IsDefault: true})
	store.AddEmployee(employee.Employee{ID: "e1", FullName: "Budi", IsActive: true})
	store.AddEmployee(employee.Employee{ID: "e2", FullName: "Sari", IsActive: true})
	store.AddEmployee(employee.Employee{ID: "gone", FullName: "Former", IsActive: false})

	notifier := &recordingNotifier{}
	resolver := scheduleservice.NewResolver(store.Shifts(), store.Entries(), opts.Policy)
	svc := NewAttendanceService(memory.NewTransactor(), store.AttendanceRepo(), store.Employees(), store.Areas(), store.Leaves(), resolver, notifier, opts)

	return fixture{store: store, notifier: notifier, svc: svc}
}

func checkInAt(p geo.Point) attendance.CheckInRequest {
	return attendance.CheckInRequest{EmployeeID: "e1", Latitude: &p.Latitude, Longitude: &p.Longitude}
}

func TestCheckIn_InsideGeofence(t *testing.T) {
	f := newFixture(t, Options{GeofenceRequired: true})

	resp, err := f.svc.CheckIn(context.Background(), checkInAt(metersNorth(office, 50)), at(9, 15))
	require.NoError(t, err)

	assert.Equal(t, "hadir", resp.Status)
	assert.Equal(t, 15, resp.LateMinutes)
	assert.False(t, resp.IsViolation)
	assert.Equal(t, "2024-03-05", resp.Date)
	assert.InDelta(t, 50, *resp.DistanceMeters, 0.5)
	assert.Equal(t, "org_default", resp.Shift.Source)
	assert.Empty(t, f.notifier.admin)
}

func TestCheckIn_OnTimeAndEarly(t *testing.T) {
	for _, tc := range []struct {
		name string
		now  time.Time
	}{
		{"exactly nine", at(9, 0)},
		{"one minute early", at(8, 59)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{GeofenceRequired: true})
			resp, err := f.svc.CheckIn(context.Background(), checkInAt(office), tc.now)
			require.NoError(t, err)
			assert.Equal(t, "hadir", resp.Status)
			assert.Zero(t, resp.LateMinutes)
		})
	}
}

func TestCheckIn_OutsideGeofence(t *testing.T) {
	f := newFixture(t, Options{GeofenceRequired: true})

	resp, err := f.svc.CheckIn(context.Background(), checkInAt(metersNorth(office, 500)), at(9, 45))
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.Status)
	assert.True(t, resp.IsViolation)
	assert.Zero(t, resp.LateMinutes)
	assert.Equal(t, []notification.NotificationType{notification.TypeAttendancePending}, f.notifier.admin)

	stored := f.store.Attendances()
	require.Len(t, stored, 1)
	assert.Equal(t, attendance.StatusPending, stored[0].Status)
	assert.Equal(t, "hq", *stored[0].AreaID)
}

func TestCheckIn_SecondAttemptConflicts(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, checkInAt(office), at(8, 0))
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, checkInAt(metersNorth(office, 500)), at(12, 0))
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)
	assert.Len(t, f.store.Attendances(), 1)
}

func TestCheckIn_AfterReconciledAbsence(t *testing.T) {
	f := newFixture(t, Options{})

	// An alpha row written by reconciliation occupies the day.
	f.store.PutAttendance(attendance.NewAbsence("e2", tuesday))
	_, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{EmployeeID: "e2", LocationUnavailableAck: true}, at(9, 0))
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)
	assert.Len(t, f.store.Attendances(), 1)
}

func TestCheckIn_MissingLocation(t *testing.T) {
	ctx := context.Background()

	t.Run("required without ack", func(t *testing.T) {
		f := newFixture(t, Options{GeofenceRequired: true})
		_, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{EmployeeID: "e1"}, at(9, 0))
		assert.ErrorIs(t, err, attendance.ErrLocationRequired)
		assert.Empty(t, f.store.Attendances())
	})

	t.Run("required with ack", func(t *testing.T) {
		f := newFixture(t, Options{GeofenceRequired: true})
		resp, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{EmployeeID: "e1", LocationUnavailableAck: true}, at(9, 5))
		require.NoError(t, err)
		assert.Equal(t, "hadir", resp.Status)
		assert.Equal(t, 5, resp.LateMinutes)
		assert.Nil(t, resp.DistanceMeters)
		assert.False(t, resp.IsViolation)
	})

	t.Run("not required", func(t *testing.T) {
		f := newFixture(t, Options{GeofenceRequired: false})
		resp, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{EmployeeID: "e1"}, at(9, 0))
		require.NoError(t, err)
		assert.Equal(t, "hadir", resp.Status)
	})
}

func TestCheckIn_AreaResolution(t *testing.T) {
	ctx := context.Background()
	far := metersNorth(office, 5000)

	t.Run("no area anywhere is permissive", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.store.AddArea(area.Area{ID: "hq", Latitude: office.Latitude, Longitude: office.Longitude, RadiusMeters: 100})

		resp, err := f.svc.CheckIn(ctx, checkInAt(far), at(9, 0))
		require.NoError(t, err)
		assert.Equal(t, "hadir", resp.Status)
		assert.Nil(t, resp.AreaID)
	})

	t.Run("employee area wins over shared", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.store.AddArea(area.Area{ID: "branch", Latitude: far.Latitude, Longitude: far.Longitude, RadiusMeters: 200})
		areaID := "branch"
		f.store.AddEmployee(employee.Employee{ID: "e1", IsActive: true, AreaID: &areaID})

		resp, err := f.svc.CheckIn(ctx, checkInAt(far), at(9, 0))
		require.NoError(t, err)
		assert.Equal(t, "hadir", resp.Status)
		assert.Equal(t, "branch", *resp.AreaID)
	})

	t.Run("configured shared area", func(t *testing.T) {
		policy := schedule.DefaultPolicy()
		policy.SharedArea = &area.Area{Name: "configured", Latitude: office.Latitude, Longitude: office.Longitude, RadiusMeters: 100}
		f := newFixture(t, Options{Policy: policy})
		f.store.AddArea(area.Area{ID: "hq", Latitude: office.Latitude, Longitude: office.Longitude, RadiusMeters: 100})

		resp, err := f.svc.CheckIn(ctx, checkInAt(far), at(9, 0))
		require.NoError(t, err)
		assert.Equal(t, "pending", resp.Status)
		assert.Nil(t, resp.AreaID)
		assert.NotNil(t, resp.DistanceMeters)
	})
}

func TestCheckIn_EmployeeState(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{EmployeeID: "gone"}, at(9, 0))
	assert.ErrorIs(t, err, employee.ErrEmployeeInactive)

	_, err = f.svc.CheckIn(ctx, attendance.CheckInRequest{EmployeeID: "nobody"}, at(9, 0))
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	_, err = f.svc.CheckIn(ctx, attendance.CheckInRequest{}, at(9, 0))
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.Empty(t, f.store.Attendances())
}

func TestCheckIn_DayBoundaryUsesOrgOffset(t *testing.T) {
	f := newFixture(t, Options{})

	// 17:30 UTC on the 4th is 00:30 on the 5th at UTC+7.
	resp, err := f.svc.CheckIn(context.Background(), checkInAt(office), time.Date(2024, 3, 4, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", resp.Date)
	assert.Zero(t, resp.LateMinutes)
}

func TestCheckIn_DayOffShift(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.AddShift(schedule.Shift{ID: "off", Name: "Libur"})
	_, err := f.store.Entries().UpsertMany(context.Background(), []schedule.ScheduleEntry{{EmployeeID: "e1", Date: tuesday, ShiftID: "off"}})
	require.NoError(t, err)

	resp, err := f.svc.CheckIn(context.Background(), checkInAt(office), at(13, 0))
	require.NoError(t, err)
	assert.Zero(t, resp.LateMinutes)
	assert.True(t, resp.Shift.IsDayOff)
}

func TestCheckOut(t *testing.T) {
	ctx := context.Background()

	t.Run("without check-in", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.svc.CheckOut(ctx, attendance.CheckOutRequest{EmployeeID: "e1"}, at(17, 0))
		assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)
	})

	t.Run("present then twice", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.svc.CheckIn(ctx, checkInAt(office), at(9, 10))
		require.NoError(t, err)

		resp, err := f.svc.CheckOut(ctx, attendance.CheckOutRequest{EmployeeID: "e1"}, at(17, 5))
		require.NoError(t, err)
		assert.Equal(t, "hadir", resp.Status)
		assert.Equal(t, 10, resp.LateMinutes)
		assert.Equal(t, "2024-03-05T17:05:00+07:00", *resp.CheckOut)

		_, err = f.svc.CheckOut(ctx, attendance.CheckOutRequest{EmployeeID: "e1"}, at(18, 0))
		assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
	})

	t.Run("pending stays pending", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.svc.CheckIn(ctx, checkInAt(metersNorth(office, 500)), at(9, 0))
		require.NoError(t, err)

		resp, err := f.svc.CheckOut(ctx, attendance.CheckOutRequest{EmployeeID: "e1"}, at(17, 0))
		require.NoError(t, err)
		assert.Equal(t, "pending", resp.Status)
		assert.True(t, resp.IsViolation)
	})

	t.Run("absence record has no check-in", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.store.PutAttendance(attendance.NewAbsence("e1", tuesday))
		_, err := f.svc.CheckOut(ctx, attendance.CheckOutRequest{EmployeeID: "e1"}, at(17, 0))
		assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)
	})
}

func TestDecide(t *testing.T) {
	ctx := context.Background()

	pendingAt := func(t *testing.T, f fixture, now time.Time) string {
		t.Helper()
		resp, err := f.svc.CheckIn(ctx, checkInAt(metersNorth(office, 500)), now)
		require.NoError(t, err)
		require.Equal(t, "pending", resp.Status)
		return resp.ID
	}

	t.Run("approve recomputes from original check-in", func(t *testing.T) {
		f := newFixture(t, Options{})
		id := pendingAt(t, f, at(9, 15))

		// Reviewed three days later.
		resp, err := f.svc.Decide(ctx, attendance.DecideRequest{AttendanceID: id, Decision: "approve", AdminID: "mgr-1"}, at(9, 15).Add(72*time.Hour))
		require.NoError(t, err)

		assert.Equal(t, "hadir", resp.Status)
		assert.Equal(t, 15, resp.LateMinutes)
		assert.True(t, resp.IsViolation)
		assert.Equal(t, "mgr-1", resp.ReviewedBy)
		assert.Equal(t, "2024-03-08T09:15:00+07:00", resp.ReviewedAt)
		assert.Equal(t, []notification.NotificationType{notification.TypeAttendanceDecided}, f.notifier.employee["e1"])

		// Re-approval yields the same lateness.
		again, err := f.svc.Decide(ctx, attendance.DecideRequest{AttendanceID: id, Decision: "approve", AdminID: "mgr-2"}, at(9, 15).Add(96*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 15, again.LateMinutes)
	})

	t.Run("approve uses the shift of the record date", func(t *testing.T) {
		f := newFixture(t, Options{})
		start, end := workday.MustTimeOfDay("08:00"), workday.MustTimeOfDay("16:00")
		f.store.AddShift(schedule.Shift{ID: "early", Name: "Early", Start: &start, End: &end})
		_, err := f.store.Entries().UpsertMany(ctx, []schedule.ScheduleEntry{{EmployeeID: "e1", Date: tuesday, ShiftID: "early"}})
		require.NoError(t, err)

		id := pendingAt(t, f, at(8, 40))
		resp, err := f.svc.Decide(ctx, attendance.DecideRequest{AttendanceID: id, Decision: "approve", AdminID: "mgr-1"}, at(8, 40).Add(48*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 40, resp.LateMinutes)
	})

	t.Run("reject", func(t *testing.T) {
		f := newFixture(t, Options{})
		id := pendingAt(t, f, at(9, 15))

		resp, err := f.svc.Decide(ctx, attendance.DecideRequest{AttendanceID: id, Decision: "reject", AdminID: "mgr-1"}, at(12, 0))
		require.NoError(t, err)
		assert.Equal(t, "alpha", resp.Status)
		assert.Zero(t, resp.LateMinutes)
		assert.True(t, resp.IsViolation)

		stored, err := f.store.AttendanceRepo().GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, stored.IsViolation)
		assert.Equal(t, attendance.StatusAbsent, stored.Status)
	})

	t.Run("present record is not reviewable", func(t *testing.T) {
		f := newFixture(t, Options{})
		resp, err := f.svc.CheckIn(ctx, checkInAt(office), at(9, 0))
		require.NoError(t, err)

		_, err = f.svc.Decide(ctx, attendance.DecideRequest{AttendanceID: resp.ID, Decision: "approve", AdminID: "mgr-1"}, at(10, 0))
		assert.ErrorIs(t, err, attendance.ErrAttendanceAlreadyProcessed)
	})

	t.Run("unknown record and bad decision", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.svc.Decide(ctx, attendance.DecideRequest{AttendanceID: "nope", Decision: "approve", AdminID: "mgr-1"}, at(10, 0))
		assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

		_, err = f.svc.Decide(ctx, attendance.DecideRequest{AttendanceID: "nope", Decision: "maybe", AdminID: "mgr-1"}, at(10, 0))
		var verrs validator.ValidationErrors
		assert.ErrorAs(t, err, &verrs)
	})
}

func TestSubmitJustification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	resp, err := f.svc.CheckIn(ctx, checkInAt(metersNorth(office, 500)), at(9, 0))
	require.NoError(t, err)

	_, err = f.svc.SubmitJustification(ctx, attendance.JustificationRequest{EmployeeID: "e2", AttendanceID: resp.ID, Reason: "not mine"})
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

	got, err := f.svc.SubmitJustification(ctx, attendance.JustificationRequest{EmployeeID: "e1", AttendanceID: resp.ID, Reason: "visiting client"})
	require.NoError(t, err)
	assert.Equal(t, "visiting client", *got.Justification)
	assert.Contains(t, f.notifier.admin, notification.TypeAttendanceJustified)

	_, err = f.svc.Decide(ctx, attendance.DecideRequest{AttendanceID: resp.ID, Decision: "approve", AdminID: "mgr-1"}, at(10, 0))
	require.NoError(t, err)
	_, err = f.svc.SubmitJustification(ctx, attendance.JustificationRequest{EmployeeID: "e1", AttendanceID: resp.ID, Reason: "late note"})
	assert.ErrorIs(t, err, attendance.ErrNotPending)
}

func TestCorrectCheckOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	resp, err := f.svc.CheckIn(ctx, checkInAt(office), at(9, 0))
	require.NoError(t, err)

	_, err = f.svc.CorrectCheckOut(ctx, attendance.CorrectCheckOutRequest{AttendanceID: resp.ID, CheckOut: "2024-03-05T08:00:00+07:00", ActorID: "mgr-1"})
	assert.ErrorIs(t, err, attendance.ErrCheckOutBeforeCheckIn)

	got, err := f.svc.CorrectCheckOut(ctx, attendance.CorrectCheckOutRequest{AttendanceID: resp.ID, CheckOut: "2024-03-05T10:00:00Z", ActorID: "mgr-1"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T17:00:00+07:00", *got.CheckOut)
}

func TestReadSide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	status, err := f.svc.TodayStatus(ctx, "e1", at(7, 0))
	require.NoError(t, err)
	assert.True(t, status.CanCheckIn)
	assert.False(t, status.CanCheckOut)
	assert.Nil(t, status.Attendance)

	created, err := f.svc.CheckIn(ctx, checkInAt(office), at(9, 0))
	require.NoError(t, err)
	f.store.PutAttendance(attendance.NewAbsence("e1", tuesday.AddDays(-1)))
	f.store.PutAttendance(attendance.NewAbsence("e2", tuesday))

	status, err = f.svc.TodayStatus(ctx, "e1", at(12, 0))
	require.NoError(t, err)
	assert.False(t, status.CanCheckIn)
	assert.True(t, status.CanCheckOut)
	assert.Equal(t, created.ID, status.Attendance.ID)

	got, err := f.svc.GetAttendance(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "e1", got.EmployeeID)

	mine, err := f.svc.GetMyAttendance(ctx, "e1", attendance.MyAttendanceFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.TotalCount)
	assert.Equal(t, "2024-03-05", mine.Attendances[0].Date)
	assert.Equal(t, "1-2 of 2", mine.Showing)

	absent := "alpha"
	all, err := f.svc.ListAttendance(ctx, attendance.AttendanceFilter{Status: &absent})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.TotalCount)

	_, err = f.svc.ListAttendance(ctx, attendance.AttendanceFilter{Limit: 500})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestTodayStatus_OnLeave(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.AddLeave(leave.LeaveRequest{
		EmployeeID: "e1", Type: leave.LeaveTypeVacation, Status: leave.LeaveStatusApproved,
		StartDate: tuesday, EndDate: tuesday.AddDays(2),
	})

	status, err := f.svc.TodayStatus(context.Background(), "e1", at(8, 0))
	require.NoError(t, err)
	assert.True(t, status.OnLeave)
}
