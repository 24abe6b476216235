package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testDB *database.DB

// migration is applied before the suite; its statements are idempotent.
const migration = "../../../../migrations/0001_attendance_core.up.sql"

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		fmt.Println("TEST_DATABASE_URL not set, skipping PostgreSQL integration tests")
		os.Exit(0)
	}

	db, err := database.NewPostgreSQLDB(dsn, database.Options{MaxConns: 4, MinConns: 1})
	if err != nil {
		fmt.Println("failed to connect to test database:", err)
		os.Exit(1)
	}

	ddl, err := os.ReadFile(migration)
	if err != nil {
		fmt.Println("failed to read migration:", err)
		os.Exit(1)
	}
	if _, err := db.Exec(context.Background(), string(ddl)); err != nil {
		fmt.Println("failed to apply migration:", err)
		os.Exit(1)
	}

	testDB = db
	code := m.Run()
	db.Close()
	os.Exit(code)
}

// truncateAll empties every table the attendance core owns.
func truncateAll(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(context.Background(), `
		TRUNCATE TABLE attendances, leave_requests, schedule_entries, employees, attendance_areas, shifts CASCADE
	`)
	require.NoError(t, err)
}

func insertEmployee(t *testing.T, name string, active bool) string {
	t.Helper()
	id := uuid.Must(uuid.NewV7()).String()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO employees (id, full_name, is_active) VALUES ($1, $2, $3)`, id, name, active)
	require.NoError(t, err)
	return id
}

// insertShift stores a shift; empty start and end make a day off.
func insertShift(t *testing.T, name, start, end string) string {
	t.Helper()
	id := uuid.Must(uuid.NewV7()).String()
	var startArg, endArg interface{}
	if start != "" {
		startArg, endArg = start, end
	}
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO shifts (id, name, start_time, end_time) VALUES ($1, $2, $3::time, $4::time)`, id, name, startArg, endArg)
	require.NoError(t, err)
	return id
}

func insertLeave(t *testing.T, employeeID, leaveType, start, end, status string) {
	t.Helper()
	_, err := testDB.Exec(context.Background(), `
		INSERT INTO leave_requests (id, employee_id, leave_type, start_date, end_date, status)
		VALUES ($1, $2, $3, $4::date, $5::date, $6)
	`, uuid.Must(uuid.NewV7()).String(), employeeID, leaveType, start, end, status)
	require.NoError(t, err)
}
