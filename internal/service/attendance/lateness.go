package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
)

// LateMinutes returns whole minutes between the shift start on date and
// checkIn. The record's own date anchors the shift start, so the result does
// not depend on when it is computed.
func LateMinutes(shift schedule.ResolvedShift, date workday.Date, checkIn time.Time, loc *time.Location) int {
	if shift.DayOff {
		return 0
	}

	workStart := date.At(shift.Start, loc)
	if !checkIn.After(workStart) {
		return 0
	}

	return int(checkIn.Sub(workStart) / time.Minute)
}
