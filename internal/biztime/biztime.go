// Package biztime resolves absolute timestamps into business-local time for
// the Baghdad contact center: half-hour reporting buckets, the overnight
// maintenance window, and the 09:00-to-03:00(+1) business day.
package biztime

import (
	"fmt"
	"time"
)

// Zone is the fixed business timezone. Baghdad has not observed DST since
// 2008, so a fixed UTC+3 offset is equivalent to the IANA zone.
var Zone = time.FixedZone("Asia/Baghdad", 3*60*60)

// OperatingHours lists the 18 business-local hours of a shift in shift order:
// 09:00 through 23:00, then 00:00 through 02:00 of the next calendar day.
var OperatingHours = []int{9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 0, 1, 2}

// Info is the business-local resolution of an absolute timestamp.
type Info struct {
	Hour      int    // 0-23 in business-local time
	Minute    int    // 0-59
	BucketKey string // "YYYY-MM-DD HH:00" or "YYYY-MM-DD HH:30"
}

// Resolve converts an absolute timestamp into business-local hour/minute and
// the half-hour bucket key within that business-local calendar date.
func Resolve(t time.Time) Info {
	local := t.In(Zone)
	half := "00"
	if local.Minute() >= 30 {
		half = "30"
	}
	return Info{
		Hour:      local.Hour(),
		Minute:    local.Minute(),
		BucketKey: fmt.Sprintf("%s %02d:%s", local.Format("2006-01-02"), local.Hour(), half),
	}
}

// InOperatingHours reports whether a business-local hour falls inside the
// operating shift. Hours 03:00-08:59 are the overnight maintenance window
// and are excluded from all aggregation.
func InOperatingHours(hour int) bool {
	return hour < 3 || hour >= 9
}

// BusinessDay returns the business-day label (YYYY-MM-DD) a timestamp belongs
// to. The day boundary sits at 03:00 business-local: hours 00:00-02:59 are
// attributed to the previous calendar day, so a shift running 09:00 through
// 03:00 the next morning counts as a single day.
func BusinessDay(t time.Time) string {
	local := t.In(Zone)
	if local.Hour() < 3 {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format("2006-01-02")
}

// BusinessDayOfWeek returns the day of week (Sunday=0) of the business day a
// timestamp belongs to, applying the same 03:00 backward shift as BusinessDay.
func BusinessDayOfWeek(t time.Time) int {
	local := t.In(Zone)
	dow := int(local.Weekday())
	if local.Hour() < 3 {
		dow = (dow + 6) % 7
	}
	return dow
}

// ShiftInterval builds the upstream query interval covering one business
// shift: 06:00 UTC (09:00 Baghdad) on the given calendar date through 21
// hours later (03:00 Baghdad the next day). The result uses the
// "start/end" ISO-8601 interval form the analytics API expects.
func ShiftInterval(date time.Time) string {
	start := time.Date(date.Year(), date.Month(), date.Day(), 6, 0, 0, 0, time.UTC)
	end := start.Add(21 * time.Hour)
	return fmt.Sprintf("%s/%s", start.Format("2006-01-02T15:04:05Z"), end.Format("2006-01-02T15:04:05Z"))
}

// LookbackInterval builds the upstream query interval for the staffing
// forecast: the 15 days ending now, covering 14 full comparable days.
func LookbackInterval(now time.Time) string {
	start := now.Add(-15 * 24 * time.Hour)
	return fmt.Sprintf("%s/%s", start.UTC().Format("2006-01-02T15:04:05Z"), now.UTC().Format("2006-01-02T15:04:05Z"))
}
