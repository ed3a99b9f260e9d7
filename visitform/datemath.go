package visitform

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the calendar-date wire format used throughout the API.
const DateLayout = "2006-01-02"

// AgeAt returns the age at the given date as a "<years>Y <months>M" snapshot
// string. The caller must pass at >= dob; the result is undefined otherwise.
func AgeAt(dob, at time.Time) string {
	years := at.Year() - dob.Year()
	months := int(at.Month()) - int(dob.Month())

	// Partial month not yet complete
	if at.Day() < dob.Day() {
		months--
	}
	if months < 0 {
		months += 12
		years--
	}

	return fmt.Sprintf("%dY %dM", years, months)
}

// DaySpanInclusive counts the days covered by [start, end], including both
// endpoints: a certificate from day N to day N is 1 day. Reversed inputs are
// normalized via the absolute difference; callers that need end >= start
// enforce it themselves (see Form.Validate).
func DaySpanInclusive(start, end time.Time) int {
	diff := end.Sub(start)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours()/24)) + 1
}
