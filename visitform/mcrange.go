package visitform

import "time"

// MCRange keeps a medical certificate's day count and date range in sync.
// In derived mode (Manual == false) changing one field recomputes the others
// by calendar arithmetic; in manual mode every field is independently
// settable, for certificates that span specially-counted days.
type MCRange struct {
	Days   int
	Start  time.Time // zero when unset
	End    time.Time // zero when unset
	Manual bool
}

// LoadMCRange restores a resolver from stored values and infers whether the
// record was saved under manual override: a stored day count that does not
// match the recomputed span implies it was. This is a heuristic default, not
// a persisted flag.
func LoadMCRange(days int, start, end time.Time) MCRange {
	r := MCRange{Days: days, Start: start, End: end}
	if days > 0 && !start.IsZero() && !end.IsZero() {
		r.Manual = days != DaySpanInclusive(start, end)
	}
	return r
}

// SetDays updates the day count. Negative input clamps to zero. In derived
// mode a positive count recomputes End = Start + (Days-1); a zero count
// clears End.
func (r *MCRange) SetDays(days int) {
	if days < 0 {
		days = 0
	}
	r.Days = days
	if r.Manual {
		return
	}
	if days > 0 && !r.Start.IsZero() {
		r.End = r.Start.AddDate(0, 0, days-1)
	} else {
		r.End = time.Time{}
	}
}

// SetStart updates the start date; in derived mode with a positive day count
// the end date follows.
func (r *MCRange) SetStart(start time.Time) {
	r.Start = start
	if r.Manual {
		return
	}
	if r.Days > 0 && !start.IsZero() {
		r.End = start.AddDate(0, 0, r.Days-1)
	}
}

// SetEnd updates the end date; in derived mode the day count is recomputed
// from the inclusive span.
func (r *MCRange) SetEnd(end time.Time) {
	r.End = end
	if r.Manual {
		return
	}
	if !end.IsZero() && !r.Start.IsZero() {
		r.Days = DaySpanInclusive(r.Start, end)
	}
}

// SetManual toggles override mode. Switching back to derived mode leaves the
// current values as-is until the user touches a field again.
func (r *MCRange) SetManual(on bool) {
	r.Manual = on
}
