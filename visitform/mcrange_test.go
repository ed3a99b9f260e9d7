package visitform

import (
	"testing"
	"time"
)

func TestMCRangeDerivedDays(t *testing.T) {
	// 5 days from 2024-01-10 runs through 2024-01-14
	r := MCRange{Start: date(2024, time.January, 10)}
	r.SetDays(5)

	if !r.End.Equal(date(2024, time.January, 14)) {
		t.Errorf("end = %v, want 2024-01-14", r.End)
	}

	r.SetDays(0)
	if !r.End.IsZero() {
		t.Errorf("end not cleared for zero days: %v", r.End)
	}
}

func TestMCRangeDerivedStart(t *testing.T) {
	r := MCRange{Days: 3, Start: date(2024, time.January, 10), End: date(2024, time.January, 12)}
	r.SetStart(date(2024, time.February, 1))

	if !r.End.Equal(date(2024, time.February, 3)) {
		t.Errorf("end = %v, want 2024-02-03", r.End)
	}
}

func TestMCRangeDerivedEnd(t *testing.T) {
	r := MCRange{Start: date(2024, time.February, 1)}
	r.SetEnd(date(2024, time.February, 10))

	if r.Days != 10 {
		t.Errorf("days = %d, want 10", r.Days)
	}
}

func TestMCRangeDerivedRoundTrip(t *testing.T) {
	start := date(2024, time.March, 5)
	for days := 1; days <= 31; days++ {
		r := MCRange{Start: start}
		r.SetDays(days)
		if got := DaySpanInclusive(start, r.End); got != days {
			t.Fatalf("span(start, end) = %d after SetDays(%d)", got, days)
		}
	}
}

func TestMCRangeManualModeDisablesDerivation(t *testing.T) {
	r := MCRange{Days: 5, Start: date(2024, time.January, 10), End: date(2024, time.January, 14), Manual: true}

	r.SetDays(3)
	if !r.End.Equal(date(2024, time.January, 14)) {
		t.Errorf("end recomputed in manual mode: %v", r.End)
	}

	r.SetEnd(date(2024, time.January, 20))
	if r.Days != 3 {
		t.Errorf("days recomputed in manual mode: %d", r.Days)
	}

	r.SetStart(date(2024, time.January, 1))
	if !r.End.Equal(date(2024, time.January, 20)) {
		t.Errorf("end recomputed on start change in manual mode: %v", r.End)
	}
}

func TestMCRangeNegativeDaysClampToZero(t *testing.T) {
	r := MCRange{Start: date(2024, time.January, 10)}
	r.SetDays(-4)
	if r.Days != 0 {
		t.Errorf("days = %d, want 0", r.Days)
	}
}

func TestLoadMCRangeInfersManualMode(t *testing.T) {
	// Stored 3 days over a 10-day range: saved under manual override
	r := LoadMCRange(3, date(2024, time.February, 1), date(2024, time.February, 10))
	if !r.Manual {
		t.Error("mismatched day count should default to manual mode")
	}

	// Consistent record stays in derived mode
	r = LoadMCRange(10, date(2024, time.February, 1), date(2024, time.February, 10))
	if r.Manual {
		t.Error("consistent day count should stay in derived mode")
	}

	// Incomplete certificates never infer manual mode
	r = LoadMCRange(0, time.Time{}, time.Time{})
	if r.Manual {
		t.Error("empty certificate should stay in derived mode")
	}
}
