package visitform

import (
	"fmt"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeAt(t *testing.T) {
	dob := date(2020, time.March, 15)

	if got := AgeAt(dob, date(2024, time.March, 15)); got != "4Y 0M" {
		t.Errorf("AgeAt on birthday = %q, want %q", got, "4Y 0M")
	}

	// Day before the birthday: the partial month has not completed
	if got := AgeAt(dob, date(2024, time.March, 14)); got != "3Y 11M" {
		t.Errorf("AgeAt day before birthday = %q, want %q", got, "3Y 11M")
	}

	// Negative month difference normalizes exactly once
	if got := AgeAt(dob, date(2024, time.January, 10)); got != "3Y 9M" {
		t.Errorf("AgeAt = %q, want %q", got, "3Y 9M")
	}

	if got := AgeAt(dob, date(2020, time.April, 20)); got != "0Y 1M" {
		t.Errorf("AgeAt one month old = %q, want %q", got, "0Y 1M")
	}
}

func TestAgeAtStaysInRange(t *testing.T) {
	dob := date(2019, time.November, 28)
	at := dob
	for i := 0; i < 2000; i++ {
		at = at.AddDate(0, 0, 1)
		age := AgeAt(dob, at)
		var years, months int
		if _, err := fmt.Sscanf(age, "%dY %dM", &years, &months); err != nil {
			t.Fatalf("unparseable age %q: %v", age, err)
		}
		if years < 0 || months < 0 || months > 11 {
			t.Fatalf("AgeAt(%v) = %q out of range", at, age)
		}
	}
}

func TestDaySpanInclusive(t *testing.T) {
	d := date(2024, time.June, 3)
	if got := DaySpanInclusive(d, d); got != 1 {
		t.Errorf("self-span = %d, want 1", got)
	}

	if got := DaySpanInclusive(date(2024, time.January, 10), date(2024, time.January, 14)); got != 5 {
		t.Errorf("span = %d, want 5", got)
	}

	// Reversed input normalizes rather than failing
	if got := DaySpanInclusive(date(2024, time.January, 14), date(2024, time.January, 10)); got != 5 {
		t.Errorf("reversed span = %d, want 5", got)
	}

	// Across a month boundary
	if got := DaySpanInclusive(date(2024, time.February, 1), date(2024, time.February, 10)); got != 10 {
		t.Errorf("span = %d, want 10", got)
	}
}
