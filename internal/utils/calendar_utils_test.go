package utils

import (
	"strings"
	"testing"
	"time"
)

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func equalTimeRangeSlices(a, b []TimeRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			return false
		}
	}
	return true
}

//
// SplitToTimeSlots
//

func TestSplitToTimeSlots_Basic(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2025, 1, 6, 9, 0),
		End:   mustTime(t, 2025, 1, 6, 11, 0),
	}

	slots, err := SplitToTimeSlots(tr, time.Hour, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []TimeRange{
		{Start: mustTime(t, 2025, 1, 6, 9, 0), End: mustTime(t, 2025, 1, 6, 10, 0)},
		{Start: mustTime(t, 2025, 1, 6, 10, 0), End: mustTime(t, 2025, 1, 6, 11, 0)},
	}
	if !equalTimeRangeSlices(slots, expected) {
		t.Fatalf("expected %+v, got %+v", expected, slots)
	}
}

func TestSplitToTimeSlots_WithBuffer(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2025, 1, 6, 9, 0),
		End:   mustTime(t, 2025, 1, 6, 11, 0),
	}

	// 30 минут приёма + 15 минут буфера: 09:00, 09:45, 10:30
	slots, err := SplitToTimeSlots(tr, 30*time.Minute, 15*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []TimeRange{
		{Start: mustTime(t, 2025, 1, 6, 9, 0), End: mustTime(t, 2025, 1, 6, 9, 30)},
		{Start: mustTime(t, 2025, 1, 6, 9, 45), End: mustTime(t, 2025, 1, 6, 10, 15)},
		{Start: mustTime(t, 2025, 1, 6, 10, 30), End: mustTime(t, 2025, 1, 6, 11, 0)},
	}
	if !equalTimeRangeSlices(slots, expected) {
		t.Fatalf("expected %+v, got %+v", expected, slots)
	}
}

func TestSplitToTimeSlots_TailDropped(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 0),
		End:   mustTime(t, 2025, 1, 1, 11, 10),
	}

	slots, err := SplitToTimeSlots(tr, 30*time.Minute, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
}

func TestSplitToTimeSlots_InvalidDuration(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 0),
		End:   mustTime(t, 2025, 1, 1, 11, 0),
	}

	if _, err := SplitToTimeSlots(tr, 0, 0); err != ErrSlotDuration {
		t.Fatalf("expected ErrSlotDuration, got %v", err)
	}
}

func TestSplitToTimeSlots_EmptyRange(t *testing.T) {
	start := mustTime(t, 2025, 1, 1, 10, 0)
	slots, err := SplitToTimeSlots(TimeRange{Start: start, End: start}, time.Hour, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

//
// HasOverlap
//

func TestHasOverlap_NoOverlap(t *testing.T) {
	newRange := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 0),
		End:   mustTime(t, 2025, 1, 1, 11, 0),
	}
	existing := []TimeRange{
		{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 12, 0)},
	}

	has, conflicts := HasOverlap(newRange, existing, false)
	if has {
		t.Fatalf("expected no overlap, got conflicts: %+v", conflicts)
	}
}

func TestHasOverlap_TouchInclusive(t *testing.T) {
	newRange := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 0),
		End:   mustTime(t, 2025, 1, 1, 11, 0),
	}
	existing := []TimeRange{
		{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 12, 0)},
	}

	if has, _ := HasOverlap(newRange, existing, true); !has {
		t.Fatalf("expected overlap in inclusive mode")
	}
}

func TestHasOverlap_OverlapFound(t *testing.T) {
	newRange := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 30),
		End:   mustTime(t, 2025, 1, 1, 11, 30),
	}
	existing := []TimeRange{
		{Start: mustTime(t, 2025, 1, 1, 9, 0), End: mustTime(t, 2025, 1, 1, 10, 0)},
		{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 12, 0)},
	}

	has, conflicts := HasOverlap(newRange, existing, false)
	if !has {
		t.Fatalf("expected overlap, got none")
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
}

//
// ParseClock / FormatClock
//

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "09:00", want: 540},
		{in: "00:00", want: 0},
		{in: "23:59", want: 1439},
		{in: "24:00", want: MinutesPerDay},
		{in: "24:01", wantErr: true},
		{in: "9:00", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseClock(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseClock(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseClock(%q): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(545); got != "09:05" {
		t.Fatalf("expected %q, got %q", "09:05", got)
	}
}

//
// Даты
//

func TestDayRange_FixedOffset(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	// 2025-01-06 22:30 UTC это уже 7 января в UTC+3
	instant := mustTime(t, 2025, 1, 6, 22, 30).In(loc)

	day := DayRange(instant, loc)
	wantStart := mustTime(t, 2025, 1, 6, 21, 0)
	if !day.Start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, day.Start.UTC())
	}
	if day.Duration() != 24*time.Hour {
		t.Fatalf("expected 24h day, got %v", day.Duration())
	}
}

func TestAtClock(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)

	got := AtClock(day, 9*60+30)
	want := mustTime(t, 2025, 3, 10, 14, 30)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got.UTC())
	}
}

//
// FormatSlotForUser
//

func TestFormatSlotForUser_Basic(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 0),
		End:   mustTime(t, 2025, 1, 1, 11, 0),
	}

	str := FormatSlotForUser(tr, time.UTC)
	// Ожидаем "Среда, 01.01.2025, 10:00–11:00"
	for _, part := range []string{"Среда", "01.01.2025", "10:00", "11:00"} {
		if !strings.Contains(str, part) {
			t.Fatalf("unexpected format: %q", str)
		}
	}
}

func TestFormatSlotForUser_Location(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 0),
		End:   mustTime(t, 2025, 1, 1, 11, 0),
	}

	str := FormatSlotForUser(tr, time.FixedZone("UTC+3", 3*3600))
	if !strings.Contains(str, "13:00–14:00") {
		t.Fatalf("expected local time in %q", str)
	}
}
