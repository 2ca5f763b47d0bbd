package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateOfUsesLocalCalendarFields(t *testing.T) {
	// 23:30 on Mar 15 in a UTC-5 zone is already Mar 16 in UTC; the
	// date must keep the local day.
	loc := time.FixedZone("UTC-5", -5*60*60)
	late := time.Date(2024, time.March, 15, 23, 30, 0, 0, loc)
	if late.UTC().Day() != 16 {
		t.Fatalf("test setup: expected UTC day to roll over, got %d", late.UTC().Day())
	}

	d := DateOf(late)
	if d.String() != "2024-03-15" {
		t.Fatalf("expected 2024-03-15, got %s", d)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != (Date{Year: 2024, Month: time.March, Day: 15}) {
		t.Fatalf("unexpected date: %+v", d)
	}

	for _, bad := range []string{"", "2024-3-15", "15/03/2024", "2024-13-01"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		start string
		days  int
		want  string
	}{
		{"2024-03-15", 1, "2024-03-16"},
		{"2024-03-15", 7, "2024-03-22"},
		{"2024-03-31", 1, "2024-04-01"},
		{"2024-12-31", 1, "2025-01-01"},
		{"2024-02-28", 1, "2024-02-29"},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.start)
		if err != nil {
			t.Fatalf("parse %s: %v", tt.start, err)
		}
		if got := d.AddDays(tt.days).String(); got != tt.want {
			t.Errorf("%s + %dd = %s, want %s", tt.start, tt.days, got, tt.want)
		}
	}
}

func TestAddMonthsClampsToLastValidDay(t *testing.T) {
	tests := []struct {
		start string
		want  string
	}{
		{"2024-03-15", "2024-04-15"},
		{"2024-01-31", "2024-02-29"},
		{"2023-01-31", "2023-02-28"},
		{"2024-03-31", "2024-04-30"},
		{"2024-12-15", "2025-01-15"},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.start)
		if err != nil {
			t.Fatalf("parse %s: %v", tt.start, err)
		}
		if got := d.AddMonths(1).String(); got != tt.want {
			t.Errorf("%s + 1mo = %s, want %s", tt.start, got, tt.want)
		}
	}
}

func TestDateBefore(t *testing.T) {
	a, _ := ParseDate("2024-03-15")
	b, _ := ParseDate("2024-03-16")
	c, _ := ParseDate("2024-04-01")

	if !a.Before(b) || !b.Before(c) || b.Before(a) || a.Before(a) {
		t.Fatalf("unexpected ordering: a=%s b=%s c=%s", a, b, c)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d, _ := ParseDate("2024-03-15")

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-03-15"` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != d {
		t.Fatalf("round trip changed the date: %s -> %s", d, back)
	}

	if err := json.Unmarshal([]byte(`"not-a-date"`), &back); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
