package cron

import (
	"testing"
	"time"
)

func TestParser_Parse_ValidExpressions(t *testing.T) {
	parser := NewParser()

	valid := []string{
		"0 9 * * 1",    // 09:00 every Monday
		"*/15 * * * *", // every 15 minutes
		"@daily",
		"@every 1h",
	}

	for _, expr := range valid {
		if _, err := parser.Parse(expr, "UTC"); err != nil {
			t.Errorf("Parse(%q) failed: %v", expr, err)
		}
	}
}

func TestParser_Parse_InvalidExpression(t *testing.T) {
	parser := NewParser()

	if _, err := parser.Parse("not a cron", "UTC"); err == nil {
		t.Error("expected error for invalid expression")
	}
	if _, err := parser.Parse("0 9 * * 1", "Not/AZone"); err == nil {
		t.Error("expected error for invalid timezone")
	}
}

func TestParser_Next_ReturnsUTC(t *testing.T) {
	parser := NewParser()

	after := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) // Monday
	next, err := parser.Next("0 9 * * 1", "UTC", after)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	want := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %s, want %s", next, want)
	}
	if next.Location() != time.UTC {
		t.Errorf("next location = %s, want UTC", next.Location())
	}
}

func TestParser_Next_HonorsTimezone(t *testing.T) {
	parser := NewParser()

	// 09:00 in New York is 13:00 or 14:00 UTC depending on DST; on June 2
	// (EDT) it is 13:00 UTC.
	after := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	next, err := parser.Next("0 9 * * 1", "America/New_York", after)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	want := time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %s, want %s", next, want)
	}
}
