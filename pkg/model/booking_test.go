package model

import (
	"testing"
	"time"
)

func TestBooking_Date(t *testing.T) {
	jerusalem, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name    string
		raw     string
		loc     *time.Location
		wantDay string
		wantOK  bool
	}{
		{"bare date", "2024-05-15", jerusalem, "2024-05-15", true},
		{"bare date with spaces", "  2024-05-15 ", newYork, "2024-05-15", true},
		{"utc late evening is next day east", "2024-05-15T22:30:00Z", jerusalem, "2024-05-16", true},
		{"utc after midnight is previous day west", "2024-05-16T02:00:00Z", newYork, "2024-05-15", true},
		{"offset timestamp", "2024-05-15T23:00:00+03:00", jerusalem, "2024-05-15", true},
		{"fractional seconds", "2024-05-15T10:00:00.000Z", jerusalem, "2024-05-15", true},
		{"date with trailing time text", "2024-05-15 10:00", jerusalem, "2024-05-15", true},
		{"empty", "", jerusalem, "", false},
		{"garbage", "tomorrow", jerusalem, "", false},
		{"impossible date", "2024-02-30", jerusalem, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Booking{BookingDate: tt.raw}
			got, ok := b.Date(tt.loc)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if day := got.Format(DateLayout); day != tt.wantDay {
				t.Errorf("expected %s, got %s", tt.wantDay, day)
			}
			if got.Location() != tt.loc {
				t.Errorf("expected location %s, got %s", tt.loc, got.Location())
			}
			if got.Hour() != 0 || got.Minute() != 0 {
				t.Errorf("expected midnight, got %s", got.Format(time.RFC3339))
			}
		})
	}
}
