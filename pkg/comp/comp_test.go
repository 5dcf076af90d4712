package comp

import (
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestParse(t *testing.T) {
	raw := gjson.Parse(`{
		"id": "SantiagoOpen2024",
		"name": "Santiago Open 2024",
		"city": "Santiago",
		"url": "https://example.org/competitions/SantiagoOpen2024",
		"start_date": "2024-06-15",
		"end_date": "2024-06-16",
		"registration_open": "2024-05-01T12:00:00Z",
		"registration_close": "2024-06-10T23:59:00Z",
		"competitor_limit": 120,
		"event_ids": ["333", "222", "444"]
	}`)

	c, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c.ID != "SantiagoOpen2024" {
		t.Errorf("unexpected id: %s", c.ID)
	}
	if got := c.StartDate.Format("2006-01-02"); got != "2024-06-15" {
		t.Errorf("unexpected start date: %s", got)
	}
	if c.RegistrationOpen != time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) {
		t.Errorf("unexpected registration open: %v", c.RegistrationOpen)
	}
	if !c.HasLimit() || c.CompetitorLimit != 120 {
		t.Errorf("unexpected limit: %d", c.CompetitorLimit)
	}
	if c.Days() != 2 {
		t.Errorf("expected 2 days, got %d", c.Days())
	}
	if len(c.EventIDs) != 3 {
		t.Errorf("unexpected event ids: %v", c.EventIDs)
	}
}

func TestParseRejectsBrokenRecords(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing id", `{"start_date":"2024-06-15","end_date":"2024-06-15"}`},
		{"missing start", `{"id":"X","end_date":"2024-06-15"}`},
		{"garbage end", `{"id":"X","start_date":"2024-06-15","end_date":"soon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(gjson.Parse(tt.json)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestParseToleratesBadRegistrationWindow(t *testing.T) {
	raw := gjson.Parse(`{
		"id": "X2024",
		"start_date": "2024-06-15",
		"end_date": "2024-06-15",
		"registration_open": "whenever"
	}`)
	c, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !c.RegistrationOpen.IsZero() {
		t.Errorf("expected zero registration open, got %v", c.RegistrationOpen)
	}
}
