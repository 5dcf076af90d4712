package watch

import (
	"testing"
	"time"

	"github.com/tomasfh/compwatch/pkg/comp"
	"github.com/tomasfh/compwatch/pkg/statestore"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func upcoming(id string, regOpen time.Time) comp.Competition {
	return comp.Competition{
		ID:               id,
		Name:             id,
		StartDate:        testNow.AddDate(0, 1, 0),
		EndDate:          testNow.AddDate(0, 1, 1),
		RegistrationOpen: regOpen,
	}
}

func TestNewlyAddedProperties(t *testing.T) {
	a := []comp.Competition{upcoming("A1", time.Time{}), upcoming("A2", time.Time{})}

	if got := NewlyAdded(a, a); len(got) != 0 {
		t.Errorf("NewlyAdded(A, A) should be empty, got %d", len(got))
	}
	got := NewlyAdded(a, nil)
	if len(got) != 2 || got[0].ID != "A1" || got[1].ID != "A2" {
		t.Errorf("NewlyAdded(A, empty) should be all of A in order, got %+v", got)
	}
	if got := NewlyAdded(nil, a); len(got) != 0 {
		t.Errorf("NewlyAdded(empty, A) should be empty, got %d", len(got))
	}
}

func TestNewlyAddedIgnoresFieldChanges(t *testing.T) {
	old := upcoming("A1", time.Time{})
	renamed := old
	renamed.Name = "totally different"
	renamed.City = "elsewhere"

	if got := NewlyAdded([]comp.Competition{renamed}, []comp.Competition{old}); len(got) != 0 {
		t.Errorf("changed fields on a known id must not count as new, got %+v", got)
	}
}

func TestRegistrationOpeningSoonBoundaries(t *testing.T) {
	window := 60 * time.Minute
	tests := []struct {
		name    string
		regOpen time.Time
		want    bool
	}{
		{"exactly window away is included", testNow.Add(window), true},
		{"one minute past the window is excluded", testNow.Add(window + time.Minute), false},
		{"inside the window is included", testNow.Add(10 * time.Minute), true},
		{"exactly now is excluded, already open", testNow, false},
		{"already open is excluded", testNow.Add(-time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comps := []comp.Competition{upcoming("A1", tt.regOpen)}
			got := RegistrationOpeningSoon(comps, nil, testNow, window)
			if (len(got) == 1) != tt.want {
				t.Errorf("want included=%v, got %d results", tt.want, len(got))
			}
		})
	}
}

func TestRegistrationJustOpenedBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		regOpen time.Time
		want    bool
	}{
		{"the opening instant counts", testNow, true},
		{"half an hour ago counts", testNow.Add(-30 * time.Minute), true},
		{"exactly an hour ago counts", testNow.Add(-60 * time.Minute), true},
		{"over an hour ago does not", testNow.Add(-61 * time.Minute), false},
		{"still in the future does not", testNow.Add(time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comps := []comp.Competition{upcoming("A1", tt.regOpen)}
			got := RegistrationJustOpened(comps, nil, testNow)
			if (len(got) == 1) != tt.want {
				t.Errorf("want included=%v, got %d results", tt.want, len(got))
			}
		})
	}
}

func TestWindowChecksSkipFlaggedAndMalformed(t *testing.T) {
	soonOpen := testNow.Add(30 * time.Minute)
	justOpened := testNow.Add(-30 * time.Minute)

	started := upcoming("started", soonOpen)
	started.StartDate = testNow.AddDate(0, 0, -1)

	comps := []comp.Competition{
		upcoming("flagged", soonOpen),
		upcoming("no-window", time.Time{}), // missing/unparseable registration instant
		started,
		upcoming("due", soonOpen),
	}
	ledger := map[string]statestore.RegistrationFlags{
		"flagged": {NotifiedUpcoming: true, NotifiedOpen: true},
	}

	got := RegistrationOpeningSoon(comps, ledger, testNow, time.Hour)
	if len(got) != 1 || got[0].ID != "due" {
		t.Errorf("expected only 'due', got %+v", got)
	}

	for i := range comps {
		comps[i].RegistrationOpen = justOpened
	}
	comps[1].RegistrationOpen = time.Time{}
	got = RegistrationJustOpened(comps, ledger, testNow)
	if len(got) != 1 || got[0].ID != "due" {
		t.Errorf("expected only 'due', got %+v", got)
	}
}
