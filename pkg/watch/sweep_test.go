package watch

import (
	"testing"
	"time"

	"github.com/tomasfh/compwatch/pkg/comp"
	"github.com/tomasfh/compwatch/pkg/statestore"
)

func datedComp(id string, start, end time.Time) comp.Competition {
	return comp.Competition{ID: id, Name: id, StartDate: start, EndDate: end}
}

func TestPruneEnded(t *testing.T) {
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	// Sweep time is mid-afternoon; date granularity means "ends today" survives.
	now := today.Add(15 * time.Hour)

	snapshot := []comp.Competition{
		datedComp("ended-yesterday", today.AddDate(0, 0, -2), today.AddDate(0, 0, -1)),
		datedComp("ends-today", today, today),
		datedComp("future", today.AddDate(0, 0, 7), today.AddDate(0, 0, 8)),
	}

	kept := PruneEnded(snapshot, now)
	if len(kept) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(kept))
	}
	ids := comp.IDs(kept)
	if ids["ended-yesterday"] {
		t.Error("ended competition survived the sweep")
	}
	if !ids["ends-today"] || !ids["future"] {
		t.Errorf("wrong survivors: %v", ids)
	}
}

func TestLedgerPruningKeepsOnlyFutureStarts(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snapshot := []comp.Competition{
		datedComp("future", now.AddDate(0, 0, 7), now.AddDate(0, 0, 8)),
		datedComp("started", now.AddDate(0, 0, -1), now.AddDate(0, 0, 1)),
	}
	future := FutureIDs(snapshot, now)

	reg := map[string]statestore.RegistrationFlags{
		"future":  {NotifiedUpcoming: true},
		"started": {NotifiedOpen: true},
		"gone":    {NotifiedUpcoming: true},
	}
	keptReg, dropped := PruneRegistrationLedger(reg, future)
	if !dropped {
		t.Error("expected drops")
	}
	if len(keptReg) != 1 || !keptReg["future"].NotifiedUpcoming {
		t.Errorf("unexpected registration survivors: %+v", keptReg)
	}

	spots := map[string]statestore.SpotsEntry{
		"future": {LastCount: 10, Limit: 50},
		"gone":   {Notified: true},
	}
	keptSpots, dropped := PruneSpotsLedger(spots, future)
	if !dropped {
		t.Error("expected drops")
	}
	if len(keptSpots) != 1 || keptSpots["future"].LastCount != 10 {
		t.Errorf("unexpected spots survivors: %+v", keptSpots)
	}

	// No drops: the ledgers report clean so nothing is rewritten.
	if _, dropped := PruneRegistrationLedger(keptReg, future); dropped {
		t.Error("clean prune should not report drops")
	}
	if _, dropped := PruneSpotsLedger(keptSpots, future); dropped {
		t.Error("clean prune should not report drops")
	}
}
