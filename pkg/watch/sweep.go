package watch

import (
	"time"

	"github.com/tomasfh/compwatch/pkg/comp"
	"github.com/tomasfh/compwatch/pkg/statestore"
)

// PruneEnded drops competitions whose end date has passed. Granularity is
// date-only: a competition ending today is still active.
func PruneEnded(snapshot []comp.Competition, now time.Time) []comp.Competition {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	kept := make([]comp.Competition, 0, len(snapshot))
	for _, c := range snapshot {
		if !c.EndDate.Before(today) {
			kept = append(kept, c)
		}
	}
	return kept
}

// FutureIDs returns the ids of competitions whose start is strictly in the
// future. Ledger retention is keyed on these, always computed from the
// freshly fetched snapshot so stale persisted data never drives pruning.
func FutureIDs(snapshot []comp.Competition, now time.Time) map[string]bool {
	ids := make(map[string]bool, len(snapshot))
	for _, c := range snapshot {
		if c.StartDate.After(now) {
			ids[c.ID] = true
		}
	}
	return ids
}

// PruneRegistrationLedger keeps only entries for still-upcoming
// competitions. Returns the surviving ledger and whether anything was
// dropped.
func PruneRegistrationLedger(ledger map[string]statestore.RegistrationFlags, future map[string]bool) (map[string]statestore.RegistrationFlags, bool) {
	kept := make(map[string]statestore.RegistrationFlags, len(ledger))
	dropped := false
	for id, flags := range ledger {
		if future[id] {
			kept[id] = flags
		} else {
			dropped = true
		}
	}
	return kept, dropped
}

// PruneSpotsLedger is the capacity-ledger counterpart of
// PruneRegistrationLedger.
func PruneSpotsLedger(ledger map[string]statestore.SpotsEntry, future map[string]bool) (map[string]statestore.SpotsEntry, bool) {
	kept := make(map[string]statestore.SpotsEntry, len(ledger))
	dropped := false
	for id, entry := range ledger {
		if future[id] {
			kept[id] = entry
		} else {
			dropped = true
		}
	}
	return kept, dropped
}
