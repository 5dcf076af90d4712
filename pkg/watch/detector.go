package watch

import (
	"time"

	"github.com/tomasfh/compwatch/pkg/comp"
	"github.com/tomasfh/compwatch/pkg/statestore"
)

// justOpenedWindow is how long after the registration-open instant a
// competition still counts as "just opened".
const justOpenedWindow = 60 * time.Minute

// NewlyAdded returns the competitions present in current but not in
// previous, in current's order. Novelty is decided by id membership only; a
// known id with changed fields is not new.
func NewlyAdded(current, previous []comp.Competition) []comp.Competition {
	prevIDs := comp.IDs(previous)
	var added []comp.Competition
	for _, c := range current {
		if !prevIDs[c.ID] {
			added = append(added, c)
		}
	}
	return added
}

// RegistrationOpeningSoon returns the competitions whose registration opens
// within (0, window] from now, that start in the future and have not been
// announced as upcoming yet. The bounds matter: exactly now is already
// "open" and excluded, exactly window away is included.
func RegistrationOpeningSoon(comps []comp.Competition, ledger map[string]statestore.RegistrationFlags, now time.Time, window time.Duration) []comp.Competition {
	var due []comp.Competition
	for _, c := range comps {
		if ledger[c.ID].NotifiedUpcoming {
			continue
		}
		if c.RegistrationOpen.IsZero() || !c.StartDate.After(now) {
			continue
		}
		until := c.RegistrationOpen.Sub(now)
		if until > 0 && until <= window {
			due = append(due, c)
		}
	}
	return due
}

// RegistrationJustOpened returns the competitions whose registration opened
// within the last hour (the opening instant itself counts), that start in
// the future and have not been announced as open yet.
func RegistrationJustOpened(comps []comp.Competition, ledger map[string]statestore.RegistrationFlags, now time.Time) []comp.Competition {
	var due []comp.Competition
	for _, c := range comps {
		if ledger[c.ID].NotifiedOpen {
			continue
		}
		if c.RegistrationOpen.IsZero() || !c.StartDate.After(now) {
			continue
		}
		since := now.Sub(c.RegistrationOpen)
		if since >= 0 && since <= justOpenedWindow {
			due = append(due, c)
		}
	}
	return due
}
