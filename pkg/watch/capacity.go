package watch

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomasfh/compwatch/pkg/comp"
	"github.com/tomasfh/compwatch/pkg/statestore"
)

// FillStatus is the occupancy of a capacity-limited competition.
type FillStatus struct {
	Ratio         float64
	OverThreshold bool
}

// Fill computes the fill ratio against the declared limit. The threshold
// comparison is inclusive. Callers must not pass limit <= 0.
func Fill(liveCount, limit int, threshold float64) FillStatus {
	ratio := float64(liveCount) / float64(limit)
	return FillStatus{
		Ratio:         ratio,
		OverThreshold: ratio >= threshold,
	}
}

// CapacityAlert is one "nearly full" event ready for dispatch.
type CapacityAlert struct {
	Comp      comp.Competition
	LiveCount int
}

// DetectLimitedSpots checks every capacity-limited, future, not-yet-notified
// competition against the live registration count. The ledger's
// LastCount/Limit are refreshed on every successful lookup whether or not
// the threshold is crossed; a failed lookup skips that competition for this
// run. The Notified flag is never set here, only by the caller after a
// successful dispatch.
//
// Returns the alerts due and whether the ledger was mutated.
func DetectLimitedSpots(ctx context.Context, comps []comp.Competition, ledger map[string]statestore.SpotsEntry, lookup CountLookup, limiter *rate.Limiter, threshold float64, now time.Time, log Logger) ([]CapacityAlert, bool) {
	var alerts []CapacityAlert
	dirty := false
	for _, c := range comps {
		if !c.HasLimit() || !c.StartDate.After(now) {
			continue
		}
		if ledger[c.ID].Notified {
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				log.Warnf("Capacity checks aborted: %v", err)
				break
			}
		}

		count, err := lookup.FetchLiveCount(ctx, c)
		if err != nil {
			log.Warnf("Could not fetch registration count for %s: %v", c.ID, err)
			continue
		}

		entry := ledger[c.ID]
		if entry.LastCount != count || entry.Limit != c.CompetitorLimit {
			entry.LastCount = count
			entry.Limit = c.CompetitorLimit
			ledger[c.ID] = entry
			dirty = true
		}

		if Fill(count, c.CompetitorLimit, threshold).OverThreshold {
			alerts = append(alerts, CapacityAlert{Comp: c, LiveCount: count})
		}
	}
	return alerts, dirty
}
