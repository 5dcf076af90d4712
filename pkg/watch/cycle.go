// Package watch holds the change-detection core: deciding, across
// independent runs with no shared memory, which competitions are new, which
// registration-window transitions have newly entered their notification
// window, and which capacity alerts are due, with each transition reported
// at most once per persisted ledger state.
package watch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomasfh/compwatch/pkg/comp"
	"github.com/tomasfh/compwatch/pkg/statestore"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Source fetches the current full competition snapshot from the upstream
// listing. An error means "no data this cycle"; the run continues on
// persisted state and mutates nothing.
type Source interface {
	FetchSnapshot(ctx context.Context) ([]comp.Competition, error)
}

// CountLookup fetches the live registration count for one competition.
type CountLookup interface {
	FetchLiveCount(ctx context.Context, c comp.Competition) (int, error)
}

// Dispatcher delivers detected events. Each call reports whether delivery
// succeeded to at least one configured channel; ledger flags are committed
// only on success, so a failed delivery is retried next run.
type Dispatcher interface {
	NotifyNew(ctx context.Context, comps []comp.Competition) bool
	NotifyRegistrationUpcoming(ctx context.Context, c comp.Competition) bool
	NotifyRegistrationOpen(ctx context.Context, c comp.Competition) bool
	NotifyCapacityAlert(ctx context.Context, c comp.Competition, liveCount int) bool
}

// AuditLog records successfully dispatched notifications. Optional.
type AuditLog interface {
	Record(ctx context.Context, occurredAt time.Time, compID, compName, kind, detail string) error
}

// Event kinds written to the audit log.
const (
	KindNew                  = "new"
	KindRegistrationUpcoming = "registration_upcoming"
	KindRegistrationOpen     = "registration_open"
	KindCapacity             = "capacity"
)

// Config holds everything a Cycle needs beyond its collaborators.
type Config struct {
	Window            time.Duration // registration-upcoming window; defaults to 1h if <= 0
	CapacityThreshold float64       // fill ratio that triggers an alert; defaults to 0.80 if <= 0
	QuietFirstRun     bool          // populate an empty snapshot store without announcing everything
	LookupRate        rate.Limit    // pacing for per-competition count lookups; 0 = unpaced

	Now func() time.Time // defaults to time.Now; injected by tests
	Log Logger           // optional; nil = no logging
}

// Cycle runs one fetch-compare-notify pass against the flat-file state.
type Cycle struct {
	cfg        Config
	store      *statestore.Store
	source     Source
	counts     CountLookup
	dispatcher Dispatcher
	audit      AuditLog
	limiter    *rate.Limiter
	log        Logger
}

// Result summarizes one completed cycle.
type Result struct {
	FetchFailed    bool
	Total          int // competitions in the fetched snapshot
	New            int
	Upcoming       int
	Opened         int
	CapacityAlerts int
	Errors         []error // non-fatal errors
}

func NewCycle(cfg Config, store *statestore.Store, source Source, counts CountLookup, dispatcher Dispatcher, audit AuditLog) *Cycle {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.CapacityThreshold <= 0 {
		cfg.CapacityThreshold = 0.80
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	var limiter *rate.Limiter
	if cfg.LookupRate > 0 {
		limiter = rate.NewLimiter(cfg.LookupRate, 1)
	}
	return &Cycle{
		cfg:        cfg,
		store:      store,
		source:     source,
		counts:     counts,
		dispatcher: dispatcher,
		audit:      audit,
		limiter:    limiter,
		log:        log,
	}
}

// Run performs one full cycle: fetch, sweep, detect, dispatch, persist. The
// returned error covers store-write failures only; fetch, lookup, and
// dispatch failures are non-fatal, logged, and accumulated in the Result.
func (cy *Cycle) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	now := cy.cfg.Now()

	previous := cy.store.LoadSnapshot()
	regLedger := cy.store.LoadRegistrationLedger()
	spotsLedger := cy.store.LoadSpotsLedger()

	current, err := cy.source.FetchSnapshot(ctx)
	if err != nil {
		// No data this cycle. Touch nothing: persisted state stays the
		// comparison base for the next run.
		cy.log.Warnf("Snapshot fetch failed, skipping this cycle: %v", err)
		result.FetchFailed = true
		result.Errors = append(result.Errors, err)
		return result, nil
	}
	result.Total = len(current)

	// Sweep. The snapshot sheds ended competitions; ledger retention is
	// computed from the snapshot just fetched, never from persisted state
	// alone. The comparison base for novelty stays the snapshot as loaded,
	// so an ended competition still listed upstream is not re-announced.
	swept := PruneEnded(previous, now)
	if len(swept) != len(previous) {
		if err := cy.store.SaveSnapshot(swept); err != nil {
			return result, fmt.Errorf("persist snapshot after sweep: %w", err)
		}
	}
	future := FutureIDs(current, now)
	var regDropped, spotsDropped bool
	regLedger, regDropped = PruneRegistrationLedger(regLedger, future)
	spotsLedger, spotsDropped = PruneSpotsLedger(spotsLedger, future)
	if regDropped {
		if err := cy.store.SaveRegistrationLedger(regLedger); err != nil {
			return result, fmt.Errorf("persist registration ledger after sweep: %w", err)
		}
	}
	if spotsDropped {
		if err := cy.store.SaveSpotsLedger(spotsLedger); err != nil {
			return result, fmt.Errorf("persist spots ledger after sweep: %w", err)
		}
	}

	// Brand-new competitions. The snapshot save is independent of dispatch
	// success: missing an announcement once beats repeating it forever.
	added := NewlyAdded(current, previous)
	result.New = len(added)
	if len(added) > 0 {
		switch {
		case len(previous) == 0 && cy.cfg.QuietFirstRun:
			cy.log.Infof("First run: recording %d competitions without announcing them", len(added))
		case cy.dispatcher.NotifyNew(ctx, added):
			for _, c := range added {
				cy.recordAudit(ctx, now, c, KindNew, "")
			}
		default:
			cy.log.Warnf("New-competition notification undelivered for %d competitions", len(added))
			result.Errors = append(result.Errors, fmt.Errorf("new-competition notification undelivered"))
		}
	}
	if err := cy.store.SaveSnapshot(current); err != nil {
		return result, fmt.Errorf("persist snapshot: %w", err)
	}

	// Registration windows. Each flag is committed and flushed immediately
	// after its successful dispatch, so a crash mid-batch loses at most the
	// unflushed suffix.
	for _, c := range RegistrationOpeningSoon(current, regLedger, now, cy.cfg.Window) {
		if !cy.dispatcher.NotifyRegistrationUpcoming(ctx, c) {
			cy.log.Warnf("Registration-upcoming notification undelivered for %s", c.ID)
			result.Errors = append(result.Errors, fmt.Errorf("registration-upcoming undelivered for %s", c.ID))
			continue
		}
		flags := regLedger[c.ID]
		flags.NotifiedUpcoming = true
		regLedger[c.ID] = flags
		if err := cy.store.SaveRegistrationLedger(regLedger); err != nil {
			return result, fmt.Errorf("persist registration ledger: %w", err)
		}
		result.Upcoming++
		cy.recordAudit(ctx, now, c, KindRegistrationUpcoming, c.RegistrationOpen.Format(time.RFC3339))
	}

	for _, c := range RegistrationJustOpened(current, regLedger, now) {
		if !cy.dispatcher.NotifyRegistrationOpen(ctx, c) {
			cy.log.Warnf("Registration-open notification undelivered for %s", c.ID)
			result.Errors = append(result.Errors, fmt.Errorf("registration-open undelivered for %s", c.ID))
			continue
		}
		flags := regLedger[c.ID]
		flags.NotifiedOpen = true
		regLedger[c.ID] = flags
		if err := cy.store.SaveRegistrationLedger(regLedger); err != nil {
			return result, fmt.Errorf("persist registration ledger: %w", err)
		}
		result.Opened++
		cy.recordAudit(ctx, now, c, KindRegistrationOpen, c.RegistrationOpen.Format(time.RFC3339))
	}

	// Capacity. Counters refresh on every successful lookup; the one-shot
	// Notified flag only flips after a successful dispatch.
	alerts, dirty := DetectLimitedSpots(ctx, current, spotsLedger, cy.counts, cy.limiter, cy.cfg.CapacityThreshold, now, cy.log)
	if dirty {
		if err := cy.store.SaveSpotsLedger(spotsLedger); err != nil {
			return result, fmt.Errorf("persist spots ledger: %w", err)
		}
	}
	for _, a := range alerts {
		if !cy.dispatcher.NotifyCapacityAlert(ctx, a.Comp, a.LiveCount) {
			cy.log.Warnf("Capacity notification undelivered for %s", a.Comp.ID)
			result.Errors = append(result.Errors, fmt.Errorf("capacity alert undelivered for %s", a.Comp.ID))
			continue
		}
		entry := spotsLedger[a.Comp.ID]
		entry.Notified = true
		spotsLedger[a.Comp.ID] = entry
		if err := cy.store.SaveSpotsLedger(spotsLedger); err != nil {
			return result, fmt.Errorf("persist spots ledger: %w", err)
		}
		result.CapacityAlerts++
		cy.recordAudit(ctx, now, a.Comp, KindCapacity, fmt.Sprintf("%d/%d", a.LiveCount, a.Comp.CompetitorLimit))
	}

	return result, nil
}

func (cy *Cycle) recordAudit(ctx context.Context, at time.Time, c comp.Competition, kind, detail string) {
	if cy.audit == nil {
		return
	}
	if err := cy.audit.Record(ctx, at, c.ID, c.Name, kind, detail); err != nil {
		cy.log.Warnf("Could not record %s notification for %s: %v", kind, c.ID, err)
	}
}
