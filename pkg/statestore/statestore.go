// Package statestore persists the three flat-file collections that survive
// between runs: the competition snapshot, the registration notification
// ledger, and the spots (capacity) ledger. Every save is an atomic
// whole-file overwrite; every load self-heals a missing or corrupt file to
// the empty form, since losing state only means re-notifying once, while a
// hard failure would wedge the scheduler.
package statestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tomasfh/compwatch/pkg/comp"
)

const (
	snapshotFile     = "competitions.json"
	registrationFile = "registration_ledger.json"
	spotsFile        = "spots_ledger.json"
)

// RegistrationFlags records which registration-window notifications have
// already gone out for one competition.
type RegistrationFlags struct {
	NotifiedUpcoming bool `json:"notified_upcoming"`
	NotifiedOpen     bool `json:"notified_open"`
}

// SpotsEntry records capacity-alert state for one competition. LastCount and
// Limit are refreshed every run; Notified is one-shot and never resets.
type SpotsEntry struct {
	Notified  bool `json:"notified"`
	LastCount int  `json:"last_count"`
	Limit     int  `json:"limit"`
}

// Store reads and writes the state files in a single directory.
type Store struct {
	dir string

	// id set of the snapshot as last loaded or saved, so an unchanged
	// snapshot does not get rewritten every run.
	snapshotIDs map[string]bool
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create state dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// LoadSnapshot returns the competitions persisted by the previous run, or an
// empty list when the file is absent or unreadable.
func (s *Store) LoadSnapshot() []comp.Competition {
	var comps []comp.Competition
	s.loadJSON(snapshotFile, &comps)
	if comps == nil {
		comps = []comp.Competition{}
	}
	s.snapshotIDs = comp.IDs(comps)
	return comps
}

// SaveSnapshot overwrites the snapshot file, but only when the id set
// actually differs from what is already persisted.
func (s *Store) SaveSnapshot(comps []comp.Competition) error {
	ids := comp.IDs(comps)
	if s.snapshotIDs != nil && sameIDSet(ids, s.snapshotIDs) {
		return nil
	}
	if err := s.saveJSON(snapshotFile, comps); err != nil {
		return err
	}
	s.snapshotIDs = ids
	return nil
}

func (s *Store) LoadRegistrationLedger() map[string]RegistrationFlags {
	ledger := map[string]RegistrationFlags{}
	s.loadJSON(registrationFile, &ledger)
	if ledger == nil {
		ledger = map[string]RegistrationFlags{}
	}
	return ledger
}

func (s *Store) SaveRegistrationLedger(ledger map[string]RegistrationFlags) error {
	return s.saveJSON(registrationFile, ledger)
}

func (s *Store) LoadSpotsLedger() map[string]SpotsEntry {
	ledger := map[string]SpotsEntry{}
	s.loadJSON(spotsFile, &ledger)
	if ledger == nil {
		ledger = map[string]SpotsEntry{}
	}
	return ledger
}

func (s *Store) SaveSpotsLedger(ledger map[string]SpotsEntry) error {
	return s.saveJSON(spotsFile, ledger)
}

// loadJSON fills dst from the named file. Missing file, empty file and
// malformed content all leave dst untouched/zeroed; the caller reinitializes
// to the empty form. The error is deliberately not propagated.
func (s *Store) loadJSON(name string, dst interface{}) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil || len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// Corrupt state file: reset rather than abort.
		zeroOut(dst)
	}
}

func (s *Store) saveJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func zeroOut(dst interface{}) {
	switch v := dst.(type) {
	case *[]comp.Competition:
		*v = nil
	case *map[string]RegistrationFlags:
		*v = map[string]RegistrationFlags{}
	case *map[string]SpotsEntry:
		*v = map[string]SpotsEntry{}
	}
}

func sameIDSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

// SortedIDs is a test/debug helper returning a ledger's keys in order.
func SortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
