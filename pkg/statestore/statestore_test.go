package statestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomasfh/compwatch/pkg/comp"
)

func mkComp(id string) comp.Competition {
	return comp.Competition{
		ID:        id,
		Name:      id,
		StartDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC),
	}
}

func TestLoadSelfHealsMissingFiles(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if got := s.LoadSnapshot(); len(got) != 0 {
		t.Errorf("expected empty snapshot, got %d entries", len(got))
	}
	if got := s.LoadRegistrationLedger(); len(got) != 0 {
		t.Errorf("expected empty registration ledger, got %v", got)
	}
	if got := s.LoadSpotsLedger(); len(got) != 0 {
		t.Errorf("expected empty spots ledger, got %v", got)
	}
}

func TestLoadSelfHealsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{snapshotFile, registrationFile, spotsFile} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.LoadSnapshot(); len(got) != 0 {
		t.Errorf("corrupt snapshot should load empty, got %d", len(got))
	}
	if got := s.LoadRegistrationLedger(); len(got) != 0 {
		t.Errorf("corrupt registration ledger should load empty, got %v", got)
	}
	if got := s.LoadSpotsLedger(); len(got) != 0 {
		t.Errorf("corrupt spots ledger should load empty, got %v", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	s.LoadSnapshot()

	comps := []comp.Competition{mkComp("A1"), mkComp("A2")}
	if err := s.SaveSnapshot(comps); err != nil {
		t.Fatal(err)
	}

	reloaded, _ := New(dir)
	got := reloaded.LoadSnapshot()
	if len(got) != 2 || got[0].ID != "A1" || got[1].ID != "A2" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestSnapshotSkipsWriteWhenIDSetUnchanged(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	s.LoadSnapshot()
	if err := s.SaveSnapshot([]comp.Competition{mkComp("A1")}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, snapshotFile)
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	// Same id set, different field values: must not rewrite.
	changed := mkComp("A1")
	changed.Name = "renamed"
	if err := s.SaveSnapshot([]comp.Competition{changed}); err != nil {
		t.Fatal(err)
	}
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Error("snapshot was rewritten despite unchanged id set")
	}

	// New id: must rewrite.
	if err := s.SaveSnapshot([]comp.Competition{mkComp("A1"), mkComp("A2")}); err != nil {
		t.Fatal(err)
	}
	reloaded, _ := New(dir)
	if got := reloaded.LoadSnapshot(); len(got) != 2 {
		t.Errorf("expected rewrite with 2 entries, got %d", len(got))
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)

	reg := map[string]RegistrationFlags{
		"A1": {NotifiedUpcoming: true},
		"A2": {NotifiedOpen: true},
	}
	if err := s.SaveRegistrationLedger(reg); err != nil {
		t.Fatal(err)
	}
	spots := map[string]SpotsEntry{
		"A1": {Notified: true, LastCount: 90, Limit: 100},
	}
	if err := s.SaveSpotsLedger(spots); err != nil {
		t.Fatal(err)
	}

	reloaded, _ := New(dir)
	gotReg := reloaded.LoadRegistrationLedger()
	if !gotReg["A1"].NotifiedUpcoming || gotReg["A1"].NotifiedOpen {
		t.Errorf("registration ledger mismatch: %+v", gotReg)
	}
	gotSpots := reloaded.LoadSpotsLedger()
	if e := gotSpots["A1"]; !e.Notified || e.LastCount != 90 || e.Limit != 100 {
		t.Errorf("spots ledger mismatch: %+v", gotSpots)
	}
	if ids := SortedIDs(gotReg); len(ids) != 2 || ids[0] != "A1" {
		t.Errorf("unexpected ledger keys: %v", ids)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	if err := s.SaveSpotsLedger(map[string]SpotsEntry{"A1": {}}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, spotsFile+".tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}
