package journal

import (
	"errors"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	if err := j.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// TestRecord_NoSchema_ReturnsErrNotInitialized verifies that writing to a
// fresh DB without CreateSchema surfaces the ErrNotInitialized sentinel.
func TestRecord_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer j.Close()

	err = j.Record(debloatRecord("com.example.bloat", time.Now()))
	if err == nil {
		t.Fatal("Record() should fail on uninitialized DB")
	}
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Record() error = %v; want errors.Is(err, ErrNotInitialized) to be true", err)
	}
}

func debloatRecord(pkg string, at time.Time) *Record {
	return &Record{
		Serial:    "ABC123",
		User:      0,
		Package:   pkg,
		Kind:      KindUninstall,
		Outcome:   OutcomeSucceeded,
		Previous:  PackageState{Installed: true, Enabled: true},
		CreatedAt: at,
	}
}

func TestRecordAndLookup(t *testing.T) {
	j := openTestJournal(t)

	rec := debloatRecord("com.example.bloat", time.Now())
	rec.Retries = 2
	if err := j.Record(rec); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if rec.ID == 0 {
		t.Error("Record() should populate the record ID")
	}

	got, err := j.Lookup("ABC123", 0, "com.example.bloat")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if got.Kind != KindUninstall || got.Outcome != OutcomeSucceeded || got.Retries != 2 {
		t.Errorf("Lookup() = %+v; want uninstall/succeeded/retries=2", got)
	}
	if !got.Previous.Installed || !got.Previous.Enabled {
		t.Errorf("previous state = %+v; want installed and enabled", got.Previous)
	}
}

// TestLookup_LatestByInsertOrder pins ordering to the autoincrement id.
// RFC3339Nano trims trailing fractional zeros, so the text of an earlier
// timestamp ("...00.5Z") sorts lexicographically after a later one
// ("...00.55Z"); ordering on the stored text would return a stale record.
func TestLookup_LatestByInsertOrder(t *testing.T) {
	j := openTestJournal(t)

	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	first := debloatRecord("com.example.bloat", base.Add(500*time.Millisecond))
	first.Kind = KindDisable
	second := debloatRecord("com.example.bloat", base.Add(550*time.Millisecond))

	if err := j.Record(first); err != nil {
		t.Fatalf("Record(first) failed: %v", err)
	}
	if err := j.Record(second); err != nil {
		t.Fatalf("Record(second) failed: %v", err)
	}

	got, err := j.Lookup("ABC123", 0, "com.example.bloat")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("Lookup() returned record %d (%s); want the later record %d (%s)",
			got.ID, got.Kind, second.ID, second.Kind)
	}

	got, err = j.LookupDebloat("ABC123", 0, "com.example.bloat")
	if err != nil {
		t.Fatalf("LookupDebloat() failed: %v", err)
	}
	if got.Kind != KindUninstall {
		t.Errorf("LookupDebloat() kind = %s; want the later uninstall record", got.Kind)
	}
}

func TestLookup_NoRecord(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Lookup("ABC123", 0, "com.never.touched")
	if !errors.Is(err, ErrNoPriorState) {
		t.Errorf("Lookup() on empty journal = %v; want ErrNoPriorState", err)
	}
}

func TestLookup_ProfileIsolation(t *testing.T) {
	j := openTestJournal(t)

	rec := debloatRecord("com.example.bloat", time.Now())
	if err := j.Record(rec); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	// Same package, different user profile: no prior state.
	if _, err := j.Lookup("ABC123", 10, "com.example.bloat"); !errors.Is(err, ErrNoPriorState) {
		t.Errorf("Lookup() for other profile = %v; want ErrNoPriorState", err)
	}
	// Same package, different device.
	if _, err := j.Lookup("OTHER", 0, "com.example.bloat"); !errors.Is(err, ErrNoPriorState) {
		t.Errorf("Lookup() for other device = %v; want ErrNoPriorState", err)
	}
}

func TestRestoreState_TargetsOriginalSnapshot(t *testing.T) {
	j := openTestJournal(t)
	base := time.Now()

	// Debloat, then restore, then ask again: the restore target must stay
	// the original pre-debloat snapshot, not the restore's own previous
	// state.
	if err := j.Record(debloatRecord("com.example.bloat", base)); err != nil {
		t.Fatalf("Record(debloat) failed: %v", err)
	}
	restore := &Record{
		Serial:    "ABC123",
		Package:   "com.example.bloat",
		Kind:      KindRestore,
		Outcome:   OutcomeSucceeded,
		Previous:  PackageState{Installed: false, Enabled: false},
		CreatedAt: base.Add(time.Minute),
	}
	if err := j.Record(restore); err != nil {
		t.Fatalf("Record(restore) failed: %v", err)
	}

	state, err := j.RestoreState("ABC123", 0, "com.example.bloat")
	if err != nil {
		t.Fatalf("RestoreState() failed: %v", err)
	}
	if !state.Installed || !state.Enabled {
		t.Errorf("RestoreState() = %+v; want the original installed+enabled snapshot", state)
	}
}

func TestRestoreState_IgnoresFailedActions(t *testing.T) {
	j := openTestJournal(t)

	failed := debloatRecord("com.example.bloat", time.Now())
	failed.Outcome = OutcomeFailed
	if err := j.Record(failed); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	// A failed action mutated nothing, so there is nothing to restore.
	if _, err := j.RestoreState("ABC123", 0, "com.example.bloat"); !errors.Is(err, ErrNoPriorState) {
		t.Errorf("RestoreState() after failed action = %v; want ErrNoPriorState", err)
	}
}

func TestList_NewestFirstAndFiltered(t *testing.T) {
	j := openTestJournal(t)
	base := time.Now()

	for i, pkg := range []string{"com.a.one", "com.b.two", "com.a.one"} {
		if err := j.Record(debloatRecord(pkg, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	all, err := j.List("", 0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d records; want 3", len(all))
	}
	if !all[0].CreatedAt.After(all[2].CreatedAt) {
		t.Error("List() should order newest first")
	}

	filtered, err := j.List("com.a.one", 0)
	if err != nil {
		t.Fatalf("List(filtered) failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("List(com.a.one) returned %d records; want 2", len(filtered))
	}

	limited, err := j.List("", 1)
	if err != nil {
		t.Fatalf("List(limited) failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("List(limit=1) returned %d records; want 1", len(limited))
	}
}

func TestCount(t *testing.T) {
	j := openTestJournal(t)

	n, err := j.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d; want 0", n)
	}

	if err := j.Record(debloatRecord("com.example.bloat", time.Now())); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if n, _ := j.Count(); n != 1 {
		t.Errorf("Count() = %d; want 1", n)
	}
}
