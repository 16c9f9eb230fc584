package checkpoint

import (
	"testing"
)

func TestRemainingExcludesCompletedAndFailed(t *testing.T) {
	cp := &Checkpoint{
		URLs:      []string{"a", "b", "c", "d"},
		Completed: []string{"a", "c"},
		Failed:    []string{"b"},
	}
	remaining := cp.Remaining()
	if len(remaining) != 1 || remaining[0] != "d" {
		t.Errorf("Remaining() = %v, want [d]", remaining)
	}
}

func TestRemainingAllPendingWhenNothingDone(t *testing.T) {
	cp := &Checkpoint{URLs: []string{"a", "b"}}
	remaining := cp.Remaining()
	if len(remaining) != 2 {
		t.Errorf("Remaining() = %v, want both urls", remaining)
	}
}

func TestStoreNewLoadSaveRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cp, err := store.New("job-1", []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.MarkCompleted(cp, "a"); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load("job-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Completed) != 1 || loaded.Completed[0] != "a" {
		t.Errorf("loaded.Completed = %v", loaded.Completed)
	}
	if got := loaded.Remaining(); len(got) != 1 || got[0] != "b" {
		t.Errorf("loaded.Remaining() = %v, want [b]", got)
	}
}

func TestStoreMarkFailedPersists(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cp, err := store.New("job-2", []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.MarkFailed(cp, "a"); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load("job-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Failed) != 1 {
		t.Errorf("expected one failed url, got %v", loaded.Failed)
	}
}

func TestStoreDeleteRemovesFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.New("job-3", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("job-3"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load("job-3"); err == nil {
		t.Error("expected Load to fail after Delete")
	}
}

func TestStoreListOrdersByMostRecentlyUpdated(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.New("older", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	cp2, err := store.New("newer", []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	// Touch the second checkpoint again so its UpdatedAt is strictly later.
	if err := store.MarkCompleted(cp2, "a"); err != nil {
		t.Fatal(err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(list))
	}
	if list[0].JobID != "newer" {
		t.Errorf("expected most recently updated checkpoint first, got %q", list[0].JobID)
	}
}
