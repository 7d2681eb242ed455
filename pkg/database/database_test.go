package database

import (
	"fmt"
	"testing"
	"time"
)

func openTestDb(t *testing.T) *Database {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("error opening db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestHistoryNewestFirst(t *testing.T) {
	db := openTestDb(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		_, err := db.AddHistory(HistoryEntry{
			Time:     now,
			Device:   "file:/tmp/scan.txt",
			Text:     fmt.Sprintf("TOOL-%d", i),
			Accepted: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := db.GetHistory(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"TOOL-2", "TOOL-1", "TOOL-0"} {
		if entries[i].Text != want {
			t.Fatalf("entry %d: expected %s, got %s", i, want, entries[i].Text)
		}
	}
}

func TestHistoryLimit(t *testing.T) {
	db := openTestDb(t)

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		if _, err := db.AddHistory(HistoryEntry{Text: "TOOL"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := db.GetHistory(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != DefaultHistoryLimit {
		t.Fatalf("expected %d entries, got %d", DefaultHistoryLimit, len(entries))
	}

	entries, err = db.GetHistory(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
}

func TestAddHistoryFillsDefaults(t *testing.T) {
	db := openTestDb(t)

	e, err := db.AddHistory(HistoryEntry{Text: "TOOL-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Id.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("expected id to be generated")
	}
	if e.Time.IsZero() {
		t.Fatal("expected time to be set")
	}
}

func TestClearHistory(t *testing.T) {
	db := openTestDb(t)

	if _, err := db.AddHistory(HistoryEntry{Text: "TOOL-1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearHistory(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := db.GetHistory(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %d", len(entries))
	}
}
