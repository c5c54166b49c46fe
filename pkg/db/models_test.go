package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}

func TestPositionStateRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if _, err := database.GetPositionState(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty table, got %v", err)
	}

	for _, state := range []string{"buy", "sell", "none"} {
		if err := database.SetPositionState(ctx, state); err != nil {
			t.Fatalf("SetPositionState(%s): %v", state, err)
		}
		got, err := database.GetPositionState(ctx)
		if err != nil {
			t.Fatalf("GetPositionState: %v", err)
		}
		if got != state {
			t.Fatalf("got %s, expected %s", got, state)
		}
	}
}

func TestPositionStateRejectsUnknownValue(t *testing.T) {
	database := newTestDB(t)
	if err := database.SetPositionState(context.Background(), "long"); err == nil {
		t.Fatalf("expected CHECK constraint failure for unknown state")
	}
}

func TestJournalNewestFirst(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	entries := []JournalEntry{
		{ID: "a", Source: "http", Signal: "buy", Previous: "none", Current: "buy", Status: StatusExecuted, Steps: 5, CreatedAt: base},
		{ID: "b", Source: "console", Signal: "buy", Previous: "buy", Current: "buy", Status: StatusNoop, CreatedAt: base.Add(time.Second)},
		{ID: "c", Source: "mail", Signal: "sell", Price: 1.105, Previous: "buy", Current: "none", Status: StatusFailed, Error: "driver: click failed", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := database.InsertJournal(ctx, e); err != nil {
			t.Fatalf("InsertJournal(%s): %v", e.ID, err)
		}
	}

	got, err := database.ListJournal(ctx, 2)
	if err != nil {
		t.Fatalf("ListJournal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Error == "" || got[0].Price != 1.105 {
		t.Fatalf("nullable columns not restored: %+v", got[0])
	}
	if got[1].Error != "" || got[1].Price != 0 {
		t.Fatalf("expected empty nullable columns: %+v", got[1])
	}
}
