package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"trade-clicker/pkg/db"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}

	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "position_state.txt"), zerolog.Nop()),
		"sqlite": NewDBStore(database, zerolog.Nop()),
	}
}

func TestFreshStoreLoadsNone(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got != None {
				t.Fatalf("got %s, expected none", got)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, p := range []Position{Buy, Sell, None, Sell} {
				if err := store.Save(ctx, p); err != nil {
					t.Fatalf("Save(%s): %v", p, err)
				}
				got, err := store.Load(ctx)
				if err != nil {
					t.Fatalf("Load: %v", err)
				}
				if got != p {
					t.Fatalf("got %s, expected %s", got, p)
				}
			}
		})
	}
}

func TestSaveRejectsUnknownPosition(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(context.Background(), Position("long")); err == nil {
				t.Fatalf("expected error saving unknown position")
			}
		})
	}
}

func TestFileStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "position_state.txt")
	store := NewFileStore(path, zerolog.Nop())
	if err := store.Save(context.Background(), Sell); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "sell" {
		t.Fatalf("file content %q, expected %q", data, "sell")
	}

	// A trailing newline written by hand is accepted.
	if err := os.WriteFile(path, []byte("buy\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, _ := store.Load(context.Background())
	if got != Buy {
		t.Fatalf("got %s, expected buy", got)
	}
}

func TestFileStoreCorruptContentIsNone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position_state.txt")
	if err := os.WriteFile(path, []byte("LONG"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := NewFileStore(path, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != None {
		t.Fatalf("got %s, expected none", got)
	}
}

func TestFileStoreUnreadableIsNone(t *testing.T) {
	// A directory at the state path cannot be read as a file.
	path := t.TempDir()
	got, err := NewFileStore(path, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != None {
		t.Fatalf("got %s, expected none", got)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    Position
		wantErr bool
	}{
		{in: "none", want: None},
		{in: " buy\n", want: Buy},
		{in: "sell", want: Sell},
		{in: "Sell", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePosition(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParsePosition(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("ParsePosition(%q)=%s, expected %s", tt.in, got, tt.want)
		}
	}
}
