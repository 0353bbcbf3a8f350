package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := Open(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { tracker.Close() })
	return tracker
}

func TestOpenEmptyDSNIsDisabled(t *testing.T) {
	if _, err := Open("  "); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Open(\"\") error = %v, want ErrDisabled", err)
	}
}

func TestLookupMissing(t *testing.T) {
	tracker := openTestTracker(t)
	p, err := tracker.Lookup(context.Background(), "hero-conservation-320w.webp")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p != nil {
		t.Fatalf("Lookup = %+v, want nil", p)
	}
}

func TestRecordUpsertsAndCounts(t *testing.T) {
	tracker := openTestTracker(t)
	ctx := context.Background()
	at := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)

	count, err := tracker.Record(ctx, Pass{
		FileName:    "hero-conservation-320w.webp",
		Checksum:    "abc",
		Quality:     25,
		RunID:       "run-1",
		OptimizedAt: at,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if count != 1 {
		t.Fatalf("first pass count = %d", count)
	}

	count, err = tracker.Record(ctx, Pass{
		FileName: "hero-conservation-320w.webp",
		Checksum: "def",
		Quality:  20,
		RunID:    "run-2",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if count != 2 {
		t.Fatalf("second pass count = %d", count)
	}

	p, err := tracker.Lookup(ctx, "hero-conservation-320w.webp")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p == nil {
		t.Fatal("Lookup returned nil")
	}
	if p.Checksum != "def" || p.Quality != 20 || p.RunID != "run-2" || p.PassCount != 2 {
		t.Fatalf("Lookup = %+v", p)
	}
	if !p.OptimizedAt.After(at) {
		t.Fatalf("OptimizedAt = %v, want after %v", p.OptimizedAt, at)
	}
}

func TestLedgerPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.Record(ctx, Pass{FileName: "a.webp", Checksum: "1", Quality: 25, RunID: "r"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	p, err := second.Lookup(ctx, "a.webp")
	if err != nil || p == nil || p.Checksum != "1" {
		t.Fatalf("Lookup after reopen = %+v, %v", p, err)
	}
}

func TestRebind(t *testing.T) {
	pg := &Tracker{postgres: true}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind postgres = %q", got)
	}
	lite := &Tracker{}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("rebind sqlite = %q", got)
	}
}

func TestChecksum(t *testing.T) {
	a, err := Checksum(strings.NewReader("hero bytes"))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Checksum(strings.NewReader("hero bytes"))
	c, _ := Checksum(strings.NewReader("other bytes"))
	if a != b {
		t.Fatalf("checksum not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("different content produced same checksum %s", a)
	}
}
