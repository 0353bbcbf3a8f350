// Package ledger records hero re-compression passes so that a file the
// re-compressor already produced is not degraded again on the next run.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrDisabled is returned by Open when no DSN is configured
var ErrDisabled = errors.New("ledger disabled")

// Pass is the last recorded re-compression of one file
type Pass struct {
	FileName    string
	Checksum    string
	Quality     int
	RunID       string
	OptimizedAt time.Time
	PassCount   int
}

// Tracker stores hero passes in SQLite or PostgreSQL
type Tracker struct {
	db       *sql.DB
	postgres bool
}

// Open connects to dsn. postgres:// and postgresql:// URLs use lib/pq,
// anything else is treated as a SQLite file path.
func Open(dsn string) (*Tracker, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrDisabled
	}

	var (
		db       *sql.DB
		err      error
		postgres = strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
	)
	if postgres {
		db, err = sql.Open("postgres", dsn)
	} else {
		path := filepath.Clean(dsn)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
		db, err = sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ledger: %w", err)
	}

	return NewTracker(db, postgres)
}

// NewTracker wraps an open database and ensures the schema exists
func NewTracker(db *sql.DB, postgres bool) (*Tracker, error) {
	tracker := &Tracker{db: db, postgres: postgres}

	// Create table if not exists
	if err := tracker.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger table: %w", err)
	}

	return tracker, nil
}

// Close closes the database handle
func (t *Tracker) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.Close()
}

// ensureTable creates the hero_passes table if it doesn't exist
func (t *Tracker) ensureTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS hero_passes (
			file_name TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			quality INTEGER NOT NULL,
			run_id TEXT NOT NULL,
			optimized_at BIGINT NOT NULL,
			pass_count INTEGER NOT NULL DEFAULT 1
		)
	`

	_, err := t.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create hero_passes table: %w", err)
	}

	log.Printf("✓ hero_passes table ready")
	return nil
}

// rebind rewrites ? placeholders to $N for PostgreSQL
func (t *Tracker) rebind(query string) string {
	if !t.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record upserts a pass and returns how many passes the file has seen
func (t *Tracker) Record(ctx context.Context, p Pass) (int, error) {
	if p.OptimizedAt.IsZero() {
		p.OptimizedAt = time.Now()
	}

	// Upsert: increment pass_count if exists, insert if not
	query := t.rebind(`
		INSERT INTO hero_passes (file_name, checksum, quality, run_id, optimized_at, pass_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (file_name) DO UPDATE
		SET checksum = excluded.checksum,
		    quality = excluded.quality,
		    run_id = excluded.run_id,
		    optimized_at = excluded.optimized_at,
		    pass_count = hero_passes.pass_count + 1
		RETURNING pass_count
	`)

	var passCount int
	err := t.db.QueryRowContext(ctx, query, p.FileName, p.Checksum, p.Quality, p.RunID, p.OptimizedAt.UTC().UnixMilli()).Scan(&passCount)
	if err != nil {
		return 0, fmt.Errorf("failed to record hero pass: %w", err)
	}

	return passCount, nil
}

// Lookup returns the last pass for fileName, or nil if none is recorded
func (t *Tracker) Lookup(ctx context.Context, fileName string) (*Pass, error) {
	query := t.rebind(`SELECT file_name, checksum, quality, run_id, optimized_at, pass_count FROM hero_passes WHERE file_name = ?`)

	var (
		p      Pass
		millis int64
	)
	err := t.db.QueryRowContext(ctx, query, fileName).Scan(&p.FileName, &p.Checksum, &p.Quality, &p.RunID, &millis, &p.PassCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up hero pass: %w", err)
	}
	p.OptimizedAt = time.UnixMilli(millis).UTC()

	return &p, nil
}

// Checksum returns the hex xxhash64 of r's content
func Checksum(r io.Reader) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to checksum: %w", err)
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}
