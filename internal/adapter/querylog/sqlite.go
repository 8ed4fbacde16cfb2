// Package querylog persists a per-query audit trail to SQLite so latency
// and degradation can be inspected after the fact.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one query's audit entry.
type Record struct {
	TraceID        string
	Query          string
	Hybrid         bool
	TopK           int
	LatencyMS      float64
	ResultCount    int
	CacheHit       bool
	Degraded       bool
	DegradedReason string
}

// Logger writes query records to a SQLite database.
type Logger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS query_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT,
	query TEXT,
	hybrid INTEGER,
	top_k INTEGER,
	latency_ms REAL,
	result_count INTEGER,
	cache_hit INTEGER,
	degraded INTEGER,
	degraded_reason TEXT,
	created_at TEXT
);
`

// Open opens (or creates) the query log database at path.
func Open(path string) (*Logger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open query log: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init query log schema: %w", err)
	}
	return &Logger{db: db}, nil
}

// Log inserts one record. Logging failures are the caller's to downgrade;
// they must never fail the query itself.
func (l *Logger) Log(ctx context.Context, rec Record) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO query_logs
		 (trace_id, query, hybrid, top_k, latency_ms, result_count, cache_hit, degraded, degraded_reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID, rec.Query, boolInt(rec.Hybrid), rec.TopK, rec.LatencyMS,
		rec.ResultCount, boolInt(rec.CacheHit), boolInt(rec.Degraded),
		rec.DegradedReason, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Recent returns the newest n records, newest first.
func (l *Logger) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT trace_id, query, hybrid, top_k, latency_ms, result_count, cache_hit, degraded, degraded_reason
		 FROM query_logs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		var hybrid, cacheHit, degraded int
		if err := rows.Scan(&r.TraceID, &r.Query, &hybrid, &r.TopK, &r.LatencyMS,
			&r.ResultCount, &cacheHit, &degraded, &r.DegradedReason); err != nil {
			return nil, err
		}
		r.Hybrid = hybrid != 0
		r.CacheHit = cacheHit != 0
		r.Degraded = degraded != 0
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (l *Logger) Close() error { return l.db.Close() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
