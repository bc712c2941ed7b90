// Package store provides a SQLite-backed local store for tdsta. It holds two
// things: the embedding checkpoint that lets an interrupted embed run resume
// without repeating network calls, and the query log of answered questions.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Disabled is the TDSTA_DB value that turns the local store off.
const Disabled = "disabled"

// CheckpointKey identifies one embedded chunk. TextHash changes whenever the
// chunk text changes, so an edited chunk is embedded again.
type CheckpointKey struct {
	Source   string
	ChunkID  string
	TextHash string
}

// KeyFor builds the CheckpointKey for a chunk.
func KeyFor(source, chunkID, text string) CheckpointKey {
	sum := sha256.Sum256([]byte(text))
	return CheckpointKey{Source: source, ChunkID: chunkID, TextHash: hex.EncodeToString(sum[:])}
}

// Checkpoint persists embeddings between runs of the embed stage.
// Implementations must be safe for concurrent use.
type Checkpoint interface {
	// Get returns the stored vector for key, and false when there is none.
	Get(ctx context.Context, key CheckpointKey) ([]float32, bool, error)
	// Put stores vec under key, replacing any previous value.
	Put(ctx context.Context, key CheckpointKey, vec []float32) error
}

// Outcome is how a question was answered.
type Outcome string

const (
	// OutcomeAnswered means the answer was generated from retrieved context.
	OutcomeAnswered Outcome = "answered"
	// OutcomeFallback means retrieval found nothing.
	OutcomeFallback Outcome = "fallback"
	// OutcomeCached means the answer came from the answer cache.
	OutcomeCached Outcome = "cached"
	// OutcomeError means a downstream failure was reported to the caller.
	OutcomeError Outcome = "error"
)

// QueryRecord is one entry of the query log.
type QueryRecord struct {
	Question  string
	Outcome   Outcome
	ErrorKind string
	Links     int
	Latency   time.Duration
	CreatedAt time.Time
}

// QueryLog records answered questions for operators.
// Implementations must be safe for concurrent use.
type QueryLog interface {
	// Append persists a single record. A zero CreatedAt is set to now.
	Append(ctx context.Context, rec QueryRecord) error
	// Recent returns the most recent n records, newest first.
	Recent(ctx context.Context, n int) ([]QueryRecord, error)
}

// SQLiteStore implements Checkpoint and QueryLog on a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default database path ~/.tdsta/tdsta.db, creating
// the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".tdsta")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "tdsta.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: could not create %s: %w", dir, err)
		}
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS embeddings (
    source      TEXT    NOT NULL,
    chunk_id    TEXT    NOT NULL,
    text_hash   TEXT    NOT NULL,
    dims        INTEGER NOT NULL,
    vector      BLOB    NOT NULL,
    created_at  INTEGER NOT NULL,
    PRIMARY KEY (source, chunk_id, text_hash)
);
CREATE TABLE IF NOT EXISTS queries (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    question    TEXT    NOT NULL,
    outcome     TEXT    NOT NULL CHECK(outcome IN ('answered','fallback','cached','error')),
    error_kind  TEXT    NOT NULL DEFAULT '',
    links       INTEGER NOT NULL,
    latency_ms  INTEGER NOT NULL,
    created_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_queries_created ON queries (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Get implements Checkpoint.
func (s *SQLiteStore) Get(ctx context.Context, key CheckpointKey) ([]float32, bool, error) {
	const q = `SELECT dims, vector FROM embeddings WHERE source = ? AND chunk_id = ? AND text_hash = ?`

	var (
		dims int
		blob []byte
	)
	err := s.db.QueryRowContext(ctx, q, key.Source, key.ChunkID, key.TextHash).Scan(&dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: checkpoint get: %w", err)
	}
	vec, err := decodeVector(blob, dims)
	if err != nil {
		return nil, false, fmt.Errorf("store: checkpoint get %s/%s: %w", key.Source, key.ChunkID, err)
	}
	return vec, true, nil
}

// Put implements Checkpoint.
func (s *SQLiteStore) Put(ctx context.Context, key CheckpointKey, vec []float32) error {
	const q = `
INSERT INTO embeddings (source, chunk_id, text_hash, dims, vector, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (source, chunk_id, text_hash) DO UPDATE SET
    dims = excluded.dims, vector = excluded.vector, created_at = excluded.created_at`

	if _, err := s.db.ExecContext(ctx, q, key.Source, key.ChunkID, key.TextHash,
		len(vec), encodeVector(vec), time.Now().Unix()); err != nil {
		return fmt.Errorf("store: checkpoint put: %w", err)
	}
	return nil
}

// Append implements QueryLog.
func (s *SQLiteStore) Append(ctx context.Context, rec QueryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	const q = `INSERT INTO queries (question, outcome, error_kind, links, latency_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, rec.Question, string(rec.Outcome), rec.ErrorKind,
		rec.Links, rec.Latency.Milliseconds(), rec.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("store: append query: %w", err)
	}
	return nil
}

// Recent implements QueryLog.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]QueryRecord, error) {
	const q = `
SELECT question, outcome, error_kind, links, latency_ms, created_at
FROM   queries
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		var (
			r         QueryRecord
			outcome   string
			latencyMS int64
			ts        int64
		)
		if err := rows.Scan(&r.Question, &outcome, &r.ErrorKind, &r.Links, &latencyMS, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		r.Outcome = Outcome(outcome)
		r.Latency = time.Duration(latencyMS) * time.Millisecond
		r.CreatedAt = time.Unix(ts, 0)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return out, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// encodeVector packs vec as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(buf []byte, dims int) ([]float32, error) {
	if len(buf) != 4*dims {
		return nil, fmt.Errorf("vector blob is %d bytes, want %d", len(buf), 4*dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
