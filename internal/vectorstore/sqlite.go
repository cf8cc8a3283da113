// Package vectorstore is a small persistent similarity-search collection backed
// by SQLite. Documents are embedded on insert and ranked by cosine distance at
// query time; it is sized for datasets of hundreds of rows, not millions.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/amishk599/hireflow/internal/model"
)

const dbFileName = "store.db"

// ErrEmbedderMismatch is returned when a collection was built with a
// different embedder, or vector size, than the one it is opened with.
var ErrEmbedderMismatch = errors.New("embedder mismatch")

// Record is one document to insert.
type Record struct {
	ID       string
	Document string
	Metadata model.Metadata
}

// Match is one query hit. Lower Distance is closer.
type Match struct {
	ID       string
	Document string
	Metadata model.Metadata
	Distance float64
}

// Collection is a named set of embedded documents inside a store directory.
type Collection struct {
	db       *sql.DB
	name     string
	embedder Embedder
	lock     *flock.Flock
	// mu is held around the file lock; flock is reentrant within one handle.
	mu sync.Mutex
}

// Open opens (or creates) the store in dir and returns the named collection.
func Open(dir, name string, embedder Embedder) (*Collection, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir %s: %w", dir, err)
	}

	dsn := filepath.Join(dir, dbFileName) + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS embeddings (
		id         TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		document   TEXT NOT NULL,
		metadata   TEXT NOT NULL,
		embedding  BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating embeddings table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_embeddings_collection ON embeddings(collection)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating embeddings index: %w", err)
	}
	meta := `CREATE TABLE IF NOT EXISTS collections (
		name     TEXT PRIMARY KEY,
		embedder TEXT NOT NULL,
		dims     INTEGER NOT NULL
	)`
	if _, err := db.Exec(meta); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collections table: %w", err)
	}

	return &Collection{
		db:       db,
		name:     name,
		embedder: embedder,
		lock:     flock.New(filepath.Join(dir, name+".lock")),
	}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Count returns the number of documents in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings WHERE collection = ?", c.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting collection %s: %w", c.name, err)
	}
	return n, nil
}

// Add embeds and inserts records in a single transaction.
func (c *Collection) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]string, len(records))
	for i, r := range records {
		docs[i] = r.Document
	}
	vectors, err := c.embedder.Embed(ctx, docs)
	if err != nil {
		return fmt.Errorf("embedding %d documents: %w", len(docs), err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(records))
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	dims := len(vectors[0])
	if err := checkEmbedder(ctx, tx, c.name, c.embedder.Name(), dims); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, embedder, dims) VALUES (?, ?, ?)",
		c.name, c.embedder.Name(), dims); err != nil {
		return fmt.Errorf("recording embedder for %s: %w", c.name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO embeddings (id, collection, document, metadata, embedding) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, c.name, r.Document, string(meta), encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("inserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// Query returns, for each text in order, up to n nearest documents.
// An empty texts slice returns nil without touching the database.
func (c *Collection) Query(ctx context.Context, texts []string, n int) ([][]Match, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	queryVecs, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d query texts: %w", len(texts), err)
	}
	if len(queryVecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d query texts", len(queryVecs), len(texts))
	}
	if err := checkEmbedder(ctx, c.db, c.name, c.embedder.Name(), len(queryVecs[0])); err != nil {
		return nil, err
	}

	entries, err := c.all(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]Match, len(texts))
	for i, qv := range queryVecs {
		matches := make([]Match, len(entries))
		for j, e := range entries {
			matches[j] = Match{
				ID:       e.id,
				Document: e.document,
				Metadata: e.metadata,
				Distance: cosineDistance(qv, e.vector),
			}
		}
		sort.SliceStable(matches, func(a, b int) bool {
			return matches[a].Distance < matches[b].Distance
		})
		if len(matches) > n {
			matches = matches[:n]
		}
		results[i] = matches
	}
	return results, nil
}

// Reset deletes every document in the collection along with its recorded
// embedder, so the next Add may use a different one.
func (c *Collection) Reset(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE collection = ?", c.name); err != nil {
		return fmt.Errorf("resetting collection %s: %w", c.name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", c.name); err != nil {
		return fmt.Errorf("resetting collection %s: %w", c.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// checkEmbedder compares the embedder recorded for the collection with the
// current one. A collection with no record accepts any embedder.
func checkEmbedder(ctx context.Context, q queryRower, collection, name string, dims int) error {
	var (
		stored     string
		storedDims int
	)
	err := q.QueryRowContext(ctx,
		"SELECT embedder, dims FROM collections WHERE name = ?", collection).Scan(&stored, &storedDims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading embedder for %s: %w", collection, err)
	}
	if stored != name || storedDims != dims {
		return fmt.Errorf("%w: collection %s was built with %s (%d dims), now using %s (%d dims); run `hireflow portfolio reset` to rebuild it",
			ErrEmbedderMismatch, collection, stored, storedDims, name, dims)
	}
	return nil
}

// WithLock runs fn while holding the collection's file lock, so writers in
// other processes sharing the store directory are serialized. Callers sharing
// one Collection are serialized as well.
func (c *Collection) WithLock(ctx context.Context, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	locked, err := c.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("locking collection %s: %w", c.name, err)
	}
	if !locked {
		return fmt.Errorf("locking collection %s: lock not acquired", c.name)
	}
	defer c.lock.Unlock()
	return fn()
}

// Close closes the underlying database connection.
func (c *Collection) Close() error {
	return c.db.Close()
}

type entry struct {
	id       string
	document string
	metadata model.Metadata
	vector   []float32
}

func (c *Collection) all(ctx context.Context) ([]entry, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, document, metadata, embedding FROM embeddings WHERE collection = ? ORDER BY rowid", c.name)
	if err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", c.name, err)
	}
	defer rows.Close()

	var entries []entry
	for rows.Next() {
		var (
			e    entry
			meta string
			blob []byte
		)
		if err := rows.Scan(&e.id, &e.document, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning collection %s: %w", c.name, err)
		}
		if err := json.Unmarshal([]byte(meta), &e.metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", e.id, err)
		}
		e.vector = decodeVector(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", c.name, err)
	}
	return entries, nil
}

func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(x))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
