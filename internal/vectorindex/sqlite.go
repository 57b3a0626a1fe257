package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `CREATE TABLE IF NOT EXISTS vectors (
    collection TEXT NOT NULL,
    position   INTEGER NOT NULL,
    dim        INTEGER NOT NULL,
    vec        BLOB NOT NULL,
    PRIMARY KEY (collection, position)
)`

// Store persists vector collections in a SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the index database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure index directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Collection loads (or starts) the named collection. Its stored vectors are
// held in memory for search; writes go through to SQLite. A stored dimension
// different from dim returns ErrDimensionMismatch.
func (s *Store) Collection(ctx context.Context, name string, dim int) (*Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, dim, vec FROM vectors WHERE collection = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", name, err)
	}
	defer rows.Close()

	flat := NewFlat(dim)
	var loaded [][]float32
	for rows.Next() {
		var (
			pos, storedDim int
			blob           []byte
		)
		if err := rows.Scan(&pos, &storedDim, &blob); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		if pos != len(loaded) {
			return nil, fmt.Errorf("collection %s: gap at position %d", name, len(loaded))
		}
		if dim > 0 && storedDim != dim {
			return nil, fmt.Errorf("%w: collection %s stored with %d, embedder has %d", ErrDimensionMismatch, name, storedDim, dim)
		}
		vec, err := decodeVector(blob, storedDim)
		if err != nil {
			return nil, fmt.Errorf("collection %s position %d: %w", name, pos, err)
		}
		loaded = append(loaded, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load collection %s: %w", name, err)
	}
	if err := flat.Add(ctx, loaded); err != nil {
		return nil, err
	}
	return &Collection{store: s, name: name, flat: flat}, nil
}

// Collection is one persisted, named index.
type Collection struct {
	store *Store
	name  string
	flat  *Flat
}

func (c *Collection) Add(ctx context.Context, vectors [][]float32) error {
	c.flat.mu.Lock()
	defer c.flat.mu.Unlock()
	if err := c.flat.checkLocked(vectors); err != nil {
		return err
	}

	err := retryOnBusy(ctx, func() error {
		tx, err := c.store.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO vectors (collection, position, dim, vec) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		base := len(c.flat.vectors)
		for i, v := range vectors {
			if _, err := stmt.ExecContext(ctx, c.name, base+i, len(v), encodeVector(v)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("persist vectors: %w", err)
	}

	for _, v := range vectors {
		c.flat.vectors = append(c.flat.vectors, append([]float32(nil), v...))
	}
	return nil
}

func (c *Collection) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	return c.flat.Search(ctx, query, k)
}

func (c *Collection) Len() int { return c.flat.Len() }

func (c *Collection) Dimension() int { return c.flat.Dimension() }

// Reset deletes the collection's stored vectors.
func (c *Collection) Reset(ctx context.Context) error {
	err := retryOnBusy(ctx, func() error {
		_, err := c.store.db.ExecContext(ctx, `DELETE FROM vectors WHERE collection = ?`, c.name)
		return err
	})
	if err != nil {
		return fmt.Errorf("reset collection %s: %w", c.name, err)
	}
	return c.flat.Reset(ctx)
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, error) {
	if len(buf) != 4*dim {
		return nil, fmt.Errorf("%w: blob holds %d bytes for dimension %d", ErrDimensionMismatch, len(buf), dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
