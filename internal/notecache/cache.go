// Package notecache persists a document's topic notes keyed by the source
// file's identity (stem, modification time, size), so an unchanged deck is
// never processed twice.
package notecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/dgallion1/slidenotes/internal/slides"
)

const (
	fileExt  = ".json"
	lockName = ".lock"
)

// ErrInvalidKey is returned for a document key that cannot name a cache file.
var ErrInvalidKey = errors.New("invalid document key")

// Entry describes one cached document.
type Entry struct {
	Key      string
	Topics   int
	Size     int64
	Modified time.Time
}

// Cache stores one JSON file per document under dir.
type Cache struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex // flock does not exclude goroutines sharing one handle
	lock   *flock.Flock
}

type document struct {
	Topics []json.RawMessage `json:"topics"`
}

type storedDocument struct {
	Topics []slides.TopicNote `json:"topics"`
}

func New(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		dir:    dir,
		logger: logger.With("component", "notecache"),
		lock:   flock.New(filepath.Join(dir, lockName)),
	}
}

// Dir is the cache directory.
func (c *Cache) Dir() string { return c.dir }

// KeyFor returns the document key of the file at path.
func KeyFor(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%d_%d", stem, info.ModTime().UnixNano(), info.Size()), nil
}

func (c *Cache) pathFor(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(c.dir, key+fileExt), nil
}

// Load returns the cached notes for the file at path. Every failure is a
// miss; corrupt entries are logged.
func (c *Cache) Load(path string) ([]slides.TopicNote, bool) {
	key, err := KeyFor(path)
	if err != nil {
		c.logger.Warn("cache key unavailable", "path", path, "error", err)
		return nil, false
	}
	return c.LoadKey(key)
}

// LoadKey is Load for a document key.
func (c *Cache) LoadKey(key string) ([]slides.TopicNote, bool) {
	p, err := c.pathFor(key)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	notes, err := decode(data)
	if err != nil {
		c.logger.Warn("cache entry corrupt, ignoring", "key", key, "error", err)
		return nil, false
	}
	c.logger.Debug("cache hit", "key", key, "topics", len(notes))
	return notes, true
}

// decode accepts a document only if every topic carries an enrichment with
// both summary and expansions.
func decode(data []byte) ([]slides.TopicNote, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse cache file: %w", err)
	}
	notes := make([]slides.TopicNote, 0, len(doc.Topics))
	for i, raw := range doc.Topics {
		var probe struct {
			Enrichment *struct {
				Summary    *string   `json:"summary"`
				Expansions *[]string `json:"expansions"`
			} `json:"enrichment"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("topic %d: %w", i, err)
		}
		if probe.Enrichment == nil || probe.Enrichment.Summary == nil || probe.Enrichment.Expansions == nil {
			return nil, fmt.Errorf("topic %d: enrichment incomplete", i)
		}
		var note slides.TopicNote
		if err := json.Unmarshal(raw, &note); err != nil {
			return nil, fmt.Errorf("topic %d: %w", i, err)
		}
		if note.SlideNumbers == nil {
			note.SlideNumbers = []int{}
		}
		note.Enrichment.Normalize()
		notes = append(notes, note)
	}
	return notes, nil
}

// Store writes the notes for the file at path and returns its key.
func (c *Cache) Store(path string, notes []slides.TopicNote) (string, error) {
	key, err := KeyFor(path)
	if err != nil {
		return "", err
	}
	return key, c.StoreKey(key, notes)
}

// StoreKey writes the notes under key. The write is atomic and serialised
// across processes by a lock file in the cache directory.
func (c *Cache) StoreKey(key string, notes []slides.TopicNote) error {
	p, err := c.pathFor(key)
	if err != nil {
		return err
	}
	if notes == nil {
		notes = []slides.TopicNote{}
	}
	data, err := json.Marshal(storedDocument{Topics: notes})
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	defer c.lock.Unlock()

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	c.logger.Debug("cached notes", "key", key, "topics", len(notes))
	return nil
}

// List returns the cached documents, newest first.
func (c *Cache) List() ([]Entry, error) {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read cache directory: %w", err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(name, fileExt)
		topics := -1
		if notes, ok := c.LoadKey(key); ok {
			topics = len(notes)
		}
		entries = append(entries, Entry{Key: key, Topics: topics, Size: info.Size(), Modified: info.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Modified.Equal(entries[j].Modified) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].Modified.After(entries[j].Modified)
	})
	return entries, nil
}

// Clear removes every cached document and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cache directory: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.lock.Lock(); err != nil {
		return 0, fmt.Errorf("acquire cache lock: %w", err)
	}
	defer c.lock.Unlock()

	removed := 0
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed++
	}
	c.logger.Debug("cleared note cache", "removed", removed)
	return removed, nil
}
