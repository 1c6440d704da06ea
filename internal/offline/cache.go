// Package offline caches API and asset responses on disk so the client keeps
// working when the network is unavailable.
//
// A single cache generation is live at a time, named after the configured
// cache version. Activate removes every other generation.
package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const namePrefix = "bookcraft-"

// CacheName is the generation name for version.
func CacheName(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "v1"
	}
	return namePrefix + version
}

// Entry is one stored response.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

type Generation struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
}

type Stats struct {
	Path        string       `json:"path"`
	Active      string       `json:"active"`
	Generations []Generation `json:"generations"`
}

type Cache struct {
	db   *sql.DB
	path string
	name string
	now  func() time.Time
}

// Open opens (creating if needed) the cache database at path, serving the
// generation for version.
func Open(ctx context.Context, path, version string) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("offline: missing cache path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite registers as "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS responses (
		cache_name TEXT NOT NULL,
		url TEXT NOT NULL,
		status INTEGER NOT NULL,
		header_json TEXT NOT NULL,
		body BLOB NOT NULL,
		stored_at_unixms INTEGER NOT NULL,
		PRIMARY KEY(cache_name, url)
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db, path: path, name: CacheName(version), now: time.Now}, nil
}

func (c *Cache) Name() string { return c.name }
func (c *Cache) Path() string { return c.path }

// Activate deletes every generation except the live one and reports how many
// entries were removed.
func (c *Cache) Activate(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM responses WHERE cache_name <> ?`, c.name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool, error) {
	var (
		status     int
		headerJSON string
		body       []byte
		storedAt   int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT status, header_json, body, stored_at_unixms FROM responses WHERE cache_name = ? AND url = ?`,
		c.name, key,
	).Scan(&status, &headerJSON, &body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	h := http.Header{}
	if headerJSON != "" {
		if err := json.Unmarshal([]byte(headerJSON), &h); err != nil {
			return nil, false, fmt.Errorf("offline: corrupt header for %s: %w", key, err)
		}
	}
	return &Entry{Status: status, Header: h, Body: body, StoredAt: time.UnixMilli(storedAt)}, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, e *Entry) error {
	if e == nil {
		return errors.New("offline: nil entry")
	}
	hb, err := json.Marshal(e.Header)
	if err != nil {
		return err
	}
	stored := e.StoredAt
	if stored.IsZero() {
		stored = c.now()
	}
	body := e.Body
	if body == nil {
		body = []byte{}
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO responses(cache_name, url, status, header_json, body, stored_at_unixms)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_name, url) DO UPDATE SET
			status = excluded.status,
			header_json = excluded.header_json,
			body = excluded.body,
			stored_at_unixms = excluded.stored_at_unixms`,
		c.name, key, e.Status, string(hb), body, stored.UnixMilli(),
	)
	return err
}

// Purge removes every stored response of every generation.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM responses`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Path: c.path, Active: c.name, Generations: []Generation{}}
	rows, err := c.db.QueryContext(ctx,
		`SELECT cache_name, COUNT(*), COALESCE(SUM(LENGTH(body)), 0) FROM responses GROUP BY cache_name ORDER BY cache_name`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.Name, &g.Entries, &g.Bytes); err != nil {
			return st, err
		}
		st.Generations = append(st.Generations, g)
	}
	return st, rows.Err()
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
