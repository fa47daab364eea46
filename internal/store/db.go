// Package store persists bookmarks, settings, recent paths and search
// history in a SQLite database served by a single worker goroutine.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/justyntemme/chex/internal/debug"
)

const (
	// MaxRecent is the number of recent paths kept.
	MaxRecent = 10
	// MaxSearchHistory is the number of past queries kept.
	MaxSearchHistory = 50
)

var ErrClosed = errors.New("store: closed")

type EventType int

const (
	FetchBookmarks EventType = iota
	AddBookmark
	RemoveBookmark
	FetchSettings
	SaveSetting
	AddRecent
	FetchRecent
	AddSearchHistory
	FetchSearchHistory
)

func (e EventType) String() string {
	switch e {
	case FetchBookmarks:
		return "FetchBookmarks"
	case AddBookmark:
		return "AddBookmark"
	case RemoveBookmark:
		return "RemoveBookmark"
	case FetchSettings:
		return "FetchSettings"
	case SaveSetting:
		return "SaveSetting"
	case AddRecent:
		return "AddRecent"
	case FetchRecent:
		return "FetchRecent"
	case AddSearchHistory:
		return "AddSearchHistory"
	case FetchSearchHistory:
		return "FetchSearchHistory"
	}
	return fmt.Sprintf("EventType(%d)", int(e))
}

type Request struct {
	Op    EventType
	Path  string
	Key   string
	Value string
	Query string // search history text
	Root  string // search history root

	// Reply receives the response when set; otherwise it goes to ResponseChan.
	Reply chan<- Response
}

// SearchEntry is one remembered search.
type SearchEntry struct {
	Query string
	Root  string
}

type Response struct {
	Op        EventType
	Bookmarks []string          // oldest first
	Recent    []string          // most recent first
	Searches  []SearchEntry     // most recent first
	Settings  map[string]string // key-value settings
	Err       error
}

type DB struct {
	conn         *sql.DB
	RequestChan  chan Request
	ResponseChan chan Response
}

func NewDB() *DB {
	return &DB{
		RequestChan:  make(chan Request, 10),
		ResponseChan: make(chan Response, 10),
	}
}

// DefaultPath returns the database location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chex", "chex.db"), nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookmarks (
		path TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recent (
		path TEXT PRIMARY KEY,
		seq INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		root TEXT NOT NULL
	)`,
}

// Open initializes the database connection and schema
func (d *DB) Open(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	// One connection keeps the worker's statements strictly ordered.
	db.SetMaxOpenConns(1)

	// WAL lets other processes read while we write; NORMAL is safe against
	// application crashes.
	pragmas := []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;"}
	for _, stmt := range append(pragmas, schema...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("store: init %s: %w", dbPath, err)
		}
	}

	d.conn = db
	debug.Log(debug.STORE, "opened %s", dbPath)
	return nil
}

// Start serves requests until RequestChan is closed.
func (d *DB) Start() {
	for req := range d.RequestChan {
		resp := d.handle(req)
		if resp.Err != nil {
			debug.Warn(debug.STORE, "%s failed: %v", req.Op, resp.Err)
		}
		if req.Reply != nil {
			req.Reply <- resp
		} else {
			d.ResponseChan <- resp
		}
	}
}

// Call sends req and waits for its response.
func (d *DB) Call(ctx context.Context, req Request) (Response, error) {
	reply := make(chan Response, 1)
	req.Reply = reply
	select {
	case d.RequestChan <- req:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case resp := <-reply:
		return resp, resp.Err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func (d *DB) handle(req Request) Response {
	if d.conn == nil {
		return Response{Op: req.Op, Err: ErrClosed}
	}
	debug.Log(debug.STORE, "%s path=%q key=%q", req.Op, req.Path, req.Key)

	switch req.Op {
	case FetchBookmarks:
		return d.fetchBookmarks()
	case AddBookmark:
		// INSERT OR IGNORE keeps the original position of a duplicate.
		if _, err := d.conn.Exec("INSERT OR IGNORE INTO bookmarks (path) VALUES (?)", req.Path); err != nil {
			return Response{Op: req.Op, Err: err}
		}
		return d.fetchBookmarks()
	case RemoveBookmark:
		if _, err := d.conn.Exec("DELETE FROM bookmarks WHERE path = ?", req.Path); err != nil {
			return Response{Op: req.Op, Err: err}
		}
		return d.fetchBookmarks()
	case FetchSettings:
		return d.fetchSettings()
	case SaveSetting:
		if _, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", req.Key, req.Value); err != nil {
			return Response{Op: req.Op, Err: err}
		}
		return d.fetchSettings()
	case AddRecent:
		if err := d.addRecent(req.Path); err != nil {
			return Response{Op: req.Op, Err: err}
		}
		return d.fetchRecent()
	case FetchRecent:
		return d.fetchRecent()
	case AddSearchHistory:
		if err := d.addSearch(req.Query, req.Root); err != nil {
			return Response{Op: req.Op, Err: err}
		}
		return d.fetchSearches()
	case FetchSearchHistory:
		return d.fetchSearches()
	}
	return Response{Op: req.Op, Err: fmt.Errorf("store: unknown op %s", req.Op)}
}

func (d *DB) fetchBookmarks() Response {
	paths, err := d.queryStrings("SELECT path FROM bookmarks ORDER BY created_at ASC, rowid ASC")
	return Response{Op: FetchBookmarks, Bookmarks: paths, Err: err}
}

func (d *DB) fetchRecent() Response {
	paths, err := d.queryStrings("SELECT path FROM recent ORDER BY seq DESC")
	return Response{Op: FetchRecent, Recent: paths, Err: err}
}

func (d *DB) queryStrings(query string) ([]string, error) {
	rows, err := d.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) fetchSettings() Response {
	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		return Response{Op: FetchSettings, Err: err}
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Response{Op: FetchSettings, Err: err}
		}
		settings[key] = value
	}
	return Response{Op: FetchSettings, Settings: settings, Err: rows.Err()}
}

// addRecent moves path to the front and trims the list to MaxRecent.
func (d *DB) addRecent(path string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO recent (path, seq)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM recent))
		ON CONFLICT(path) DO UPDATE SET seq = excluded.seq`, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM recent WHERE path NOT IN
		(SELECT path FROM recent ORDER BY seq DESC LIMIT ?)`, MaxRecent); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) addSearch(query, root string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO search_history (query, root) VALUES (?, ?)", query, root); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM search_history WHERE id NOT IN
		(SELECT id FROM search_history ORDER BY id DESC LIMIT ?)`, MaxSearchHistory); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) fetchSearches() Response {
	rows, err := d.conn.Query("SELECT query, root FROM search_history ORDER BY id DESC")
	if err != nil {
		return Response{Op: FetchSearchHistory, Err: err}
	}
	defer rows.Close()

	var out []SearchEntry
	for rows.Next() {
		var e SearchEntry
		if err := rows.Scan(&e.Query, &e.Root); err != nil {
			return Response{Op: FetchSearchHistory, Err: err}
		}
		out = append(out, e)
	}
	return Response{Op: FetchSearchHistory, Searches: out, Err: rows.Err()}
}

func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
