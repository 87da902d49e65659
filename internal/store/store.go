// Package store persists framework documents, entries and their attributes
// in SQLite. Framework reads go through an LRU cache of decoded documents;
// callers always receive their own copy.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level var for deterministic timestamps in tests.
var timeNow = time.Now

// ErrNotFound is returned when a framework or entry does not exist.
var ErrNotFound = errors.New("not found")

// ─── Types ───────────────────────────────────────────────────────────────────

// FrameworkSummary is the list view of a stored framework.
type FrameworkSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Sections  int    `json:"sections"`
	Widgets   int    `json:"widgets"`
	Entries   int    `json:"entries"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Entry is one tagged item: the attributes collected against a framework.
type Entry struct {
	ID          string        `json:"id"`
	FrameworkID string        `json:"framework_id"`
	Title       string        `json:"title"`
	Attributes  attribute.Set `json:"attributes"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir   string
	CacheSize int
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:   filepath.Join(home, ".deepframe"),
		CacheSize: 128,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed persistence layer.
type Store struct {
	db    *sql.DB
	cfg   Config
	cache *lru.Cache[string, *widget.Framework]
	hooks storeHooks
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type storeHooks struct {
	exec    func(db execer, query string, args ...any) (sql.Result, error)
	beginTx func(db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(db, query, args...)
	}
	return db.Exec(query, args...)
}

func (s *Store) beginTxHook() (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(s.db)
	}
	return s.db.Begin()
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New creates a Store. It creates the data directory if needed, opens
// SQLite with WAL mode and foreign keys on every connection and runs
// migrations.
func New(cfg Config) (*Store, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "deepframe.db")
	db, err := openDB("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	cache, err := lru.New[string, *widget.Framework](cfg.CacheSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: cache: %w", err)
	}

	s := &Store{db: db, cfg: cfg, cache: cache}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// connPragmas apply to every pooled connection, not only the first one.
var connPragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS frameworks (
			id            TEXT PRIMARY KEY,
			title         TEXT    NOT NULL,
			document      TEXT    NOT NULL,
			section_count INTEGER NOT NULL DEFAULT 0,
			widget_count  INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT    NOT NULL,
			updated_at    TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS entries (
			id           TEXT PRIMARY KEY,
			framework_id TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,
			FOREIGN KEY (framework_id) REFERENCES frameworks(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_entries_framework ON entries(framework_id);

		CREATE TABLE IF NOT EXISTS attributes (
			entry_id    TEXT NOT NULL,
			widget_id   TEXT NOT NULL,
			widget_type TEXT NOT NULL,
			data        TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			PRIMARY KEY (entry_id, widget_id),
			FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE
		);
	`
	_, err := s.execHook(s.db, schema)
	return err
}

// ─── Frameworks ──────────────────────────────────────────────────────────────

// SaveFramework inserts or replaces a framework document.
func (s *Store) SaveFramework(f *widget.Framework) error {
	if f.ID == "" {
		return errors.New("store: framework id is required")
	}
	doc, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("store: encode framework %s: %w", f.ID, err)
	}
	now := Now()
	_, err = s.execHook(s.db,
		`INSERT INTO frameworks (id, title, document, section_count, widget_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   document = excluded.document,
		   section_count = excluded.section_count,
		   widget_count = excluded.widget_count,
		   updated_at = excluded.updated_at`,
		f.ID, f.Title, string(doc), len(f.Sections), len(f.DocumentOrder()), now, now,
	)
	if err != nil {
		return fmt.Errorf("store: save framework %s: %w", f.ID, err)
	}
	s.remember(f)
	return nil
}

// GetFramework loads a framework document.
func (s *Store) GetFramework(id string) (*widget.Framework, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached.Clone()
	}
	var doc string
	err := s.db.QueryRow(`SELECT document FROM frameworks WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("framework %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load framework %s: %w", id, err)
	}
	var f widget.Framework
	if err := json.Unmarshal([]byte(doc), &f); err != nil {
		return nil, fmt.Errorf("store: decode framework %s: %w", id, err)
	}
	s.remember(&f)
	return &f, nil
}

// remember caches a private copy of f.
func (s *Store) remember(f *widget.Framework) {
	if c, err := f.Clone(); err == nil {
		s.cache.Add(f.ID, c)
	}
}

// ListFrameworks returns every stored framework, most recently updated first.
func (s *Store) ListFrameworks() ([]FrameworkSummary, error) {
	rows, err := s.db.Query(`
		SELECT f.id, f.title, f.section_count, f.widget_count, COUNT(e.id), f.created_at, f.updated_at
		FROM frameworks f
		LEFT JOIN entries e ON e.framework_id = f.id
		GROUP BY f.id
		ORDER BY f.updated_at DESC, f.id`)
	if err != nil {
		return nil, fmt.Errorf("store: list frameworks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FrameworkSummary
	for rows.Next() {
		var fs FrameworkSummary
		if err := rows.Scan(&fs.ID, &fs.Title, &fs.Sections, &fs.Widgets, &fs.Entries, &fs.CreatedAt, &fs.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

// DeleteFramework removes a framework with its entries and attributes in one
// transaction.
func (s *Store) DeleteFramework(id string) error {
	tx, err := s.beginTxHook()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.execHook(tx,
		`DELETE FROM attributes WHERE entry_id IN (SELECT id FROM entries WHERE framework_id = ?)`, id,
	); err != nil {
		return fmt.Errorf("store: delete attributes of framework %s: %w", id, err)
	}
	if _, err := s.execHook(tx, `DELETE FROM entries WHERE framework_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete entries of framework %s: %w", id, err)
	}
	res, err := s.execHook(tx, `DELETE FROM frameworks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete framework %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("framework %s: %w", id, ErrNotFound)
	}
	if err := s.commitHook(tx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.cache.Remove(id)
	return nil
}

// ─── Entries ─────────────────────────────────────────────────────────────────

// CreateEntry registers a new, empty entry against a framework.
func (s *Store) CreateEntry(frameworkID, title string) (*Entry, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM frameworks WHERE id = ?`, frameworkID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("store: create entry: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("framework %s: %w", frameworkID, ErrNotFound)
	}
	now := Now()
	e := &Entry{
		ID:          uuid.NewString(),
		FrameworkID: frameworkID,
		Title:       title,
		Attributes:  attribute.Set{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.execHook(s.db,
		`INSERT INTO entries (id, framework_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.FrameworkID, e.Title, e.CreatedAt, e.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("store: create entry: %w", err)
	}
	return e, nil
}

// GetEntry loads an entry with all of its attributes.
func (s *Store) GetEntry(id string) (*Entry, error) {
	var e Entry
	err := s.db.QueryRow(
		`SELECT id, framework_id, title, created_at, updated_at FROM entries WHERE id = ?`, id,
	).Scan(&e.ID, &e.FrameworkID, &e.Title, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load entry %s: %w", id, err)
	}

	rows, err := s.db.Query(`SELECT widget_id, widget_type, data FROM attributes WHERE entry_id = ? ORDER BY widget_id`, id)
	if err != nil {
		return nil, fmt.Errorf("store: load attributes of %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	e.Attributes = attribute.Set{}
	for rows.Next() {
		var widgetID, widgetType, raw string
		if err := rows.Scan(&widgetID, &widgetType, &raw); err != nil {
			return nil, err
		}
		data, err := attribute.DecodeData(widget.Type(widgetType), json.RawMessage(raw))
		if err != nil {
			return nil, fmt.Errorf("store: entry %s widget %s: %w", id, widgetID, err)
		}
		e.Attributes.Put(attribute.Attribute{WidgetID: widgetID, Type: widget.Type(widgetType), Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns the entries of a framework without their attributes.
func (s *Store) ListEntries(frameworkID string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, framework_id, title, created_at, updated_at FROM entries
		 WHERE framework_id = ? ORDER BY created_at, id`, frameworkID)
	if err != nil {
		return nil, fmt.Errorf("store: list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.FrameworkID, &e.Title, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ─── Attributes ──────────────────────────────────────────────────────────────

// PutAttribute stores a on the entry, replacing any previous value. Nil
// data clears the attribute instead.
func (s *Store) PutAttribute(entryID string, a attribute.Attribute) error {
	if a.Data == nil {
		return s.ClearAttribute(entryID, a.WidgetID)
	}
	raw, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("store: encode attribute %s: %w", a.WidgetID, err)
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := Now()
	res, err := s.execHook(tx, `UPDATE entries SET updated_at = ? WHERE id = ?`, now, entryID)
	if err != nil {
		return fmt.Errorf("store: touch entry %s: %w", entryID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	if _, err := s.execHook(tx,
		`INSERT INTO attributes (entry_id, widget_id, widget_type, data, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(entry_id, widget_id) DO UPDATE SET
		   widget_type = excluded.widget_type,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		entryID, a.WidgetID, string(a.Type), string(raw), now,
	); err != nil {
		return fmt.Errorf("store: put attribute %s: %w", a.WidgetID, err)
	}
	if err := s.commitHook(tx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// ClearAttribute removes the attribute for widgetID. Clearing an absent
// attribute is not an error.
func (s *Store) ClearAttribute(entryID, widgetID string) error {
	res, err := s.execHook(s.db, `UPDATE entries SET updated_at = ? WHERE id = ?`, Now(), entryID)
	if err != nil {
		return fmt.Errorf("store: touch entry %s: %w", entryID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	if _, err := s.execHook(s.db,
		`DELETE FROM attributes WHERE entry_id = ? AND widget_id = ?`, entryID, widgetID,
	); err != nil {
		return fmt.Errorf("store: clear attribute %s: %w", widgetID, err)
	}
	return nil
}

// DeleteWidgetAttributes removes, across every entry of a framework, the
// attributes answering any of the given widgets. It returns the number of
// attributes removed.
func (s *Store) DeleteWidgetAttributes(frameworkID string, widgetIDs []string) (int, error) {
	if len(widgetIDs) == 0 {
		return 0, nil
	}
	tx, err := s.beginTxHook()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	removed := 0
	for _, id := range widgetIDs {
		res, err := s.execHook(tx,
			`DELETE FROM attributes
			 WHERE widget_id = ? AND entry_id IN (SELECT id FROM entries WHERE framework_id = ?)`,
			id, frameworkID,
		)
		if err != nil {
			return 0, fmt.Errorf("store: delete attributes of %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	if err := s.commitHook(tx); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return removed, nil
}

// Now returns the current UTC time in the store's timestamp format.
func Now() string {
	return timeNow().UTC().Format(time.RFC3339)
}
