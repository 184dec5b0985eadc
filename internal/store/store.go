// Package store persists the session (results, cart, groups) in SQLite so
// curation survives restarts.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/session"
	"github.com/abelbrown/rankscrape/internal/target"
)

// Collection names for the two fixed lists. Groups live under groupPrefix.
const (
	Results = "results"
	Cart    = "cart"

	groupPrefix = "group:"
)

// Store handles SQLite persistence. Concrete type, not an interface.
// Safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a Store at dbPath, creating tables if needed. ":memory:"
// opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Named so every pooled connection sees the same database, and
		// unique so two stores in one process do not share it.
		connStr = fmt.Sprintf("file:rankscrape-%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL -- unix nanoseconds
	);

	CREATE TABLE IF NOT EXISTS items (
		collection TEXT NOT NULL,
		hash TEXT NOT NULL,
		position INTEGER NOT NULL,
		thumbnail TEXT,
		title TEXT NOT NULL,
		views TEXT,
		views_numeric INTEGER NOT NULL DEFAULT 0,
		channel TEXT,
		chart_date INTEGER, -- period key, NULL when unknown
		subscribers TEXT,
		subscribers_numeric INTEGER NOT NULL DEFAULT -1,
		video_id TEXT,
		url TEXT,
		PRIMARY KEY (collection, hash)
	);

	CREATE INDEX IF NOT EXISTS idx_items_position ON items(collection, position);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Replace overwrites a collection's contents, keeping item order.
func (s *Store) Replace(name string, items []model.Item, created time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceTx(tx, name, items, created); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceTx(tx *sql.Tx, name string, items []model.Item, created time.Time) error {
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := tx.Exec(`INSERT INTO collections (name, created_at) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING`, name, created.UnixNano()); err != nil {
		return fmt.Errorf("upsert collection %s: %w", name, err)
	}
	if _, err := tx.Exec("DELETE FROM items WHERE collection = ?", name); err != nil {
		return fmt.Errorf("clear collection %s: %w", name, err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO items (collection, hash, position, thumbnail, title, views, views_numeric,
			channel, chart_date, subscribers, subscribers_numeric, video_id, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		var day sql.NullInt64
		if !it.Date.IsZero() {
			day = sql.NullInt64{Int64: target.PeriodKey(it.Date), Valid: true}
		}
		if _, err := stmt.Exec(name, it.Hash, i, it.Thumbnail, it.Title, it.Views, it.ViewsNumeric,
			it.Channel, day, it.Subscribers, it.SubscribersNumeric, it.VideoID, it.URL); err != nil {
			return fmt.Errorf("insert %s/%s: %w", name, it.Hash, err)
		}
	}
	return nil
}

// Load returns a collection's items in stored order. Unknown names yield nil.
func (s *Store) Load(name string) ([]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryItems(`
		SELECT hash, thumbnail, title, views, views_numeric, channel, chart_date,
			subscribers, subscribers_numeric, video_id, url
		FROM items WHERE collection = ? ORDER BY position`, name)
}

// Delete removes a collection and its items.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM items WHERE collection = ?", name); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM collections WHERE name = ?", name); err != nil {
		return err
	}
	return tx.Commit()
}

// Names lists collections in creation order.
func (s *Store) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT name FROM collections ORDER BY created_at, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// SaveSession writes the whole session in one transaction. Groups missing
// from sess are removed.
func (s *Store) SaveSession(sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceTx(tx, Results, sess.Results.Items(), time.Time{}); err != nil {
		return err
	}
	if err := replaceTx(tx, Cart, sess.Cart.Items(), time.Time{}); err != nil {
		return err
	}

	keep := map[string]bool{}
	for _, g := range sess.Groups() {
		keep[groupPrefix+g.Name] = true
		if err := replaceTx(tx, groupPrefix+g.Name, g.Items, g.Created); err != nil {
			return err
		}
	}

	rows, err := tx.Query("SELECT name FROM collections WHERE name LIKE ?", groupPrefix+"%")
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return err
		}
		if !keep[n] {
			stale = append(stale, n)
		}
	}
	rows.Close()
	for _, n := range stale {
		if _, err := tx.Exec("DELETE FROM items WHERE collection = ?", n); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM collections WHERE name = ?", n); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadSession rebuilds a session from storage.
func (s *Store) LoadSession() (*session.Session, error) {
	sess := session.New()

	results, err := s.Load(Results)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	sess.MergeRun(results)

	cart, err := s.Load(Cart)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	sess.Cart.Merge(cart)

	s.mu.RLock()
	rows, err := s.db.Query("SELECT name, created_at FROM collections WHERE name LIKE ? ORDER BY created_at, name", groupPrefix+"%")
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	type meta struct {
		name    string
		created int64
	}
	var groups []meta
	for rows.Next() {
		var m meta
		if err := rows.Scan(&m.name, &m.created); err != nil {
			rows.Close()
			s.mu.RUnlock()
			return nil, err
		}
		groups = append(groups, m)
	}
	rows.Close()
	s.mu.RUnlock()

	for _, m := range groups {
		items, err := s.Load(m.name)
		if err != nil {
			return nil, fmt.Errorf("load group %s: %w", m.name, err)
		}
		sess.RestoreGroup(session.Group{
			Name:    strings.TrimPrefix(m.name, groupPrefix),
			Items:   items,
			Created: time.Unix(0, m.created),
		})
	}
	return sess, nil
}

// queryItems scans item rows. Caller must hold s.mu.
func (s *Store) queryItems(query string, args ...any) ([]model.Item, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var it model.Item
		var thumb, views, channel, subs, videoID, url sql.NullString
		var day sql.NullInt64
		if err := rows.Scan(&it.Hash, &thumb, &it.Title, &views, &it.ViewsNumeric, &channel, &day,
			&subs, &it.SubscribersNumeric, &videoID, &url); err != nil {
			return nil, err
		}
		it.Thumbnail, it.Views, it.Channel = thumb.String, views.String, channel.String
		it.Subscribers, it.VideoID, it.URL = subs.String, videoID.String, url.String
		if day.Valid {
			it.Date = target.FromPeriodKey(day.Int64)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
