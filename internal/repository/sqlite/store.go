package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jaakkos/statusboard/internal/app"
	"github.com/jaakkos/statusboard/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS updates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id TEXT NOT NULL,
	element TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	text TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// indexes for the history and retention queries
const indexes = `
CREATE INDEX IF NOT EXISTS idx_updates_element_id ON updates(element, id);
`

const schemaVersion = "1"

// Store implements app.Journal using SQLite.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database at path (creating parent dirs and schema).
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// Single connection: the fetches of a cycle append concurrently.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	if _, err := db.Exec(indexes); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite indexes: %w", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO meta(key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite meta: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection. Call on shutdown for clean exit.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Append implements app.Journal.
func (s *Store) Append(u domain.Update) (int64, error) {
	if u.RecordedAt.IsZero() {
		u.RecordedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO updates(cycle_id, element, endpoint, text, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		u.CycleID, u.Element, u.Endpoint, u.Text, u.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("append update: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append update: %w", err)
	}
	return id, nil
}

// Since implements app.JournalReader.
func (s *Store) Since(afterID int64, limit int) ([]domain.Update, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, cycle_id, element, endpoint, text, recorded_at FROM updates WHERE id > ? ORDER BY id ASC LIMIT ?`,
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	return scanUpdates(rows)
}

// Recent implements app.JournalReader.
func (s *Store) Recent(element string, limit int) ([]domain.Update, error) {
	if limit <= 0 {
		limit = -1
	}
	var (
		rows *sql.Rows
		err  error
	)
	if element == "" {
		rows, err = s.db.Query(
			`SELECT id, cycle_id, element, endpoint, text, recorded_at FROM updates ORDER BY id DESC LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT id, cycle_id, element, endpoint, text, recorded_at FROM updates WHERE element = ? ORDER BY id DESC LIMIT ?`,
			element, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	return scanUpdates(rows)
}

// Prune implements app.Journal. It keeps the newest maxPerElement rows of
// each element and returns how many rows were deleted.
func (s *Store) Prune(maxPerElement int) (int64, error) {
	if maxPerElement <= 0 {
		return 0, nil
	}
	res, err := s.db.Exec(`
DELETE FROM updates WHERE id IN (
	SELECT id FROM (
		SELECT id, ROW_NUMBER() OVER (PARTITION BY element ORDER BY id DESC) AS rn FROM updates
	) WHERE rn > ?
)`, maxPerElement)
	if err != nil {
		return 0, fmt.Errorf("prune updates: %w", err)
	}
	return res.RowsAffected()
}

// LatestID returns the highest recorded ID, or 0 for an empty journal.
func (s *Store) LatestID() (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(id) FROM updates`).Scan(&id); err != nil {
		return 0, fmt.Errorf("latest id: %w", err)
	}
	return id.Int64, nil
}

func scanUpdates(rows *sql.Rows) ([]domain.Update, error) {
	defer rows.Close()
	var out []domain.Update
	for rows.Next() {
		var (
			u  domain.Update
			at string
		)
		if err := rows.Scan(&u.ID, &u.CycleID, &u.Element, &u.Endpoint, &u.Text, &at); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		t, err := parseTime(at, fmt.Sprintf("update %d", u.ID))
		if err != nil {
			return nil, err
		}
		u.RecordedAt = t
		out = append(out, u)
	}
	return out, rows.Err()
}

// parseTime parses RFC3339Nano or returns zero time and error.
func parseTime(s, context string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: parse timestamp %q: %w", context, s, err)
	}
	return t, nil
}

var _ app.Journal = (*Store)(nil)
