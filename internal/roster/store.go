package roster

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joelkehle/college-assistant/internal/collegesearch"
	_ "modernc.org/sqlite"
)

// Store keeps an imported roster in SQLite and serves it to the resolver. The
// loaded roster is cached until the next Import.
type Store struct {
	db   *sqlx.DB
	path string

	mu     sync.Mutex
	cached *collegesearch.Roster
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS institutions (
	position INTEGER PRIMARY KEY,
	unit_id  TEXT NOT NULL DEFAULT '',
	name     TEXT NOT NULL,
	city     TEXT NOT NULL DEFAULT '',
	state    TEXT NOT NULL DEFAULT '',
	url      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS roster_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`

const (
	metaSource      = "source"
	metaNameColumn  = "name_column"
	metaColumns     = "columns"
	metaImportedAt  = "imported_at"
	storeNameColumn = "name"
)

type institutionRow struct {
	Position int    `db:"position"`
	UnitID   string `db:"unit_id"`
	Name     string `db:"name"`
	City     string `db:"city"`
	State    string `db:"state"`
	URL      string `db:"url"`
}

type Stats struct {
	Source       string    `json:"source" yaml:"source"`
	NameColumn   string    `json:"name_column" yaml:"name_column"`
	Institutions int       `json:"institutions" yaml:"institutions"`
	States       int       `json:"states" yaml:"states"`
	ImportedAt   time.Time `json:"imported_at,omitempty" yaml:"imported_at,omitempty"`
}

func OpenStore(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Import replaces the stored roster with r in one transaction.
func (s *Store) Import(ctx context.Context, r collegesearch.Roster) error {
	if strings.TrimSpace(r.NameColumn) == "" {
		return &collegesearch.SchemaError{Source: r.Source, Column: "<unset>", Have: r.Columns}
	}
	cols, err := json.Marshal(r.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM institutions`); err != nil {
		return fmt.Errorf("clear institutions: %w", err)
	}
	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO institutions (position, unit_id, name, city, state, url)
		VALUES (:position, :unit_id, :name, :city, :state, :url)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, rec := range r.Records {
		row := institutionRow{Position: i, UnitID: rec.UnitID, Name: rec.Name, City: rec.City, State: rec.State, URL: rec.URL}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("insert %q: %w", rec.Name, err)
		}
	}

	meta := map[string]string{
		metaSource:     r.Source,
		metaNameColumn: r.NameColumn,
		metaColumns:    string(cols),
		metaImportedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO roster_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("write meta %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	s.cached = nil
	return nil
}

// LoadRoster returns the stored roster. A database whose institutions table
// lacks the name column is a *SchemaError; a store that was never imported
// yields an empty roster.
func (s *Store) LoadRoster(ctx context.Context) (collegesearch.Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}

	var tableCols []string
	if err := s.db.SelectContext(ctx, &tableCols, `SELECT name FROM pragma_table_info('institutions')`); err != nil {
		return collegesearch.Roster{}, fmt.Errorf("%w: inspect roster table: %v", collegesearch.ErrDataUnavailable, err)
	}
	if !containsColumn(tableCols, storeNameColumn) {
		return collegesearch.Roster{}, &collegesearch.SchemaError{Source: s.path, Column: storeNameColumn, Have: tableCols}
	}

	meta, err := s.meta(ctx)
	if err != nil {
		return collegesearch.Roster{}, err
	}
	out := collegesearch.Roster{
		Source:     meta[metaSource],
		NameColumn: meta[metaNameColumn],
		Records:    []collegesearch.InstitutionRecord{},
	}
	if out.Source == "" {
		out.Source = s.path
	}
	if out.NameColumn == "" {
		out.NameColumn = DefaultColumns.Name
	}
	if raw := meta[metaColumns]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &out.Columns); err != nil {
			return collegesearch.Roster{}, fmt.Errorf("decode roster columns: %w", err)
		}
	}

	var rows []institutionRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT position, unit_id, name, city, state, url FROM institutions ORDER BY position`); err != nil {
		return collegesearch.Roster{}, fmt.Errorf("%w: load institutions: %v", collegesearch.ErrDataUnavailable, err)
	}
	for _, row := range rows {
		out.Records = append(out.Records, collegesearch.InstitutionRecord{
			UnitID: row.UnitID,
			Name:   row.Name,
			City:   row.City,
			State:  row.State,
			URL:    row.URL,
			Source: collegesearch.SourceRoster,
		})
	}
	if len(out.Records) > 0 {
		s.cached = &out
	}
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	meta, err := s.meta(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Source: meta[metaSource], NameColumn: meta[metaNameColumn]}
	if ts := meta[metaImportedAt]; ts != "" {
		st.ImportedAt, _ = time.Parse(time.RFC3339, ts)
	}
	if err := s.db.GetContext(ctx, &st.Institutions, `SELECT COUNT(*) FROM institutions`); err != nil {
		return Stats{}, fmt.Errorf("count institutions: %w", err)
	}
	if err := s.db.GetContext(ctx, &st.States, `SELECT COUNT(DISTINCT state) FROM institutions WHERE state <> ''`); err != nil {
		return Stats{}, fmt.Errorf("count states: %w", err)
	}
	return st, nil
}

func (s *Store) meta(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	err := s.db.SelectContext(ctx, &rows, `SELECT key, value FROM roster_meta`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load roster meta: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func containsColumn(cols []string, want string) bool {
	for _, c := range cols {
		if strings.EqualFold(c, want) {
			return true
		}
	}
	return false
}
