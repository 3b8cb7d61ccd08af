package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
)

// ErrUnknownSource is returned for an adapter id absent from import_sources.
var ErrUnknownSource = errors.New("source not found in import_sources")

// Source represents a row from the import_sources table.
type Source struct {
	AdapterID   string  `json:"adapter_id"`
	DatasetID   string  `json:"dataset_id"`
	Description string  `json:"description"`
	SourceURL   string  `json:"source_url"`
	License     string  `json:"license"`
	LastCheck   *int64  `json:"last_check,omitempty"`
	LastStatus  *int    `json:"last_status,omitempty"`
	LastError   *string `json:"last_error,omitempty"`
	UpdatedAt   int64   `json:"updated_at"`
}

// SourceDB manages the import_sources table, in SQLite or Postgres.
type SourceDB struct {
	db     *sql.DB
	driver string
}

const sourcesDDL = `CREATE TABLE IF NOT EXISTS import_sources (
	adapter_id   TEXT PRIMARY KEY,
	dataset_id   TEXT NOT NULL,
	description  TEXT NOT NULL,
	source_url   TEXT NOT NULL,
	license      TEXT NOT NULL DEFAULT '',
	last_check   BIGINT,
	last_status  INTEGER,
	last_error   TEXT,
	updated_at   BIGINT NOT NULL
)`

// OpenSourceDB opens (or creates) the source database and ensures the
// import_sources table exists. A bare path is a SQLite file.
func OpenSourceDB(path string) (*SourceDB, error) {
	return OpenSourceDBDriver(gazetteer.DriverSQLite, path)
}

// OpenSourceDBDriver is OpenSourceDB for an explicit driver and DSN.
func OpenSourceDBDriver(driver, dsn string) (*SourceDB, error) {
	db, err := gazetteer.OpenDB(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}
	if _, err := db.Exec(sourcesDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create import_sources table: %w", err)
	}
	return &SourceDB{db: db, driver: driver}, nil
}

// Close closes the database.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

func (s *SourceDB) q(query string) string {
	return gazetteer.Rebind(s.driver, query)
}

// Seed inserts default rows for each adapter. Existing rows are left
// untouched so that manual URL overrides survive restarts.
func (s *SourceDB) Seed(ctx context.Context, adapters []Adapter) error {
	q := s.q(`INSERT INTO import_sources
		(adapter_id, dataset_id, description, source_url, license, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (adapter_id) DO NOTHING`)

	now := time.Now().Unix()
	for _, a := range adapters {
		if _, err := s.db.ExecContext(ctx, q, a.ID(), a.DatasetID(), a.Description(), a.DefaultURL(), a.License(), now); err != nil {
			return fmt.Errorf("seed %s: %w", a.ID(), err)
		}
	}
	return nil
}

// GetURL returns the current source URL for a given adapter ID.
func (s *SourceDB) GetURL(ctx context.Context, adapterID string) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT source_url FROM import_sources WHERE adapter_id = ?`), adapterID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get url for %s: %w", adapterID, ErrUnknownSource)
	}
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", adapterID, err)
	}
	return url, nil
}

// SetURL updates the source URL of an adapter and records the change time.
func (s *SourceDB) SetURL(ctx context.Context, adapterID, url string) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE import_sources SET source_url = ?, updated_at = ? WHERE adapter_id = ?`),
		url, time.Now().Unix(), adapterID,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", adapterID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("set url for %s: %w", adapterID, ErrUnknownSource)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *SourceDB) UpdateCheck(ctx context.Context, adapterID string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.ExecContext(ctx,
		s.q(`UPDATE import_sources SET last_check = ?, last_status = ?, last_error = ? WHERE adapter_id = ?`),
		time.Now().Unix(), status, errPtr, adapterID,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", adapterID, err)
	}
	return nil
}

// ListSources returns all rows ordered by adapter_id.
func (s *SourceDB) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT adapter_id, dataset_id, description, source_url, license,
		last_check, last_status, last_error, updated_at
		FROM import_sources ORDER BY adapter_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.AdapterID, &src.DatasetID, &src.Description, &src.SourceURL,
			&src.License, &src.LastCheck, &src.LastStatus, &src.LastError, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
