package gazetteer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS place_words (
		token TEXT PRIMARY KEY,
		ids   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS places (
		id                  INTEGER PRIMARY KEY,
		name                TEXT NOT NULL,
		alt_names           TEXT NOT NULL DEFAULT '',
		types               TEXT NOT NULL DEFAULT '',
		located_in_id       INTEGER NOT NULL DEFAULT 0,
		also_located_in_ids TEXT NOT NULL DEFAULT '',
		level               INTEGER NOT NULL,
		country             INTEGER NOT NULL,
		latitude            DOUBLE PRECISION,
		longitude           DOUBLE PRECISION
	)`,
}

// OpenDB opens a gazetteer database. SQLite paths get WAL and a busy
// timeout; Postgres gets a bounded connection pool.
func OpenDB(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverPostgres {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
	}
	return db, nil
}

// EnsureSchema creates the place_words and places tables if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// SQLIndex serves lookups from the place_words and places tables.
type SQLIndex struct {
	db     *sql.DB
	driver string
}

// NewSQLIndex wraps an open database. The caller owns db.
func NewSQLIndex(db *sql.DB, driver string) *SQLIndex {
	return &SQLIndex{db: db, driver: driver}
}

// LookupWord implements Index.
func (s *SQLIndex) LookupWord(ctx context.Context, token string) ([]int, error) {
	var ids string
	err := s.db.QueryRowContext(ctx, Rebind(s.driver, `SELECT ids FROM place_words WHERE token = ?`), token).Scan(&ids)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup word %q: %w", token, err)
	}
	return parseIDs(ids)
}

// Place implements Index.
func (s *SQLIndex) Place(ctx context.Context, id int) (*Place, error) {
	const q = `SELECT id, name, alt_names, types, located_in_id, also_located_in_ids,
		level, country, latitude, longitude FROM places WHERE id = ?`

	var (
		p              Place
		alt, typ, also string
		lat, lon       sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, Rebind(s.driver, q), id).Scan(
		&p.ID, &p.Name, &alt, &typ, &p.LocatedInID, &also, &p.Level, &p.Country, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrPlaceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get place %d: %w", id, err)
	}
	p.AltNames = splitList(alt)
	p.Types = splitList(typ)
	if p.AlsoLocatedInIDs, err = parseIDs(also); err != nil {
		return nil, fmt.Errorf("place %d: %w", id, err)
	}
	p.Latitude = lat.Float64
	p.Longitude = lon.Float64
	return &p, nil
}

// WriteSQL replaces the contents of the gazetteer tables with idx, in a
// single transaction.
func WriteSQL(ctx context.Context, db *sql.DB, driver string, idx *MemoryIndex) error {
	if err := EnsureSchema(ctx, db); err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"place_words", "places"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	wordStmt, err := tx.PrepareContext(ctx, Rebind(driver, `INSERT INTO place_words (token, ids) VALUES (?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare place_words: %w", err)
	}
	defer wordStmt.Close()
	for _, token := range idx.sortedTokens() {
		if _, err := wordStmt.ExecContext(ctx, token, joinIDs(idx.Words[token])); err != nil {
			return fmt.Errorf("insert word %q: %w", token, err)
		}
	}

	placeStmt, err := tx.PrepareContext(ctx, Rebind(driver, `INSERT INTO places
		(id, name, alt_names, types, located_in_id, also_located_in_ids, level, country, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare places: %w", err)
	}
	defer placeStmt.Close()
	for _, id := range idx.sortedIDs() {
		p := idx.Places[id]
		if _, err := placeStmt.ExecContext(ctx, p.ID, p.Name,
			strings.Join(p.AltNames, ","), strings.Join(p.Types, ","),
			p.LocatedInID, joinIDs(p.AlsoLocatedInIDs), p.Level, p.Country,
			nullFloat(p.Latitude), nullFloat(p.Longitude)); err != nil {
			return fmt.Errorf("insert place %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

// Rebind rewrites ? placeholders to $1, $2, ... for Postgres.
func Rebind(driver, q string) string {
	if driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
