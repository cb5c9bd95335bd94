package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS driver_values (
	address    TEXT    NOT NULL,
	driver     TEXT    NOT NULL,
	value      REAL    NOT NULL,
	integral   INTEGER NOT NULL,
	uom        INTEGER NOT NULL,
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (address, driver)
);`

// SQLiteStore persists driver values with the pure Go modernc.org/sqlite driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// A single connection keeps writes serialized and lets ":memory:" work.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save upserts each value for address in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, address string, values []domain.DriverValue, at time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck // the save error is returned instead
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO driver_values (address, driver, value, integral, uom, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (address, driver) DO UPDATE SET
			value = excluded.value,
			integral = excluded.integral,
			uom = excluded.uom,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	ts := at.UTC().Format(time.RFC3339Nano)
	for _, v := range values {
		if _, err = stmt.ExecContext(ctx, address, v.Driver, v.Value.Float64(), v.Value.IsIntegral(), v.UOM, ts); err != nil {
			return fmt.Errorf("upsert %s: %w", v.Driver, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns every stored record for address in schema order.
func (s *SQLiteStore) Load(ctx context.Context, address string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT driver, value, integral, uom, updated_at FROM driver_values WHERE address = ?`, address)
	if err != nil {
		return nil, fmt.Errorf("query driver values: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r        Record
			value    float64
			integral bool
			ts       string
		)
		if err := rows.Scan(&r.Driver, &value, &integral, &r.UOM, &ts); err != nil {
			return nil, fmt.Errorf("scan driver value: %w", err)
		}
		if integral {
			r.Value = domain.Int(int64(value))
		} else {
			r.Value = domain.Float(value)
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse updated_at for %s: %w", r.Driver, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}

	sortRecords(out)
	return out, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
