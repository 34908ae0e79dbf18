package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                                // Local SQLite driver

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

// SQLiteRepository is the link key-value store. Values are the JSON encoding
// of domain.Link.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// DriverFor picks the database/sql driver for a connection URL.
func DriverFor(dbURL string) string {
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		return "libsql"
	}
	return "sqlite"
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	db, err := sql.Open(DriverFor(dbURL), dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

// Get ignores cacheTTL; caching is layered on top by the cache adapter.
func (r *SQLiteRepository) Get(ctx context.Context, key string, _ time.Duration) (*domain.Link, error) {
	var raw string

	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var link domain.Link
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	return &link, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, key string, link *domain.Link) error {
	value, err := json.Marshal(link)
	if err != nil {
		return err
	}

	query := `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			  ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, key, string(value), r.now().Unix()); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete is a no-op for absent keys.
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Dump returns every link record ordered by key. Used for export.
func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM kv WHERE key LIKE 'link:%' ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}

		var link domain.Link
		if err := json.Unmarshal([]byte(raw), &link); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

var _ ports.LinkStore = (*SQLiteRepository)(nil)
