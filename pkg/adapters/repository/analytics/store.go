package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"                    // Postgres driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                                // Local SQLite driver

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

// Store is the analytics dataset: one row per access event in a table named
// after the dataset. It serves both click counting and access logging.
type Store struct {
	db      *sql.DB
	dataset string
	ph      sq.PlaceholderFormat
}

func driverFor(dsn string) (string, sq.PlaceholderFormat) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", sq.Dollar
	case strings.Contains(dsn, "libsql://"), strings.Contains(dsn, "wss://"):
		return "libsql", sq.Question
	default:
		return "sqlite", sq.Question
	}
}

// Open connects to dsn and creates the dataset table if needed. dataset must
// already be validated as a plain identifier.
func Open(ctx context.Context, dsn, dataset string) (*Store, error) {
	driver, ph := driverFor(dsn)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("analytics: open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("analytics: ping: %w", err)
	}

	s := &Store{db: db, dataset: dataset, ph: ph}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.dataset + ` (
			id TEXT PRIMARY KEY,
			link_id TEXT NOT NULL,
			slug TEXT,
			url TEXT,
			ip TEXT,
			user_agent TEXT,
			referer TEXT,
			language TEXT,
			sample_interval INTEGER NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + s.dataset + `_link_id ON ` + s.dataset + ` (link_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("analytics: migrate: %w", err)
		}
	}

	return nil
}

// Record writes one access event.
func (s *Store) Record(ctx context.Context, v *domain.Visit) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	if v.SampleInterval <= 0 {
		v.SampleInterval = 1
	}

	query, args, err := sq.Insert(s.dataset).
		Columns("id", "link_id", "slug", "url", "ip", "user_agent", "referer", "language", "sample_interval", "created_at").
		Values(v.ID, v.LinkID, v.Slug, v.URL, v.IP, v.UserAgent, v.Referer, v.Language, v.SampleInterval, v.CreatedAt.UnixMilli()).
		PlaceholderFormat(s.ph).
		ToSql()
	if err != nil {
		return fmt.Errorf("analytics: build record: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("analytics: record: %w", err)
	}

	return nil
}

// CountFor returns the sampled click total for one link.
func (s *Store) CountFor(ctx context.Context, linkID string) (int64, error) {
	query, args, err := sq.Select("CAST(COALESCE(SUM(sample_interval), 0) AS BIGINT)").
		From(s.dataset).
		Where(sq.Eq{"link_id": linkID}).
		PlaceholderFormat(s.ph).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("analytics: build count: %w", err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("analytics: count: %w", err)
	}

	return n, nil
}

// Counts returns sampled click totals grouped by link id. Links without any
// events are absent from the result.
func (s *Store) Counts(ctx context.Context, linkIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(linkIDs))
	if len(linkIDs) == 0 {
		return out, nil
	}

	query, args, err := sq.Select("link_id", "CAST(SUM(sample_interval) AS BIGINT)").
		From(s.dataset).
		Where(sq.Eq{"link_id": linkIDs}).
		GroupBy("link_id").
		PlaceholderFormat(s.ph).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("analytics: build counts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			id string
			n  int64
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("analytics: counts: %w", err)
		}
		out[id] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: counts: %w", err)
	}

	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

var (
	_ ports.ClickCounter = (*Store)(nil)
	_ ports.AccessLogger = (*Store)(nil)
)
