package analytics

import (
	"context"
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(context.Background(), "file:"+name+"?mode=memory&cache=shared", "sink")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		dsn    string
		driver string
		ph     sq.PlaceholderFormat
	}{
		{"postgres://u:p@localhost:5432/db", "pgx", sq.Dollar},
		{"postgresql://u:p@localhost/db", "pgx", sq.Dollar},
		{"libsql://analytics.turso.io", "libsql", sq.Question},
		{"file:db.sqlite", "sqlite", sq.Question},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			driver, ph := driverFor(tt.dsn)
			require.Equal(t, tt.driver, driver)
			require.Equal(t, tt.ph, ph)
		})
	}
}

func TestStore_RecordAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	for range 3 {
		require.NoError(t, s.Record(ctx, &domain.Visit{LinkID: "a", Slug: "alpha", CreatedAt: now}))
	}
	require.NoError(t, s.Record(ctx, &domain.Visit{LinkID: "b", Slug: "beta", SampleInterval: 10, CreatedAt: now}))

	n, err := s.CountFor(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	n, err = s.CountFor(ctx, "nobody")
	require.NoError(t, err)
	require.Zero(t, n)

	counts, err := s.Counts(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"a": 3, "b": 10}, counts)
}

func TestStore_RecordAssignsID(t *testing.T) {
	s := newTestStore(t)

	v := &domain.Visit{LinkID: "a", CreatedAt: time.Now()}
	require.NoError(t, s.Record(context.Background(), v))
	require.NotEmpty(t, v.ID)
	require.Equal(t, int64(1), v.SampleInterval)
}

func TestStore_CountsEmptyIDs(t *testing.T) {
	s := newTestStore(t)

	counts, err := s.Counts(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, counts)
}
