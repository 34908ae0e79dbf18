//go:build integration

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
)

func TestStore_Postgres(t *testing.T) {
	ctx := context.Background()

	pgC, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("analytics"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := Open(ctx, dsn, "sink")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Now()
	require.NoError(t, s.Record(ctx, &domain.Visit{LinkID: "a", CreatedAt: now}))
	require.NoError(t, s.Record(ctx, &domain.Visit{LinkID: "a", CreatedAt: now}))
	require.NoError(t, s.Record(ctx, &domain.Visit{LinkID: "b", SampleInterval: 4, CreatedAt: now}))

	n, err := s.CountFor(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	counts, err := s.Counts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"a": 2, "b": 4}, counts)
}
