package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
)

// LinkStore is the key-value store holding link records under "link:<slug>".
// Get returns (nil, nil) when the key is absent. cacheTTL is a hint for
// read-through caches; zero asks for an uncached read.
type LinkStore interface {
	Get(ctx context.Context, key string, cacheTTL time.Duration) (*domain.Link, error)
	Put(ctx context.Context, key string, link *domain.Link) error
	Delete(ctx context.Context, key string) error
}

// ClickCounter reads aggregated click counts from the analytics dataset.
type ClickCounter interface {
	CountFor(ctx context.Context, linkID string) (int64, error)
	Counts(ctx context.Context, linkIDs []string) (map[string]int64, error)
}

// AccessLogger records one access event per successful resolution.
type AccessLogger interface {
	Record(ctx context.Context, visit *domain.Visit) error
}

// LinkService defines the operations behind the link API.
type LinkService interface {
	VerifyPassword(ctx context.Context, slug, password string) (string, error)
	ClickCounts(ctx context.Context, ids []string) map[string]int64
	BulkDelete(ctx context.Context, slugs []string) error
}
