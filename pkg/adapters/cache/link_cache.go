package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/allegro/bigcache"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

// LinkCache is a read-through cache in front of a LinkStore. Only hits are
// cached. Each entry remembers when it was filled so the per-call TTL hint
// decides freshness; bigcache's LifeWindow only bounds memory.
type LinkCache struct {
	next  ports.LinkStore
	cache *bigcache.BigCache
	now   func() time.Time
}

// NewLinkCache wraps next. maxTTL is the longest TTL any caller will ask for.
func NewLinkCache(next ports.LinkStore, maxTTL time.Duration) (*LinkCache, error) {
	if maxTTL < time.Second {
		maxTTL = time.Second
	}

	config := bigcache.Config{
		Shards:             256,
		LifeWindow:         maxTTL,
		CleanWindow:        maxTTL,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       1024,
		HardMaxCacheSize:   64,
		Verbose:            false,
	}

	bc, err := bigcache.NewBigCache(config)
	if err != nil {
		return nil, err
	}

	return &LinkCache{next: next, cache: bc, now: time.Now}, nil
}

func (c *LinkCache) Get(ctx context.Context, key string, cacheTTL time.Duration) (*domain.Link, error) {
	if cacheTTL > 0 {
		if link, ok := c.lookup(key, cacheTTL); ok {
			return link, nil
		}
	}

	link, err := c.next.Get(ctx, key, cacheTTL)
	if err != nil || link == nil {
		return link, err
	}

	if cacheTTL > 0 {
		c.fill(key, link)
	}

	return link, nil
}

// Put writes through and evicts the cached copy.
func (c *LinkCache) Put(ctx context.Context, key string, link *domain.Link) error {
	if err := c.next.Put(ctx, key, link); err != nil {
		return err
	}
	c.Evict(key)
	return nil
}

// Delete removes the record and evicts the cached copy.
func (c *LinkCache) Delete(ctx context.Context, key string) error {
	if err := c.next.Delete(ctx, key); err != nil {
		return err
	}
	c.Evict(key)
	return nil
}

func (c *LinkCache) Evict(key string) {
	_ = c.cache.Delete(key) // missing entries are fine
}

// Close stops the cache's background cleaner. It does not close next.
func (c *LinkCache) Close() error {
	return c.cache.Close()
}

func (c *LinkCache) lookup(key string, ttl time.Duration) (*domain.Link, bool) {
	data, err := c.cache.Get(key)
	if err != nil || len(data) < 8 {
		return nil, false
	}

	filled := time.Unix(0, int64(binary.BigEndian.Uint64(data[:8])))
	if c.now().Sub(filled) >= ttl {
		return nil, false
	}

	var link domain.Link
	if err := json.Unmarshal(data[8:], &link); err != nil {
		return nil, false
	}

	return &link, true
}

func (c *LinkCache) fill(key string, link *domain.Link) {
	body, err := json.Marshal(link)
	if err != nil {
		return
	}

	entry := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint64(entry, uint64(c.now().UnixNano()))
	entry = append(entry, body...)

	_ = c.cache.Set(key, entry)
}

var _ ports.LinkStore = (*LinkCache)(nil)
