package services

import (
	"context"
	"strings"
	"time"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

// CanonicalKey is the key a writer should store a slug under.
func CanonicalKey(slug string, caseSensitive bool) string {
	if caseSensitive {
		return domain.LinkKey(slug)
	}
	return domain.LinkKey(strings.ToLower(slug))
}

// lookupKeys lists the keys tried for slug, in order. With case-insensitive
// matching the lowercase key is retried and then the exact key, for records
// persisted with their original casing.
func lookupKeys(slug string, caseSensitive bool) []string {
	keys := []string{CanonicalKey(slug, caseSensitive)}

	lower := strings.ToLower(slug)
	if !caseSensitive && lower != slug {
		keys = append(keys, domain.LinkKey(lower), domain.LinkKey(slug))
	}

	return keys
}

// lookupLink walks lookupKeys and returns the first record found. A store
// error stops the walk.
func lookupLink(ctx context.Context, store ports.LinkStore, slug string, caseSensitive bool, ttl time.Duration) (*domain.Link, error) {
	for _, key := range lookupKeys(slug, caseSensitive) {
		link, err := store.Get(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if link != nil {
			return link, nil
		}
	}
	return nil, nil
}
