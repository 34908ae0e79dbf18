package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

type LinkServiceConfig struct {
	CaseSensitive bool
	PreviewMode   bool
}

type LinkService struct {
	cfg     LinkServiceConfig
	repo    ports.LinkStore
	counter ports.ClickCounter
	logger  *slog.Logger
}

func NewLinkService(cfg LinkServiceConfig, repo ports.LinkStore, counter ports.ClickCounter, logger *slog.Logger) *LinkService {
	return &LinkService{cfg: cfg, repo: repo, counter: counter, logger: logger}
}

// VerifyPassword returns the destination of a protected link when password
// matches exactly.
func (s *LinkService) VerifyPassword(ctx context.Context, slug, password string) (string, error) {
	if slug == "" || password == "" {
		return "", domain.ErrMissingFields
	}

	link, err := lookupLink(ctx, s.repo, slug, s.cfg.CaseSensitive, 0)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if link == nil {
		return "", domain.ErrNotFound
	}

	if !passwordMatches(link.Password, password) {
		return "", domain.ErrIncorrectPassword
	}

	return link.URL, nil
}

// passwordMatches compares in constant time. Stored values that look like
// bcrypt hashes are checked as hashes.
func passwordMatches(stored, supplied string) bool {
	if stored == "" {
		return false
	}

	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

func isBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// ClickCounts never fails; counter errors yield an empty map.
func (s *LinkService) ClickCounts(ctx context.Context, ids []string) map[string]int64 {
	var clean []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}

	if len(clean) == 0 || s.counter == nil {
		return map[string]int64{}
	}

	counts, err := s.counter.Counts(ctx, clean)
	if err != nil {
		s.logger.WarnContext(ctx, "click counts failed", "ids", len(clean), "err", err)
		return map[string]int64{}
	}

	return counts
}

// BulkDelete removes each slug's record. The store evicts cached copies.
// A nil slice means the request carried no slug list.
func (s *LinkService) BulkDelete(ctx context.Context, slugs []string) error {
	if s.cfg.PreviewMode {
		return domain.ErrPreviewMode
	}

	if slugs == nil {
		return domain.ErrInvalidRequest
	}

	var errs []error
	for _, slug := range slugs {
		if slug == "" {
			continue
		}
		if err := s.repo.Delete(ctx, domain.LinkKey(slug)); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("bulk delete: %w", err)
	}
	return nil
}

// Save writes link under its canonical key.
func (s *LinkService) Save(ctx context.Context, link *domain.Link) error {
	if link.Slug == "" {
		return domain.ErrInvalidRequest
	}
	return s.repo.Put(ctx, CanonicalKey(link.Slug, s.cfg.CaseSensitive), link)
}

var _ ports.LinkService = (*LinkService)(nil)
