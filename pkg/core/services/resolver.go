package services

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

const (
	ExpiredPath         = "/expired"
	ProtectedPathPrefix = "/protected/"
)

var botUserAgent = regexp.MustCompile(`(?i)bot|crawl|spider|slurp|facebookexternalhit|embedly|whatsapp|curl|wget`)

type ResolverConfig struct {
	SlugPattern         *regexp.Regexp
	ReservedSlugs       []string
	HomeURL             string
	CacheTTL            time.Duration
	CaseSensitive       bool
	RedirectWithQuery   bool
	RedirectStatus      int
	DisableBotAccessLog bool
}

type Outcome int

const (
	// PassThrough leaves the request to downstream handlers.
	PassThrough Outcome = iota
	Redirect
	Page
)

// Degradation records an upstream failure the resolver absorbed.
type Degradation struct {
	Upstream string
	Err      error
}

const (
	UpstreamLinkStore    = "link_store"
	UpstreamClickCounter = "click_counter"
	UpstreamAccessLog    = "access_log"
	UpstreamPreview      = "preview"
)

// Resolution is the directive produced for one request.
type Resolution struct {
	Outcome  Outcome
	Status   int
	Location string
	Body     []byte
	Link     *domain.Link
	Degraded []Degradation
}

func (r *Resolution) degrade(upstream string, err error) {
	r.Degraded = append(r.Degraded, Degradation{Upstream: upstream, Err: err})
}

// ResolveRequest carries what the resolver reads from an inbound request.
type ResolveRequest struct {
	Path  string
	Query url.Values
	Meta  domain.RequestMeta
}

// attempt is the result of a call whose failure must not change the outcome.
type attempt[T any] struct {
	value T
	err   error
}

type Resolver struct {
	cfg      ResolverConfig
	reserved map[string]struct{}
	store    ports.LinkStore
	counter  ports.ClickCounter
	access   ports.AccessLogger
	logger   *slog.Logger
	now      func() time.Time
}

func NewResolver(cfg ResolverConfig, store ports.LinkStore, counter ports.ClickCounter, access ports.AccessLogger, logger *slog.Logger) *Resolver {
	if cfg.RedirectStatus == 0 {
		cfg.RedirectStatus = http.StatusMovedPermanently
	}

	reserved := make(map[string]struct{}, len(cfg.ReservedSlugs))
	for _, s := range cfg.ReservedSlugs {
		reserved[s] = struct{}{}
	}

	return &Resolver{
		cfg:      cfg,
		reserved: reserved,
		store:    store,
		counter:  counter,
		access:   access,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) Resolution {
	if req.Path == "/" && r.cfg.HomeURL != "" {
		return Resolution{Outcome: Redirect, Status: http.StatusFound, Location: r.cfg.HomeURL}
	}

	slug, ok := r.candidateSlug(req.Path)
	if !ok {
		return Resolution{Outcome: PassThrough}
	}

	var res Resolution

	found := r.lookup(ctx, slug)
	if found.err != nil {
		r.logger.WarnContext(ctx, "link lookup failed", "slug", slug, "err", found.err)
		res.degrade(UpstreamLinkStore, found.err)
	}

	link := found.value
	if link == nil {
		res.Outcome = PassThrough
		return res
	}
	res.Link = link

	if link.Expired(r.now()) {
		return res.redirect(http.StatusFound, ExpiredPath)
	}

	if limit, ok := link.ClickLimit(); ok {
		clicks := r.countClicks(ctx, link)
		if clicks.err != nil {
			r.logger.WarnContext(ctx, "click count failed", "slug", slug, "link_id", link.ID, "err", clicks.err)
			res.degrade(UpstreamClickCounter, clicks.err)
		} else if clicks.value >= limit {
			return res.redirect(http.StatusFound, ExpiredPath)
		}
	}

	if link.Protected() {
		return res.redirect(http.StatusFound, ProtectedPathPrefix+slug)
	}

	target := r.enrich(link, req.Query)

	if logged := r.recordAccess(ctx, link, slug, target, req.Meta); logged.err != nil {
		r.logger.WarnContext(ctx, "access log failed", "slug", slug, "link_id", link.ID, "err", logged.err)
		res.degrade(UpstreamAccessLog, logged.err)
	}

	if link.HasOpenGraph() {
		body, err := renderPreview(link, target)
		if err == nil {
			res.Outcome = Page
			res.Status = http.StatusOK
			res.Body = body
			return res
		}
		r.logger.ErrorContext(ctx, "render preview failed", "slug", slug, "err", err)
		res.degrade(UpstreamPreview, err)
	}

	return res.redirect(r.cfg.RedirectStatus, target)
}

func (r *Resolution) redirect(status int, location string) Resolution {
	r.Outcome = Redirect
	r.Status = status
	r.Location = location
	return *r
}

func (r *Resolver) candidateSlug(path string) (string, bool) {
	slug := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
	if slug == "" {
		return "", false
	}

	if _, reserved := r.reserved[slug]; reserved {
		return "", false
	}

	if r.cfg.SlugPattern != nil && !r.cfg.SlugPattern.MatchString(slug) {
		return "", false
	}

	return slug, true
}

func (r *Resolver) lookup(ctx context.Context, slug string) attempt[*domain.Link] {
	link, err := lookupLink(ctx, r.store, slug, r.cfg.CaseSensitive, r.cfg.CacheTTL)
	return attempt[*domain.Link]{value: link, err: err}
}

func (r *Resolver) countClicks(ctx context.Context, link *domain.Link) attempt[int64] {
	if r.counter == nil {
		return attempt[int64]{}
	}
	n, err := r.counter.CountFor(ctx, link.ID)
	return attempt[int64]{value: n, err: err}
}

func (r *Resolver) recordAccess(ctx context.Context, link *domain.Link, slug, target string, meta domain.RequestMeta) attempt[struct{}] {
	if r.access == nil {
		return attempt[struct{}]{}
	}

	if r.cfg.DisableBotAccessLog && botUserAgent.MatchString(meta.UserAgent) {
		return attempt[struct{}]{}
	}

	err := r.access.Record(ctx, &domain.Visit{
		LinkID:         link.ID,
		Slug:           slug,
		URL:            target,
		IP:             meta.IP,
		UserAgent:      meta.UserAgent,
		Referer:        meta.Referer,
		Language:       meta.Language,
		SampleInterval: 1,
		CreatedAt:      r.now(),
	})
	return attempt[struct{}]{err: err}
}

// enrich appends utm_* fields, then the request query when forwarding is
// enabled, so request parameters overwrite UTM parameters of the same name.
// Pairs already in the destination keep their order and encoding unless a
// new parameter replaces them.
func (r *Resolver) enrich(link *domain.Link, query url.Values) string {
	utm := link.UTMParams()
	forward := r.cfg.RedirectWithQuery && len(query) > 0

	if len(utm) == 0 && !forward {
		return link.URL
	}

	u, err := url.Parse(link.URL)
	if err != nil {
		return link.URL
	}

	var added []queryPair
	for _, k := range domain.UTMKeys {
		if v, ok := utm[k]; ok && !(forward && query.Has(k)) {
			added = append(added, queryPair{key: k, values: []string{v}})
		}
	}
	if forward {
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			added = append(added, queryPair{key: k, values: query[k]})
		}
	}

	u.RawQuery = appendQuery(u.RawQuery, added)

	return u.String()
}

type queryPair struct {
	key    string
	values []string
}

// appendQuery drops the raw pairs whose key is replaced and appends the new
// pairs in order.
func appendQuery(raw string, added []queryPair) string {
	replaced := make(map[string]struct{}, len(added))
	for _, p := range added {
		replaced[p.key] = struct{}{}
	}

	var parts []string
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		name, _, _ := strings.Cut(seg, "=")
		if key, err := url.QueryUnescape(name); err == nil {
			name = key
		}
		if _, ok := replaced[name]; ok {
			continue
		}
		parts = append(parts, seg)
	}

	for _, p := range added {
		for _, v := range p.values {
			parts = append(parts, url.QueryEscape(p.key)+"="+url.QueryEscape(v))
		}
	}

	return strings.Join(parts, "&")
}
