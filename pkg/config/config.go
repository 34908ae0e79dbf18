package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultSlugPattern = `(?i)^[a-z0-9]+(?:-[a-z0-9]+)*$`
	DefaultDataset     = "sink"

	defaultRedirectStatusCode = 301
	defaultLinkCacheTTL       = 60 * time.Second

	defaultHTTPReadTimeout     = 5 * time.Second
	defaultHTTPWriteTimeout    = 10 * time.Second
	defaultHTTPShutdownTimeout = 5 * time.Second
)

var datasetPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config struct {
	Port         string
	AppEnv       string
	BaseURL      string
	DatabaseURL  string
	AnalyticsURL string
	Dataset      string

	// SiteToken is not validated here. A missing or short token is reported
	// per request by the auth gate.
	SiteToken string

	RedirectStatusCode  int
	LinkCacheTTL        time.Duration
	RedirectWithQuery   bool
	HomeURL             string
	CaseSensitive       bool
	SlugPattern         *regexp.Regexp
	ReservedSlugs       []string
	PreviewMode         bool
	DisableBotAccessLog bool

	APICORS            bool
	CORSAllowedOrigins []string

	RateLimitRedisURL string

	SentryDSN string
	LogFile   string
	LogLevel  string

	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		AppEnv:            getEnv("APP_ENV", "local"),
		BaseURL:           strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		DatabaseURL:       getEnv("DATABASE_URL", "file:db.sqlite"),
		Dataset:           getEnv("DATASET", DefaultDataset),
		SiteToken:         getEnv("SITE_TOKEN", ""),
		HomeURL:           getEnv("HOME_URL", ""),
		ReservedSlugs:     splitList(getEnv("RESERVED_SLUGS", "admin,dashboard")),
		RateLimitRedisURL: getEnv("RATE_LIMIT_REDIS_URL", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LogFile:           getEnv("LOG_FILE", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	cfg.AnalyticsURL = getEnv("ANALYTICS_URL", cfg.DatabaseURL)
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", ""))

	if !datasetPattern.MatchString(cfg.Dataset) {
		return nil, fmt.Errorf("%w: DATASET=%q", ErrInvalidDataset, cfg.Dataset)
	}

	if err := loadRedirect(cfg); err != nil {
		return nil, err
	}

	if err := loadFlags(cfg); err != nil {
		return nil, err
	}

	if err := loadHTTPServer(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadRedirect(cfg *Config) error {
	code, err := parseIntEnv("REDIRECT_STATUS_CODE", defaultRedirectStatusCode)
	if err != nil {
		return err
	}

	switch code {
	case 301, 302, 307, 308:
	default:
		return fmt.Errorf("%w: REDIRECT_STATUS_CODE=%d", ErrInvalidStatusCode, code)
	}

	cfg.RedirectStatusCode = code

	seconds, err := parseIntEnv("LINK_CACHE_TTL", int(defaultLinkCacheTTL/time.Second))
	if err != nil {
		return err
	}

	if seconds < 0 {
		return fmt.Errorf("%w: LINK_CACHE_TTL=%d", ErrInvalidInt, seconds)
	}

	cfg.LinkCacheTTL = time.Duration(seconds) * time.Second

	raw := getEnv("SLUG_PATTERN", DefaultSlugPattern)

	pattern, err := regexp.Compile(raw)
	if err != nil {
		return fmt.Errorf("%w: SLUG_PATTERN=%q: %v", ErrInvalidSlugPattern, raw, err)
	}

	cfg.SlugPattern = pattern

	return nil
}

func loadFlags(cfg *Config) error {
	specs := []struct {
		key string
		dst *bool
	}{
		{"REDIRECT_WITH_QUERY", &cfg.RedirectWithQuery},
		{"CASE_SENSITIVE", &cfg.CaseSensitive},
		{"PREVIEW_MODE", &cfg.PreviewMode},
		{"DISABLE_BOT_ACCESS_LOG", &cfg.DisableBotAccessLog},
		{"API_CORS", &cfg.APICORS},
	}

	for _, s := range specs {
		v, err := parseBoolEnv(s.key, false)
		if err != nil {
			return err
		}

		*s.dst = v
	}

	return nil
}

func loadHTTPServer(cfg *Config) error {
	specs := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"HTTP_READ_TIMEOUT", defaultHTTPReadTimeout, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", defaultHTTPWriteTimeout, &cfg.HTTPWriteTimeout},
		{"HTTP_SHUTDOWN_TIMEOUT", defaultHTTPShutdownTimeout, &cfg.HTTPShutdownTimeout},
	}

	for _, s := range specs {
		d, err := parseDurationEnv(s.key, s.def)
		if err != nil {
			return err
		}

		if d <= 0 {
			return fmt.Errorf("%w: %s=%s", ErrInvalidDuration, s.key, d)
		}

		*s.dst = d
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string

	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// typed parsers

func parseIntEnv(key string, def int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidInt, key, raw)
	}

	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidBool, key, raw)
	}

	return b, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return def, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, raw)
	}

	return d, nil
}
