// Package refdata serves the code tables that user accounts reference:
// timezones, locales and security roles.
package refdata

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"tranquility/internal/platform/metrics"
	"tranquility/internal/storage"
	dErrors "tranquility/pkg/domain-errors"
)

const defaultTTL = 15 * time.Minute

type Timezone struct {
	Code            string `json:"code"`
	Description     string `json:"description"`
	DaylightSavings bool   `json:"daylightSavings"`
	Ordering        int64  `json:"ordering"`
}

type Locale struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Ordering    int64  `json:"ordering"`
}

type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Ordering    int64  `json:"ordering"`
}

// Option configures a Service.
type Option func(*Service)

func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service reads code tables through a cache.
type Service struct {
	exec    storage.Executor
	cache   Cache
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Service. Without WithCache every lookup reads the store.
func New(exec storage.Executor, opts ...Option) *Service {
	s := &Service{
		exec:   exec,
		cache:  NopCache{},
		ttl:    defaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Timezones(ctx context.Context) ([]Timezone, error) {
	return cached(ctx, s, "timezones", func(ctx context.Context) ([]Timezone, error) {
		rows, err := s.exec.Select(ctx,
			`SELECT code, description, daylight_savings, ordering FROM cd_timezones ORDER BY ordering, code`)
		if err != nil {
			return nil, err
		}
		out := make([]Timezone, 0, len(rows))
		for _, r := range rows {
			out = append(out, Timezone{
				Code:            str(r["code"]),
				Description:     str(r["description"]),
				DaylightSavings: boolean(r["daylight_savings"]),
				Ordering:        integer(r["ordering"]),
			})
		}
		return out, nil
	})
}

func (s *Service) Locales(ctx context.Context) ([]Locale, error) {
	return cached(ctx, s, "locales", func(ctx context.Context) ([]Locale, error) {
		rows, err := s.exec.Select(ctx, `SELECT code, description, ordering FROM cd_locales ORDER BY ordering, code`)
		if err != nil {
			return nil, err
		}
		out := make([]Locale, 0, len(rows))
		for _, r := range rows {
			out = append(out, Locale{
				Code:        str(r["code"]),
				Description: str(r["description"]),
				Ordering:    integer(r["ordering"]),
			})
		}
		return out, nil
	})
}

func (s *Service) SecurityRoles(ctx context.Context) ([]Role, error) {
	return cached(ctx, s, "roles", func(ctx context.Context) ([]Role, error) {
		rows, err := s.exec.Select(ctx, `SELECT id, name, description, ordering FROM sys_acl_roles ORDER BY ordering, id`)
		if err != nil {
			return nil, err
		}
		out := make([]Role, 0, len(rows))
		for _, r := range rows {
			out = append(out, Role{
				ID:          integer(r["id"]),
				Name:        str(r["name"]),
				Description: str(r["description"]),
				Ordering:    integer(r["ordering"]),
			})
		}
		return out, nil
	})
}

func (s *Service) IsValidTimezone(ctx context.Context, code string) (bool, error) {
	zones, err := s.Timezones(ctx)
	if err != nil {
		return false, err
	}
	for _, z := range zones {
		if z.Code == code {
			return true, nil
		}
	}
	return false, nil
}

// IsValidLocale compares canonical BCP 47 forms, so "en_au" matches "en-AU".
func (s *Service) IsValidLocale(ctx context.Context, code string) (bool, error) {
	want, ok := CanonicalLocale(code)
	if !ok {
		return false, nil
	}
	locales, err := s.Locales(ctx)
	if err != nil {
		return false, err
	}
	for _, l := range locales {
		if got, ok := CanonicalLocale(l.Code); ok && got == want {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) IsValidSecurityRole(ctx context.Context, id int64) (bool, error) {
	roles, err := s.SecurityRoles(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// CanonicalLocale parses a locale code leniently and returns its BCP 47 form.
func CanonicalLocale(code string) (string, bool) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return "", false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	return tag.String(), true
}

func cached[T any](ctx context.Context, s *Service, kind string, load func(context.Context) ([]T, error)) ([]T, error) {
	key := cacheKey(kind)
	var out []T
	hit, err := s.cache.Get(ctx, key, &out)
	if err != nil {
		s.logger.WarnContext(ctx, "refdata cache read failed", "kind", kind, "error", err)
	}
	if hit {
		s.metrics.IncrementRefDataCache("hit")
		return out, nil
	}
	s.metrics.IncrementRefDataCache("miss")

	v, err, _ := s.group.Do(key, func() (any, error) {
		rows, err := load(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "load "+kind)
		}
		if err := s.cache.Set(ctx, key, rows, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "refdata cache write failed", "kind", kind, "error", err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func cacheKey(kind string) string {
	return "tranquility:refdata:" + kind
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func integer(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	default:
		return false
	}
}
