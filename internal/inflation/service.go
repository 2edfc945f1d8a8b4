package inflation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigecon/sigecon/internal/shared"
)

const (
	cacheKey = "inflation:indices"
	cacheTTL = 15 * time.Minute
)

// Service serves the index series with a Redis read-through cache. The
// full series is small (one row per month) so it is cached as a single
// map and invalidated wholesale on writes.
type Service struct {
	repo   Repository
	cache  *redis.Client
	logger *slog.Logger
}

// NewService builds the inflation service. cache may be nil, in which
// case every read hits PostgreSQL.
func NewService(repo Repository, cache *redis.Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Indices returns the full series keyed by period. Implements the
// fixed-assets index source.
func (s *Service) Indices(ctx context.Context) (map[string]float64, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var out map[string]float64
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("index cache read failed", slog.Any("error", err))
		}
	}

	indices, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(indices))
	for _, idx := range indices {
		out[idx.Period] = idx.Value
	}
	s.fillCache(ctx, out)
	return out, nil
}

// List returns the stored series in period order.
func (s *Service) List(ctx context.Context) ([]Index, error) {
	return s.repo.List(ctx)
}

// SetIndex upserts one monthly observation and drops the cache.
func (s *Service) SetIndex(ctx context.Context, period string, value float64) (Index, error) {
	if _, _, err := shared.ParsePeriodKey(period); err != nil {
		return Index{}, err
	}
	if value <= 0 {
		return Index{}, ErrInvalidIndex
	}
	if err := s.repo.Upsert(ctx, Index{Period: period, Value: value}); err != nil {
		return Index{}, err
	}
	s.dropCache(ctx)
	return s.repo.Get(ctx, period)
}

// DeleteIndex removes one observation and drops the cache.
func (s *Service) DeleteIndex(ctx context.Context, period string) error {
	if err := s.repo.Delete(ctx, period); err != nil {
		return err
	}
	s.dropCache(ctx)
	return nil
}

// Coefficient returns closing/origin for two period keys.
func (s *Service) Coefficient(ctx context.Context, origin, closing string) (float64, error) {
	indices, err := s.Indices(ctx)
	if err != nil {
		return 0, err
	}
	from, ok := indices[origin]
	if !ok || from <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrIndexNotFound, origin)
	}
	to, ok := indices[closing]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrIndexNotFound, closing)
	}
	return to / from, nil
}

// Refresh rebuilds the cache from PostgreSQL. Called by the background
// worker so API reads stay warm.
func (s *Service) Refresh(ctx context.Context) error {
	indices, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	out := make(map[string]float64, len(indices))
	for _, idx := range indices {
		out[idx.Period] = idx.Value
	}
	s.fillCache(ctx, out)
	return nil
}

func (s *Service) fillCache(ctx context.Context, indices map[string]float64) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(indices)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil {
		s.logger.Warn("index cache write failed", slog.Any("error", err))
	}
}

func (s *Service) dropCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn("index cache invalidation failed", slog.Any("error", err))
	}
}
