package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sma-adp-admin/internal/dashboard"
	"github.com/noah-isme/sma-adp-admin/internal/models"
)

type studentLister interface {
	List(ctx context.Context, q models.StudentQuery) (*models.StudentPage, error)
}

// StudentQueryService serves listing pages through the query cache.
type StudentQueryService struct {
	upstream studentLister
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
	group    singleflight.Group
}

// NewStudentQueryService constructs the listing service. cache may be nil.
func NewStudentQueryService(upstream studentLister, cache *CacheService, ttl time.Duration, logger *zap.Logger) *StudentQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentQueryService{upstream: upstream, cache: cache, ttl: ttl, logger: logger}
}

// List returns the page for key and whether it came from the cache.
// Concurrent misses for the same key share one upstream call.
func (s *StudentQueryService) List(ctx context.Context, key dashboard.QueryKey) (*models.StudentPage, bool, error) {
	cacheKey := key.String()

	var cached models.StudentPage
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	// Every waiter shares this call; one caller's cancel must not end it.
	shared := context.WithoutCancel(ctx)
	result, err, _ := s.group.Do(cacheKey, func() (interface{}, error) {
		page, err := s.upstream.List(shared, key.Query())
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(shared, cacheKey, page, s.ttl); err != nil {
			s.logger.Debug("listing not cached", zap.String("key", cacheKey), zap.Error(err))
		}
		return page, nil
	})
	if err != nil {
		return nil, false, err
	}
	return result.(*models.StudentPage), false, nil
}

// Invalidate drops every cached listing page.
func (s *StudentQueryService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, dashboard.CacheKeyPrefix+":*")
}
