package service

import (
	"context"
	"fmt"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/infra/observability"
	"github.com/HammadCopilot/expense-tracker/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var categoryTracer = otel.Tracer("service/categories")

// CategoryService serves the per-user category list. Listings are cached
// with a short TTL since categories change rarely (only at signup in the
// current API surface).
type CategoryService struct {
	store   port.CategoryStore
	cache   port.Cache[[]domain.Category]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(store port.CategoryStore, cache port.Cache[[]domain.Category], metrics *observability.Metrics, logger *zap.Logger) *CategoryService {
	return &CategoryService{store: store, cache: cache, metrics: metrics, logger: logger}
}

// List returns the user's categories, the seeded defaults first, each
// group sorted by name.
func (s *CategoryService) List(ctx context.Context, userID string) ([]domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.List")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if cached, ok := s.cache.Get(userID); ok {
		s.metrics.IncrCacheHit("categories")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("categories")

	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		s.metrics.IncrExternalError("supabase")
		return nil, fmt.Errorf("list categories: %w", err)
	}

	s.cache.Set(userID, cats)
	return cats, nil
}

// Invalidate drops the cached listing for a user. Called after signup
// seeds the default set.
func (s *CategoryService) Invalidate(userID string) {
	s.cache.Delete(userID)
}
