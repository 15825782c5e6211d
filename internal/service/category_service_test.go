package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/infra/cache"
	"github.com/HammadCopilot/expense-tracker/internal/infra/observability"
	"github.com/HammadCopilot/expense-tracker/internal/service"

	"go.uber.org/zap"
)

func TestListCategories_CachesPerUser(t *testing.T) {
	store := newMockCategoryStore()
	store.categories["cat-1"] = domain.Category{ID: "cat-1", UserID: "user-1", Name: "Food"}
	svc := service.NewCategoryService(store, cache.New[[]domain.Category](time.Minute), observability.NewMetrics(), zap.NewNop())

	first, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 category, got %d", len(first))
	}

	// Second read is served from cache.
	if _, err := svc.List(context.Background(), "user-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if store.listCalls != 1 {
		t.Errorf("expected 1 store read, got %d", store.listCalls)
	}

	// A different user misses the cache.
	if _, err := svc.List(context.Background(), "user-2"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if store.listCalls != 2 {
		t.Errorf("expected 2 store reads, got %d", store.listCalls)
	}
}

func TestListCategories_InvalidateForcesReload(t *testing.T) {
	store := newMockCategoryStore()
	svc := service.NewCategoryService(store, cache.New[[]domain.Category](time.Minute), observability.NewMetrics(), zap.NewNop())

	if _, err := svc.List(context.Background(), "user-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	svc.Invalidate("user-1")
	if _, err := svc.List(context.Background(), "user-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if store.listCalls != 2 {
		t.Errorf("expected reload after invalidation, got %d store reads", store.listCalls)
	}
}
