package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var analyticsTracer = otel.Tracer("service/analytics")

// defaultBreakdownColor is used for categories without a color of their own.
const defaultBreakdownColor = "#8884d8"

// AnalyticsService computes spending aggregates. All money arithmetic is
// exact decimal; floats appear only in the final percentage figures.
type AnalyticsService struct {
	expenses   port.ExpenseStore
	categories port.CategoryStore
	logger     *zap.Logger
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(expenses port.ExpenseStore, categories port.CategoryStore, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{expenses: expenses, categories: categories, logger: logger}
}

// ============================================================
// Monthly trends — GET /v1/analytics/monthly-trends
// ============================================================

// MonthlyTrends returns per-month totals for a window of the given number
// of months ending with the current month. Months with no spending are
// omitted.
func (s *AnalyticsService) MonthlyTrends(ctx context.Context, userID string, months int) (*domain.TrendsReport, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.MonthlyTrends")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("months", months),
	)

	if months < 1 {
		months = 1
	}
	start, end := monthWindow(time.Now().UTC(), months)
	records, err := s.expenses.ListExpensesInRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expenses in range: %w", err)
	}

	return &domain.TrendsReport{
		Trends:    aggregateTrends(records),
		Range:     months,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// ============================================================
// Category breakdown — GET /v1/analytics/category-breakdown
// ============================================================

// CategoryBreakdown returns per-category totals, shares and the grand
// total for a window of the given number of months ending with the
// current month.
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID string, months int) (*domain.BreakdownReport, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.CategoryBreakdown")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("months", months),
	)

	if months < 1 {
		months = 1
	}
	start, end := monthWindow(time.Now().UTC(), months)
	records, err := s.expenses.ListExpensesInRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expenses in range: %w", err)
	}

	ids := make([]string, 0, len(records))
	seen := map[string]bool{}
	for _, e := range records {
		if !seen[e.CategoryID] {
			seen[e.CategoryID] = true
			ids = append(ids, e.CategoryID)
		}
	}

	cats := map[string]domain.Category{}
	if len(ids) > 0 {
		cats, err = s.categories.GetCategoriesByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("get categories: %w", err)
		}
	}

	return &domain.BreakdownReport{
		CategoryBreakdown: *aggregateBreakdown(records, cats),
		Range:             months,
		StartDate:         start,
		EndDate:           end,
	}, nil
}

// ============================================================
// Pure aggregation helpers
// ============================================================

// monthWindow returns the closed interval covering the given number of
// calendar months ending with the month of now. months is clamped to a
// minimum of one.
func monthWindow(now time.Time, months int) (start, end time.Time) {
	if months < 1 {
		months = 1
	}
	year, month, _ := now.Date()
	start = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	end = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// aggregateTrends groups records by calendar month ("YYYY-MM") and
// returns the groups sorted ascending by month key.
func aggregateTrends(records []domain.Expense) []domain.MonthlyTrend {
	totals := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for _, e := range records {
		key := e.ExpenseDate.UTC().Format("2006-01")
		totals[key] = totals[key].Add(e.Amount)
		counts[key]++
	}

	trends := make([]domain.MonthlyTrend, 0, len(totals))
	for key, total := range totals {
		trends = append(trends, domain.MonthlyTrend{
			Month: key,
			Total: total,
			Count: counts[key],
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Month < trends[j].Month })
	return trends
}

// aggregateBreakdown groups records by category in first-seen order,
// then sorts descending by total. The sort is stable, so categories with
// equal totals keep their discovery order.
func aggregateBreakdown(records []domain.Expense, cats map[string]domain.Category) *domain.CategoryBreakdown {
	var order []string
	totals := map[string]decimal.Decimal{}
	counts := map[string]int{}
	grand := decimal.Zero

	for _, e := range records {
		if _, ok := totals[e.CategoryID]; !ok {
			order = append(order, e.CategoryID)
		}
		totals[e.CategoryID] = totals[e.CategoryID].Add(e.Amount)
		counts[e.CategoryID]++
		grand = grand.Add(e.Amount)
	}

	items := make([]domain.CategoryBreakdownItem, 0, len(order))
	for _, id := range order {
		name := "Unknown"
		color := defaultBreakdownColor
		if cat, ok := cats[id]; ok {
			name = cat.Name
			if cat.Color != "" {
				color = cat.Color
			}
		}

		pct := 0.0
		if grand.IsPositive() {
			pct, _ = totals[id].Div(grand).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		}

		items = append(items, domain.CategoryBreakdownItem{
			CategoryID:   id,
			CategoryName: name,
			Total:        totals[id],
			Count:        counts[id],
			Color:        color,
			Percentage:   pct,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Total.GreaterThan(items[j].Total)
	})

	return &domain.CategoryBreakdown{
		Breakdown: items,
		Total:     grand,
		Count:     len(records),
	}
}
