package handler

import (
	"net/http"
	"strconv"

	"github.com/HammadCopilot/expense-tracker/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Analytics — /v1/analytics
// ============================================================

func monthlyTrendsHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/monthly-trends")
		defer span.End()

		userID := UserIDFromContext(ctx)
		months := parseRange(r, 6)

		report, err := svc.MonthlyTrends(ctx, userID, months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func categoryBreakdownHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/category-breakdown")
		defer span.End()

		userID := UserIDFromContext(ctx)
		months := parseRange(r, 1)

		report, err := svc.CategoryBreakdown(ctx, userID, months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// parseRange reads the ?range=N month count; malformed or non-positive
// values fall back to the route's default.
func parseRange(r *http.Request, fallback int) int {
	v := r.URL.Query().Get("range")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
