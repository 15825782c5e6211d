package handler

import (
	"net/http"

	"github.com/HammadCopilot/expense-tracker/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Categories — /v1/categories
// ============================================================

func listCategoriesHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories")
		defer span.End()

		userID := UserIDFromContext(ctx)

		categories, err := svc.List(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	}
}
