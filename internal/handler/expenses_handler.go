package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// Expenses — /v1/expenses
// ============================================================

func listExpensesHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses")
		defer span.End()

		userID := UserIDFromContext(ctx)

		filters, err := parseExpenseFilters(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		expenses, err := svc.List(ctx, userID, filters)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, expenses)
	}
}

func createExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/expenses")
		defer span.End()

		userID := UserIDFromContext(ctx)

		var in domain.ExpenseInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := svc.Create(ctx, userID, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func getExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses/{expenseId}")
		defer span.End()

		userID := UserIDFromContext(ctx)
		expenseID := chi.URLParam(r, "expenseId")

		expense, err := svc.Get(ctx, userID, expenseID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, expense)
	}
}

func updateExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/expenses/{expenseId}")
		defer span.End()

		userID := UserIDFromContext(ctx)
		expenseID := chi.URLParam(r, "expenseId")

		var in domain.ExpenseUpdate
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		updated, err := svc.Update(ctx, userID, expenseID, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/expenses/{expenseId}")
		defer span.End()

		userID := UserIDFromContext(ctx)
		expenseID := chi.URLParam(r, "expenseId")

		if err := svc.Delete(ctx, userID, expenseID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "expense deleted successfully"})
	}
}

// parseExpenseFilters reads the optional listing filters. Range filters
// only take effect when both bounds parse; a malformed value is a 400,
// not a silently dropped filter.
func parseExpenseFilters(r *http.Request) (domain.ExpenseFilters, error) {
	var filters domain.ExpenseFilters
	q := r.URL.Query()

	if v := q.Get("startDate"); v != "" {
		t, err := parseFilterDate(v)
		if err != nil {
			return filters, err
		}
		filters.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := parseFilterDate(v)
		if err != nil {
			return filters, err
		}
		filters.EndDate = &t
	}
	filters.CategoryID = q.Get("categoryId")
	if v := q.Get("minAmount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return filters, &domain.ErrInvalidInput{Fields: []domain.FieldError{{Field: "minAmount", Message: "invalid amount"}}}
		}
		filters.MinAmount = &d
	}
	if v := q.Get("maxAmount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return filters, &domain.ErrInvalidInput{Fields: []domain.FieldError{{Field: "maxAmount", Message: "invalid amount"}}}
		}
		filters.MaxAmount = &d
	}
	if v := q.Get("tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filters.Tags = append(filters.Tags, tag)
			}
		}
	}

	return filters, nil
}

func parseFilterDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, &domain.ErrInvalidInput{Fields: []domain.FieldError{{Field: "date", Message: "invalid date format"}}}
	}
	return t, nil
}
