package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/infra/observability"
	"github.com/HammadCopilot/expense-tracker/internal/port"
	"github.com/HammadCopilot/expense-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router needs.
type Services struct {
	Expenses   *service.ExpenseService
	Analytics  *service.AnalyticsService
	Categories *service.CategoryService
	Receipts   *service.ReceiptService
	Auth       *service.AuthService

	// CategoryStore backs the health probe with an uncached read.
	CategoryStore port.CategoryStore
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(metricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.CategoryStore, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		r.Get("/metrics/ops", opsMetricsHandler(metrics, logger))

		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authSignupHandler(svcs.Auth, svcs.Categories, logger))
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
			r.Post("/refresh", authRefreshHandler(svcs.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
				r.Post("/logout", authLogoutHandler(svcs.Auth, logger))
			})
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))

			r.Get("/expenses", listExpensesHandler(svcs.Expenses, logger))
			r.Post("/expenses", createExpenseHandler(svcs.Expenses, logger))
			r.Get("/expenses/{expenseId}", getExpenseHandler(svcs.Expenses, logger))
			r.Put("/expenses/{expenseId}", updateExpenseHandler(svcs.Expenses, logger))
			r.Delete("/expenses/{expenseId}", deleteExpenseHandler(svcs.Expenses, logger))

			r.Get("/categories", listCategoriesHandler(svcs.Categories, logger))

			r.Get("/analytics/monthly-trends", monthlyTrendsHandler(svcs.Analytics, logger))
			r.Get("/analytics/category-breakdown", categoryBreakdownHandler(svcs.Analytics, logger))

			r.Post("/receipts", uploadReceiptHandler(svcs.Receipts, logger))
			r.Delete("/receipts/{receiptId}", deleteReceiptHandler(svcs.Receipts, logger))
		})
	})

	return r
}

// metricsMiddleware records request counts by status class and latency
// per route pattern.
func metricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = r.URL.Path
			}
			metrics.RecordRequestDuration(r.Method+" "+pattern, time.Since(start))
			metrics.IncrRequest(statusClass(ww.Status()))
		})
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(store port.CategoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "expense-tracker-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			_, err := store.ListCategories(ctx, uuid.Nil.String())
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("healthz: supabase probe failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overall = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/ops")
		defer span.End()

		writeJSON(w, http.StatusOK, metrics.GetOpsSnapshot())
	}
}
