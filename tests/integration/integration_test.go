package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/handler"
	"github.com/HammadCopilot/expense-tracker/internal/infra/cache"
	"github.com/HammadCopilot/expense-tracker/internal/infra/observability"
	"github.com/HammadCopilot/expense-tracker/internal/infra/resilience"
	"github.com/HammadCopilot/expense-tracker/internal/infra/supabase"
	"github.com/HammadCopilot/expense-tracker/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Fake Supabase (PostgREST + Storage)
// ============================================================

// fakeSupabase emulates the slice of the Supabase surface the adapters
// touch: row CRUD under /rest/v1/{table} with eq./in. filters, and blob
// upload/delete under /storage/v1/object/{bucket}/{key}.
type fakeSupabase struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	blobs  map[string][]byte
	down   bool
}

func newFakeSupabase() *fakeSupabase {
	return &fakeSupabase{
		tables: make(map[string][]map[string]any),
		blobs:  make(map[string][]byte),
	}
}

func (f *fakeSupabase) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/", f.handleRest)
	mux.HandleFunc("/storage/v1/object/", f.handleStorage)
	return mux
}

func (f *fakeSupabase) handleRest(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		http.Error(w, `{"message":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	query := r.URL.Query()

	switch r.Method {
	case http.MethodGet:
		matched := []map[string]any{}
		for _, row := range f.tables[table] {
			if rowMatches(row, query) {
				matched = append(matched, row)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(matched)

	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		inserted := []map[string]any{}
		var one map[string]any
		if err := json.Unmarshal(body, &one); err == nil {
			inserted = append(inserted, one)
		} else {
			var many []map[string]any
			if err := json.Unmarshal(body, &many); err != nil {
				http.Error(w, `{"message":"invalid body"}`, http.StatusBadRequest)
				return
			}
			inserted = append(inserted, many...)
		}
		f.tables[table] = append(f.tables[table], inserted...)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(inserted)

	case http.MethodPatch:
		var updates map[string]any
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			http.Error(w, `{"message":"invalid body"}`, http.StatusBadRequest)
			return
		}
		for _, row := range f.tables[table] {
			if rowMatches(row, query) {
				for k, v := range updates {
					row[k] = v
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		kept := f.tables[table][:0]
		for _, row := range f.tables[table] {
			if !rowMatches(row, query) {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeSupabase) handleStorage(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")

	switch r.Method {
	case http.MethodPost:
		data, _ := io.ReadAll(r.Body)
		f.blobs[key] = data
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"Key":%q}`, key)
	case http.MethodDelete:
		if _, ok := f.blobs[key]; !ok {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		delete(f.blobs, key)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message":"Successfully deleted"}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// rowMatches applies the eq. and in.(...) operators. Range operators
// (gte., lte., ov.) are accepted but not enforced; the scenarios below
// never rely on them to exclude rows.
func rowMatches(row map[string]any, query map[string][]string) bool {
	for key, vals := range query {
		switch key {
		case "order", "limit", "select":
			continue
		}
		for _, v := range vals {
			switch {
			case strings.HasPrefix(v, "eq."):
				if fmt.Sprint(row[key]) != strings.TrimPrefix(v, "eq.") {
					return false
				}
			case strings.HasPrefix(v, "in.("):
				list := strings.Split(strings.TrimSuffix(strings.TrimPrefix(v, "in.("), ")"), ",")
				found := false
				for _, item := range list {
					if fmt.Sprint(row[key]) == item {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
		}
	}
	return true
}

// ============================================================
// Fixture: fake Supabase behind the real client, services, router
// ============================================================

type fixture struct {
	router   http.Handler
	supabase *fakeSupabase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fake := newFakeSupabase()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("integration")
	rcfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	store := supabase.NewClient(httpClient, server.URL, "anon-key", "service-key", cb, rcfg, logger)
	blobs := supabase.NewStorage(httpClient, server.URL, "anon-key", "service-key", "receipts", cb, rcfg, logger)
	catCache := cache.New[[]domain.Category](5 * time.Minute)

	categorySvc := service.NewCategoryService(store, catCache, metrics, logger)
	router := handler.NewRouter(handler.Services{
		Expenses:      service.NewExpenseService(store, logger),
		Analytics:     service.NewAnalyticsService(store, store, logger),
		Categories:    categorySvc,
		Receipts:      service.NewReceiptService(store, store, blobs, metrics, logger),
		Auth:          service.NewAuthService(store, store, "integration-secret", 15*time.Minute, 7*24*time.Hour, logger),
		CategoryStore: store,
	}, metrics, logger)

	return &fixture{router: router, supabase: fake}
}

func (f *fixture) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// ============================================================
// Scenario
// ============================================================

// TestIntegration_FullFlow walks the whole API against a fake Supabase:
// signup, login, expense CRUD, category listing, receipt upload and
// delete, analytics, token refresh and logout.
func TestIntegration_FullFlow(t *testing.T) {
	f := newFixture(t)

	// --- Signup ---
	rec := f.do(t, http.MethodPost, "/v1/auth/signup", "", domain.SignupRequest{
		Name:     "Integration Tester",
		Email:    "Tester@Example.com",
		Password: "Sup3rSecret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var signup domain.SignupResponse
	decodeInto(t, rec, &signup)
	if signup.User == nil || signup.User.ID == "" {
		t.Fatal("signup: expected a created user with an id")
	}
	if signup.User.Email != "tester@example.com" {
		t.Errorf("signup: expected lowercased email, got %q", signup.User.Email)
	}

	// --- Login ---
	rec = f.do(t, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email:    "tester@example.com",
		Password: "Sup3rSecret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var login domain.LoginResponse
	decodeInto(t, rec, &login)
	if login.AccessToken == "" || login.RefreshToken == "" {
		t.Fatal("login: expected an access and a refresh token")
	}
	if login.UserID != signup.User.ID {
		t.Errorf("login: expected userId %q, got %q", signup.User.ID, login.UserID)
	}
	token := login.AccessToken

	// --- Default categories were seeded at signup ---
	rec = f.do(t, http.MethodGet, "/v1/categories", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("categories: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cats []domain.Category
	decodeInto(t, rec, &cats)
	if len(cats) != 6 {
		t.Fatalf("categories: expected 6 seeded defaults, got %d", len(cats))
	}
	foodID := ""
	for _, c := range cats {
		if !c.IsDefault {
			t.Errorf("categories: %q should be a default", c.Name)
		}
		if c.Name == "Food & Dining" {
			foodID = c.ID
		}
	}
	if foodID == "" {
		t.Fatal("categories: Food & Dining not seeded")
	}

	// --- Create an expense ---
	today := time.Now().UTC().Format(time.RFC3339)
	rec = f.do(t, http.MethodPost, "/v1/expenses", token, map[string]any{
		"amount":      42.50,
		"categoryId":  foodID,
		"expenseDate": today,
		"description": "lunch at the harbour",
		"tags":        []string{"food", "work"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Expense
	decodeInto(t, rec, &created)
	if created.ID == "" {
		t.Fatal("create expense: expected a generated id")
	}
	if created.Category == nil || created.Category.Name != "Food & Dining" {
		t.Errorf("create expense: expected the joined category, got %+v", created.Category)
	}

	// --- Update it ---
	rec = f.do(t, http.MethodPut, "/v1/expenses/"+created.ID, token, map[string]any{
		"description": "lunch at the harbour, client visit",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update expense: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated domain.Expense
	decodeInto(t, rec, &updated)
	if updated.Description != "lunch at the harbour, client visit" {
		t.Errorf("update expense: description not applied: %q", updated.Description)
	}

	// --- Upload a receipt ---
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("expenseId", created.ID)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="lunch.jpg"`},
		"Content-Type":        {"image/jpeg"},
	})
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("jpeg-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/receipts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	upRec := httptest.NewRecorder()
	f.router.ServeHTTP(upRec, req)
	if upRec.Code != http.StatusCreated {
		t.Fatalf("upload receipt: expected 201, got %d: %s", upRec.Code, upRec.Body.String())
	}
	var receipt domain.Receipt
	decodeInto(t, upRec, &receipt)
	if receipt.ExpenseID != created.ID {
		t.Errorf("upload receipt: expected expenseId %q, got %q", created.ID, receipt.ExpenseID)
	}
	if !strings.Contains(receipt.FileURL, "/storage/v1/object/public/receipts/") {
		t.Errorf("upload receipt: unexpected file URL %q", receipt.FileURL)
	}
	if len(f.supabase.blobs) != 1 {
		t.Fatalf("upload receipt: expected 1 stored blob, got %d", len(f.supabase.blobs))
	}

	// --- Listing joins the receipt ---
	rec = f.do(t, http.MethodGet, "/v1/expenses", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list expenses: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var listed []domain.Expense
	decodeInto(t, rec, &listed)
	if len(listed) != 1 {
		t.Fatalf("list expenses: expected 1, got %d", len(listed))
	}
	if len(listed[0].Receipts) != 1 {
		t.Fatalf("list expenses: expected the receipt joined, got %d", len(listed[0].Receipts))
	}

	// --- Analytics over the live data ---
	rec = f.do(t, http.MethodGet, "/v1/analytics/monthly-trends?range=3", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trends: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var trends domain.TrendsReport
	decodeInto(t, rec, &trends)
	if trends.Range != 3 {
		t.Errorf("trends: expected range 3, got %d", trends.Range)
	}
	if len(trends.Trends) != 1 || trends.Trends[0].Count != 1 {
		t.Fatalf("trends: expected one month with one expense, got %+v", trends.Trends)
	}

	rec = f.do(t, http.MethodGet, "/v1/analytics/category-breakdown", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("breakdown: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var breakdown domain.BreakdownReport
	decodeInto(t, rec, &breakdown)
	if len(breakdown.Breakdown) != 1 || breakdown.Breakdown[0].CategoryName != "Food & Dining" {
		t.Fatalf("breakdown: expected a single Food & Dining group, got %+v", breakdown.Breakdown)
	}

	// --- Delete the receipt, then the expense ---
	rec = f.do(t, http.MethodDelete, "/v1/receipts/"+receipt.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete receipt: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.supabase.blobs) != 0 {
		t.Errorf("delete receipt: expected the blob removed, %d left", len(f.supabase.blobs))
	}

	rec = f.do(t, http.MethodDelete, "/v1/expenses/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete expense: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/v1/expenses/"+created.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted expense: expected 404, got %d", rec.Code)
	}

	// --- Refresh rotates, logout revokes ---
	rec = f.do(t, http.MethodPost, "/v1/auth/refresh", "", domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var refreshed domain.LoginResponse
	decodeInto(t, rec, &refreshed)
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh: expected a rotated refresh token")
	}

	rec = f.do(t, http.MethodPost, "/v1/auth/refresh", "", domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh reuse: expected 401, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/v1/auth/logout", refreshed.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/v1/auth/refresh", "", domain.RefreshRequest{RefreshToken: refreshed.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: expected 401, got %d", rec.Code)
	}
}

// TestIntegration_SupabaseOutage verifies that a dead backend surfaces
// as 5xx at the API edge instead of hanging or panicking.
func TestIntegration_SupabaseOutage(t *testing.T) {
	f := newFixture(t)

	// Establish a session while the backend is healthy.
	rec := f.do(t, http.MethodPost, "/v1/auth/signup", "", domain.SignupRequest{
		Name:     "Outage Tester",
		Email:    "outage@example.com",
		Password: "Sup3rSecret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email:    "outage@example.com",
		Password: "Sup3rSecret",
	})
	var login domain.LoginResponse
	decodeInto(t, rec, &login)

	// Every PostgREST call now answers 503.
	f.supabase.mu.Lock()
	f.supabase.down = true
	f.supabase.mu.Unlock()

	rec = f.do(t, http.MethodGet, "/v1/expenses", login.AccessToken, nil)
	if rec.Code < http.StatusInternalServerError {
		t.Fatalf("list during outage: expected a 5xx, got %d: %s", rec.Code, rec.Body.String())
	}
}
