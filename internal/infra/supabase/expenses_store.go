package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Expenses store — create, list, get, update, delete
// ============================================================

// expenseRow maps the expenses table columns.
type expenseRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	CategoryID  string          `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate string          `json:"expense_date"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Tags        []string        `json:"tags"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r *expenseRow) toDomain() domain.Expense {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.Expense{
		ID:          r.ID,
		UserID:      r.UserID,
		CategoryID:  r.CategoryID,
		Amount:      r.Amount,
		ExpenseDate: parseDate(r.ExpenseDate),
		Description: r.Description,
		Location:    r.Location,
		Tags:        tags,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Receipts:    []domain.Receipt{},
	}
}

// parseDate accepts both timestamptz and bare date renderings.
func parseDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, _ = time.Parse("2006-01-02", s)
	}
	return t
}

// CreateExpense inserts an expense row. A foreign-key violation on
// category_id surfaces as the generic insert error.
func (c *Client) CreateExpense(ctx context.Context, exp *domain.Expense) (*domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateExpense")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", exp.UserID))

	row := map[string]any{
		"id":           exp.ID,
		"user_id":      exp.UserID,
		"category_id":  exp.CategoryID,
		"amount":       exp.Amount,
		"expense_date": exp.ExpenseDate.Format(time.RFC3339),
		"description":  exp.Description,
		"location":     exp.Location,
		"tags":         exp.Tags,
	}

	var created *domain.Expense
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "expenses", row)
		if err != nil {
			return err
		}
		var rows []expenseRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode expense: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("no result returned from expenses insert")
		}
		e := rows[0].toDomain()
		created = &e
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	return created, nil
}

// ListExpenses returns the user's expenses with optional filters, newest
// expense date first, each joined with its category and receipts.
func (c *Client) ListExpenses(ctx context.Context, userID string, filters domain.ExpenseFilters) ([]domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := "expenses?user_id=eq." + userID
	if filters.StartDate != nil && filters.EndDate != nil {
		path += "&expense_date=gte." + url.QueryEscape(filters.StartDate.Format(time.RFC3339))
		path += "&expense_date=lte." + url.QueryEscape(filters.EndDate.Format(time.RFC3339))
	}
	if filters.CategoryID != "" {
		path += "&category_id=eq." + filters.CategoryID
	}
	if filters.MinAmount != nil && filters.MaxAmount != nil {
		path += "&amount=gte." + filters.MinAmount.String()
		path += "&amount=lte." + filters.MaxAmount.String()
	}
	if len(filters.Tags) > 0 {
		// Array overlap: any of the given tags present.
		path += "&tags=ov." + url.QueryEscape("{"+strings.Join(filters.Tags, ",")+"}")
	}
	path += "&order=expense_date.desc"

	var expenses []domain.Expense
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			expenses = []domain.Expense{}
			return nil
		}
		var rows []expenseRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode expenses: %w", err)
		}
		expenses = make([]domain.Expense, 0, len(rows))
		for i := range rows {
			expenses = append(expenses, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}

	if err := c.attachRelations(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// GetExpense returns a single expense scoped to its owner. A record
// owned by another user is reported as not found.
func (c *Client) GetExpense(ctx context.Context, userID, expenseID string) (*domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetExpense")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", expenseID))

	path := fmt.Sprintf("expenses?id=eq.%s&user_id=eq.%s&limit=1", expenseID, userID)

	var expense *domain.Expense
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "expense", ID: expenseID}
		}
		var rows []expenseRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode expense: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "expense", ID: expenseID}
		}
		e := rows[0].toDomain()
		expense = &e
		return nil
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}

	single := []domain.Expense{*expense}
	if err := c.attachRelations(ctx, single); err != nil {
		return nil, err
	}
	return &single[0], nil
}

// UpdateExpense applies a partial column update to an expense row.
func (c *Client) UpdateExpense(ctx context.Context, expenseID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateExpense")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", expenseID))

	updates["updated_at"] = time.Now().Format(time.RFC3339)

	err := c.execute(ctx, func() error {
		return c.doPatch(ctx, "expenses?id=eq."+expenseID, updates)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	return nil
}

// DeleteExpense removes the expense row. Receipt metadata rows go with
// it via the receipts table's ON DELETE CASCADE foreign key.
func (c *Client) DeleteExpense(ctx context.Context, expenseID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteExpense")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", expenseID))

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, "expenses?id=eq."+expenseID)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	return nil
}

// ListExpensesInRange returns the bare expense records (no joins) with
// expense_date in [start, end], for the aggregation component.
func (c *Client) ListExpensesInRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListExpensesInRange")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := "expenses?user_id=eq." + userID +
		"&expense_date=gte." + url.QueryEscape(start.Format(time.RFC3339)) +
		"&expense_date=lte." + url.QueryEscape(end.Format(time.RFC3339)) +
		"&order=expense_date.asc"

	var expenses []domain.Expense
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			expenses = []domain.Expense{}
			return nil
		}
		var rows []expenseRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode expenses: %w", err)
		}
		expenses = make([]domain.Expense, 0, len(rows))
		for i := range rows {
			expenses = append(expenses, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	return expenses, nil
}

// attachRelations joins categories and receipts onto the given expenses.
// The two lookups are independent, so they run concurrently.
func (c *Client) attachRelations(ctx context.Context, expenses []domain.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	catIDs := make([]string, 0, len(expenses))
	seen := make(map[string]bool, len(expenses))
	expIDs := make([]string, 0, len(expenses))
	for i := range expenses {
		if !seen[expenses[i].CategoryID] {
			seen[expenses[i].CategoryID] = true
			catIDs = append(catIDs, expenses[i].CategoryID)
		}
		expIDs = append(expIDs, expenses[i].ID)
	}

	var (
		categories map[string]domain.Category
		receipts   map[string][]domain.Receipt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = c.GetCategoriesByIDs(gctx, catIDs)
		return err
	})
	g.Go(func() error {
		var err error
		receipts, err = c.ListReceiptsByExpenses(gctx, expIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range expenses {
		if cat, ok := categories[expenses[i].CategoryID]; ok {
			catCopy := cat
			expenses[i].Category = &catCopy
		}
		if rs, ok := receipts[expenses[i].ID]; ok {
			expenses[i].Receipts = rs
		}
	}
	return nil
}
