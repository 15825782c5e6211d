// Package service contains the business logic, orchestrating stores and
// external collaborators behind the port interfaces.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/port"
	"github.com/HammadCopilot/expense-tracker/internal/validate"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var expenseTracer = otel.Tracer("service/expenses")

// ExpenseService handles expense CRUD. Every operation is scoped to the
// calling user; records of other users behave as if they do not exist.
type ExpenseService struct {
	store  port.ExpenseStore
	logger *zap.Logger
}

// NewExpenseService creates a new expense service.
func NewExpenseService(store port.ExpenseStore, logger *zap.Logger) *ExpenseService {
	return &ExpenseService{store: store, logger: logger}
}

// Create validates and persists a new expense, returning it with its
// category joined.
func (s *ExpenseService) Create(ctx context.Context, userID string, in *domain.ExpenseInput) (*domain.Expense, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := validate.ExpenseInput(in); err != nil {
		return nil, err
	}
	expenseDate, _ := time.Parse(time.RFC3339, in.ExpenseDate)

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	exp := &domain.Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		ExpenseDate: expenseDate,
		Description: in.Description,
		Location:    in.Location,
		Tags:        tags,
	}

	created, err := s.store.CreateExpense(ctx, exp)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.logger.Info("expense created",
		zap.String("expense_id", created.ID),
		zap.String("user_id", userID),
	)

	// Re-read so the response carries the joined category.
	return s.store.GetExpense(ctx, userID, created.ID)
}

// List returns the user's expenses, newest first, with categories and
// receipts attached.
func (s *ExpenseService) List(ctx context.Context, userID string, filters domain.ExpenseFilters) ([]domain.Expense, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.List")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return s.store.ListExpenses(ctx, userID, filters)
}

// Get fetches a single expense owned by the user.
func (s *ExpenseService) Get(ctx context.Context, userID, expenseID string) (*domain.Expense, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.Get")
	defer span.End()

	return s.store.GetExpense(ctx, userID, expenseID)
}

// Update applies a partial update. Ownership is checked before anything
// is written; absent fields are left untouched.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID string, in *domain.ExpenseUpdate) (*domain.Expense, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.Update")
	defer span.End()

	if err := validate.ExpenseUpdate(in); err != nil {
		return nil, err
	}

	// Ownership gate: a miss here is a 404 regardless of whether the
	// record exists under another user.
	if _, err := s.store.GetExpense(ctx, userID, expenseID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Amount != nil {
		updates["amount"] = *in.Amount
	}
	if in.CategoryID != nil {
		updates["category_id"] = *in.CategoryID
	}
	if in.ExpenseDate != nil {
		t, _ := time.Parse(time.RFC3339, *in.ExpenseDate)
		updates["expense_date"] = t.Format(time.RFC3339)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Location != nil {
		updates["location"] = *in.Location
	}
	if in.Tags != nil {
		updates["tags"] = in.Tags
	}

	if len(updates) > 0 {
		if err := s.store.UpdateExpense(ctx, expenseID, updates); err != nil {
			return nil, fmt.Errorf("update expense: %w", err)
		}
	}

	return s.store.GetExpense(ctx, userID, expenseID)
}

// Delete removes an expense and, via cascade, its receipt metadata.
// Receipt blobs are left behind; see ReceiptService.Delete for the
// cleanup contract.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) error {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.Delete")
	defer span.End()

	if _, err := s.store.GetExpense(ctx, userID, expenseID); err != nil {
		return err
	}

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logger.Info("expense deleted",
		zap.String("expense_id", expenseID),
		zap.String("user_id", userID),
	)
	return nil
}
