// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service
// layer from the concrete persistence and storage adapters.
package port

import (
	"context"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
)

// ExpenseStore defines all persistence operations on expense records.
// Implemented by the Supabase adapter (or any other relational backend).
// Every read is scoped to a user: a record owned by someone else is
// indistinguishable from a missing one.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, exp *domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, userID string, filters domain.ExpenseFilters) ([]domain.Expense, error)
	GetExpense(ctx context.Context, userID, expenseID string) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, expenseID string, updates map[string]any) error
	// DeleteExpense removes the record; attached receipt rows are removed
	// by the storage layer's cascade in the same logical operation.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListExpensesInRange returns the bare records (no joins) with
	// expenseDate in [start, end], for the aggregation component.
	ListExpensesInRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Expense, error)
}

// CategoryStore defines persistence operations on categories.
type CategoryStore interface {
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	CreateCategories(ctx context.Context, categories []domain.Category) error
	GetCategoriesByIDs(ctx context.Context, ids []string) (map[string]domain.Category, error)
}

// ReceiptStore defines persistence operations on receipt metadata rows.
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, r *domain.Receipt) (*domain.Receipt, error)
	GetReceipt(ctx context.Context, receiptID string) (*domain.Receipt, error)
	DeleteReceipt(ctx context.Context, receiptID string) error
	ListReceiptsByExpenses(ctx context.Context, expenseIDs []string) (map[string][]domain.Receipt, error)
}

// BlobStore is the object-storage collaborator holding receipt binaries.
type BlobStore interface {
	// Upload stores the blob under key and returns a retrievable URL.
	Upload(ctx context.Context, key, mimeType string, data []byte) (string, error)
	// Delete removes the blob. Callers treat failures as best-effort.
	Delete(ctx context.Context, key string) error
}

// AuthStore defines persistence operations for the authentication flows.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
