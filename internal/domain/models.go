// Package domain contains the core entities and error types shared by
// all layers of the expense tracker.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account holder. Created at signup, never mutated by this core.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Category groups expenses. A category either belongs to a single user or
// is one of the shared defaults seeded at signup.
type Category struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	Description string    `json:"description,omitempty"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Expense is a single spending record. Amount is an exact decimal with
// two fractional digits; it is always positive.
type Expense struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	CategoryID  string          `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate time.Time       `json:"expenseDate"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	Tags        []string        `json:"tags"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	// Joined relations, populated on reads.
	Category *Category `json:"category,omitempty"`
	Receipts []Receipt `json:"receipts"`
}

// Receipt is the metadata row for an uploaded receipt file. The blob
// itself lives in the object store under FileURL.
type Receipt struct {
	ID        string    `json:"id"`
	ExpenseID string    `json:"expenseId"`
	FileName  string    `json:"fileName"`
	FileURL   string    `json:"fileUrl"`
	FileSize  int64     `json:"fileSize"`
	MimeType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExpenseInput carries the fields a client may set when creating an expense.
type ExpenseInput struct {
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  string          `json:"categoryId"`
	ExpenseDate string          `json:"expenseDate"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

// ExpenseUpdate carries a partial update. Nil pointers mean "leave untouched".
type ExpenseUpdate struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	CategoryID  *string          `json:"categoryId,omitempty"`
	ExpenseDate *string          `json:"expenseDate,omitempty"`
	Description *string          `json:"description,omitempty"`
	Location    *string          `json:"location,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
}

// ExpenseFilters narrows a listing. Range filters apply only when both
// bounds are set; Tags matches expenses carrying any of the given tags.
type ExpenseFilters struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CategoryID string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Tags       []string
}
