// Package validate holds the declarative validation rules shared by the
// HTTP boundary and the services. Both sides enforce the same rule set;
// violations come back as a field-level error list, never a single
// opaque message.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxDescriptionLen = 500
	MaxLocationLen    = 200
	MaxTags           = 10

	// MaxReceiptSize is the 5 MiB ceiling enforced before any blob write.
	MaxReceiptSize = 5 * 1024 * 1024
)

// MaxAmount is the largest accepted expense amount.
var MaxAmount = decimal.RequireFromString("999999.99")

// AllowedReceiptTypes are the mime types a receipt upload may carry.
var AllowedReceiptTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
}

// ExpenseInput validates a full expense creation payload.
func ExpenseInput(in *domain.ExpenseInput) error {
	var fields []domain.FieldError

	fields = appendAmountErrors(fields, in.Amount)
	if _, err := uuid.Parse(in.CategoryID); err != nil {
		fields = append(fields, domain.FieldError{Field: "categoryId", Message: "invalid category"})
	}
	if _, err := time.Parse(time.RFC3339, in.ExpenseDate); err != nil {
		fields = append(fields, domain.FieldError{Field: "expenseDate", Message: "invalid date format"})
	}
	fields = appendOptionalErrors(fields, in.Description, in.Location, in.Tags)

	if len(fields) > 0 {
		return &domain.ErrInvalidInput{Fields: fields}
	}
	return nil
}

// ExpenseUpdate validates a partial update: only the fields present are
// checked, against the same rules as creation.
func ExpenseUpdate(in *domain.ExpenseUpdate) error {
	var fields []domain.FieldError

	if in.Amount != nil {
		fields = appendAmountErrors(fields, *in.Amount)
	}
	if in.CategoryID != nil {
		if _, err := uuid.Parse(*in.CategoryID); err != nil {
			fields = append(fields, domain.FieldError{Field: "categoryId", Message: "invalid category"})
		}
	}
	if in.ExpenseDate != nil {
		if _, err := time.Parse(time.RFC3339, *in.ExpenseDate); err != nil {
			fields = append(fields, domain.FieldError{Field: "expenseDate", Message: "invalid date format"})
		}
	}
	desc, loc := "", ""
	if in.Description != nil {
		desc = *in.Description
	}
	if in.Location != nil {
		loc = *in.Location
	}
	fields = appendOptionalErrors(fields, desc, loc, in.Tags)

	if len(fields) > 0 {
		return &domain.ErrInvalidInput{Fields: fields}
	}
	return nil
}

// ReceiptFile validates an upload's mime type and size before the blob
// is stored.
func ReceiptFile(mimeType string, size int64) error {
	var fields []domain.FieldError

	if !AllowedReceiptTypes[strings.ToLower(mimeType)] {
		fields = append(fields, domain.FieldError{
			Field:   "file",
			Message: "invalid file type, only JPEG, PNG, and PDF are allowed",
		})
	}
	if size > MaxReceiptSize {
		fields = append(fields, domain.FieldError{
			Field:   "file",
			Message: "file size exceeds 5MB limit",
		})
	}

	if len(fields) > 0 {
		return &domain.ErrInvalidInput{Fields: fields}
	}
	return nil
}

// Signup validates a signup payload.
func Signup(in *domain.SignupRequest) error {
	var fields []domain.FieldError

	name := strings.TrimSpace(in.Name)
	if len(name) < 2 || len(name) > 100 {
		fields = append(fields, domain.FieldError{Field: "name", Message: "name must be between 2 and 100 characters"})
	}
	if !validEmail(in.Email) {
		fields = append(fields, domain.FieldError{Field: "email", Message: "invalid email address"})
	}
	fields = append(fields, passwordErrors(in.Password)...)

	if len(fields) > 0 {
		return &domain.ErrInvalidInput{Fields: fields}
	}
	return nil
}

func appendAmountErrors(fields []domain.FieldError, amount decimal.Decimal) []domain.FieldError {
	if !amount.IsPositive() {
		fields = append(fields, domain.FieldError{Field: "amount", Message: "amount must be positive"})
	} else if amount.GreaterThan(MaxAmount) {
		fields = append(fields, domain.FieldError{Field: "amount", Message: "amount too large"})
	}
	return fields
}

func appendOptionalErrors(fields []domain.FieldError, description, location string, tags []string) []domain.FieldError {
	if len(description) > MaxDescriptionLen {
		fields = append(fields, domain.FieldError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at most %d characters", MaxDescriptionLen),
		})
	}
	if len(location) > MaxLocationLen {
		fields = append(fields, domain.FieldError{
			Field:   "location",
			Message: fmt.Sprintf("location must be at most %d characters", MaxLocationLen),
		})
	}
	if len(tags) > MaxTags {
		fields = append(fields, domain.FieldError{Field: "tags", Message: "too many tags"})
	}
	return fields
}

func passwordErrors(password string) []domain.FieldError {
	var fields []domain.FieldError
	if len(password) < 8 {
		fields = append(fields, domain.FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper {
		fields = append(fields, domain.FieldError{Field: "password", Message: "password must contain at least one uppercase letter"})
	}
	if !hasLower {
		fields = append(fields, domain.FieldError{Field: "password", Message: "password must contain at least one lowercase letter"})
	}
	if !hasDigit {
		fields = append(fields, domain.FieldError{Field: "password", Message: "password must contain at least one number"})
	}
	return fields
}

// validEmail is a light-weight structural check: local@domain.tld with no
// spaces. Full RFC validation is the identity provider's concern.
func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	local, dom := email[:at], email[at+1:]
	if strings.ContainsAny(email, " \t") || strings.Contains(dom, "@") {
		return false
	}
	dot := strings.LastIndexByte(dom, '.')
	return local != "" && dot > 0 && dot < len(dom)-1
}
