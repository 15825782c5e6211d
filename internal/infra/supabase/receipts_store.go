package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Receipts store — metadata rows only; blobs live in Storage
// ============================================================

// receiptRow maps the receipts table columns.
type receiptRow struct {
	ID        string    `json:"id"`
	ExpenseID string    `json:"expense_id"`
	FileName  string    `json:"file_name"`
	FileURL   string    `json:"file_url"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *receiptRow) toDomain() domain.Receipt {
	return domain.Receipt{
		ID:        r.ID,
		ExpenseID: r.ExpenseID,
		FileName:  r.FileName,
		FileURL:   r.FileURL,
		FileSize:  r.FileSize,
		MimeType:  r.MimeType,
		CreatedAt: r.CreatedAt,
	}
}

// CreateReceipt inserts a receipt metadata row after the blob upload
// succeeded.
func (c *Client) CreateReceipt(ctx context.Context, r *domain.Receipt) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateReceipt")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", r.ExpenseID))

	row := map[string]any{
		"id":         r.ID,
		"expense_id": r.ExpenseID,
		"file_name":  r.FileName,
		"file_url":   r.FileURL,
		"file_size":  r.FileSize,
		"mime_type":  r.MimeType,
	}

	var created *domain.Receipt
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "receipts", row)
		if err != nil {
			return err
		}
		var rows []receiptRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode receipt: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("no result returned from receipts insert")
		}
		rec := rows[0].toDomain()
		created = &rec
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/receipts", Err: err}
	}
	return created, nil
}

// GetReceipt fetches a receipt row by id.
func (c *Client) GetReceipt(ctx context.Context, receiptID string) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetReceipt")
	defer span.End()
	span.SetAttributes(attribute.String("receipt.id", receiptID))

	path := fmt.Sprintf("receipts?id=eq.%s&limit=1", receiptID)

	var receipt *domain.Receipt
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "receipt", ID: receiptID}
		}
		var rows []receiptRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode receipt: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "receipt", ID: receiptID}
		}
		rec := rows[0].toDomain()
		receipt = &rec
		return nil
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/receipts", Err: err}
	}
	return receipt, nil
}

// DeleteReceipt removes a receipt metadata row.
func (c *Client) DeleteReceipt(ctx context.Context, receiptID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteReceipt")
	defer span.End()
	span.SetAttributes(attribute.String("receipt.id", receiptID))

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, "receipts?id=eq."+receiptID)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/receipts", Err: err}
	}
	return nil
}

// ListReceiptsByExpenses fetches receipt rows in bulk, grouped by
// expense id.
func (c *Client) ListReceiptsByExpenses(ctx context.Context, expenseIDs []string) (map[string][]domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListReceiptsByExpenses")
	defer span.End()

	result := make(map[string][]domain.Receipt, len(expenseIDs))
	if len(expenseIDs) == 0 {
		return result, nil
	}

	path := "receipts?expense_id=" + inList(expenseIDs) + "&order=created_at.asc"
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return nil
		}
		var rows []receiptRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode receipts: %w", err)
		}
		for i := range rows {
			rec := rows[i].toDomain()
			result[rec.ExpenseID] = append(result[rec.ExpenseID], rec)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/receipts", Err: err}
	}
	return result, nil
}
