package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/infra/observability"
	"github.com/HammadCopilot/expense-tracker/internal/service"
	"github.com/HammadCopilot/expense-tracker/internal/validate"

	"go.uber.org/zap"
)

type receiptFixture struct {
	receipts *mockReceiptStore
	expenses *mockExpenseStore
	blobs    *mockBlobStore
	svc      *service.ReceiptService
}

func newReceiptFixture() *receiptFixture {
	receipts := newMockReceiptStore()
	expenses := newMockExpenseStore()
	blobs := newMockBlobStore()
	svc := service.NewReceiptService(receipts, expenses, blobs, observability.NewMetrics(), zap.NewNop())
	return &receiptFixture{receipts: receipts, expenses: expenses, blobs: blobs, svc: svc}
}

func TestUploadReceipt_Success(t *testing.T) {
	f := newReceiptFixture()
	f.expenses.expenses["exp-1"] = &domain.Expense{ID: "exp-1", UserID: "user-1"}

	receipt, err := f.svc.Upload(context.Background(), "user-1", "exp-1", "lunch.jpg", "image/jpeg", []byte("fake-jpeg"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receipt.ExpenseID != "exp-1" || receipt.FileName != "lunch.jpg" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if len(f.blobs.uploaded) != 1 {
		t.Fatalf("expected 1 blob upload, got %d", len(f.blobs.uploaded))
	}
	if len(f.receipts.created) != 1 {
		t.Fatalf("expected 1 metadata row, got %d", len(f.receipts.created))
	}
}

func TestUploadReceipt_OversizeRejectedBeforeBlobWrite(t *testing.T) {
	f := newReceiptFixture()
	f.expenses.expenses["exp-1"] = &domain.Expense{ID: "exp-1", UserID: "user-1"}

	data := bytes.Repeat([]byte("x"), validate.MaxReceiptSize+1)
	_, err := f.svc.Upload(context.Background(), "user-1", "exp-1", "big.png", "image/png", data)

	var invalid *domain.ErrInvalidInput
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(f.blobs.uploaded) != 0 {
		t.Error("expected no blob write")
	}
	if len(f.receipts.created) != 0 {
		t.Error("expected no metadata row")
	}
}

func TestUploadReceipt_BadMimeRejectedBeforeBlobWrite(t *testing.T) {
	f := newReceiptFixture()
	f.expenses.expenses["exp-1"] = &domain.Expense{ID: "exp-1", UserID: "user-1"}

	_, err := f.svc.Upload(context.Background(), "user-1", "exp-1", "anim.gif", "image/gif", []byte("gif"))

	var invalid *domain.ErrInvalidInput
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(f.blobs.uploaded) != 0 || len(f.receipts.created) != 0 {
		t.Error("expected nothing persisted")
	}
}

func TestUploadReceipt_CrossUserExpenseIsNotFound(t *testing.T) {
	f := newReceiptFixture()
	f.expenses.expenses["exp-1"] = &domain.Expense{ID: "exp-1", UserID: "owner"}

	_, err := f.svc.Upload(context.Background(), "intruder", "exp-1", "r.pdf", "application/pdf", []byte("pdf"))

	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(f.blobs.uploaded) != 0 {
		t.Error("expected no blob write")
	}
}

func TestDeleteReceipt_OtherOwnersExpenseIsForbidden(t *testing.T) {
	f := newReceiptFixture()
	f.expenses.expenses["exp-1"] = &domain.Expense{ID: "exp-1", UserID: "owner"}
	f.receipts.receipts["rec-1"] = &domain.Receipt{ID: "rec-1", ExpenseID: "exp-1"}

	err := f.svc.Delete(context.Background(), "intruder", "rec-1")

	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(f.receipts.deleted) != 0 {
		t.Error("expected metadata row untouched")
	}
}

func TestDeleteReceipt_MissingIsNotFound(t *testing.T) {
	f := newReceiptFixture()

	err := f.svc.Delete(context.Background(), "user-1", "rec-unknown")

	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteReceipt_BlobFailureIsSwallowed(t *testing.T) {
	f := newReceiptFixture()
	f.expenses.expenses["exp-1"] = &domain.Expense{ID: "exp-1", UserID: "user-1"}
	f.receipts.receipts["rec-1"] = &domain.Receipt{
		ID:        "rec-1",
		ExpenseID: "exp-1",
		FileURL:   "https://supabase.test/storage/v1/object/public/receipts/receipts/exp-1/abc.jpg",
	}
	f.blobs.deleteErr = errors.New("storage unavailable")

	if err := f.svc.Delete(context.Background(), "user-1", "rec-1"); err != nil {
		t.Fatalf("expected blob failure swallowed, got %v", err)
	}
	if len(f.receipts.deleted) != 1 {
		t.Error("expected metadata row deleted despite blob failure")
	}
}

func TestDeleteReceipt_RemovesBlobAndRow(t *testing.T) {
	f := newReceiptFixture()
	f.expenses.expenses["exp-1"] = &domain.Expense{ID: "exp-1", UserID: "user-1"}
	f.receipts.receipts["rec-1"] = &domain.Receipt{
		ID:        "rec-1",
		ExpenseID: "exp-1",
		FileURL:   "https://supabase.test/storage/v1/object/public/receipts/receipts/exp-1/abc.jpg",
	}

	if err := f.svc.Delete(context.Background(), "user-1", "rec-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(f.blobs.deleted) != 1 || f.blobs.deleted[0] != "receipts/exp-1/abc.jpg" {
		t.Errorf("expected blob key receipts/exp-1/abc.jpg deleted, got %v", f.blobs.deleted)
	}
	if len(f.receipts.deleted) != 1 {
		t.Error("expected metadata row deleted")
	}
}
