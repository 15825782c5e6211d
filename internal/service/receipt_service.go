package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/infra/observability"
	"github.com/HammadCopilot/expense-tracker/internal/port"
	"github.com/HammadCopilot/expense-tracker/internal/validate"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var receiptTracer = otel.Tracer("service/receipts")

// ReceiptService handles receipt uploads and deletion. A receipt is two
// writes in two systems: the blob in object storage and the metadata row
// next to the expense. The pair is not atomic; failure ordering is
// arranged so the worst case is an orphaned blob, never a dangling row.
type ReceiptService struct {
	receipts port.ReceiptStore
	expenses port.ExpenseStore
	blobs    port.BlobStore
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewReceiptService creates a new receipt service.
func NewReceiptService(receipts port.ReceiptStore, expenses port.ExpenseStore, blobs port.BlobStore, metrics *observability.Metrics, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{
		receipts: receipts,
		expenses: expenses,
		blobs:    blobs,
		metrics:  metrics,
		logger:   logger,
	}
}

// Upload validates the file, checks expense ownership, stores the blob
// and then the metadata row.
func (s *ReceiptService) Upload(ctx context.Context, userID, expenseID, fileName, mimeType string, data []byte) (*domain.Receipt, error) {
	ctx, span := receiptTracer.Start(ctx, "ReceiptService.Upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("expense.id", expenseID),
		attribute.Int("file.size", len(data)),
	)

	if err := validate.ReceiptFile(mimeType, int64(len(data))); err != nil {
		return nil, err
	}

	// Ownership gate before any write.
	if _, err := s.expenses.GetExpense(ctx, userID, expenseID); err != nil {
		return nil, err
	}

	key := blobKey(expenseID, fileName)
	fileURL, err := s.blobs.Upload(ctx, key, mimeType, data)
	if err != nil {
		s.metrics.IncrExternalError("storage")
		return nil, fmt.Errorf("upload blob: %w", err)
	}

	receipt := &domain.Receipt{
		ID:        uuid.NewString(),
		ExpenseID: expenseID,
		FileName:  fileName,
		FileURL:   fileURL,
		FileSize:  int64(len(data)),
		MimeType:  mimeType,
	}
	created, err := s.receipts.CreateReceipt(ctx, receipt)
	if err != nil {
		// The blob is already in storage with nothing pointing at it.
		s.metrics.IncrOrphanedBlob()
		s.logger.Warn("receipt metadata write failed after blob upload",
			zap.String("expense_id", expenseID),
			zap.String("blob_key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	s.metrics.IncrReceiptUpload()
	s.logger.Info("receipt uploaded",
		zap.String("receipt_id", created.ID),
		zap.String("expense_id", expenseID),
	)
	return created, nil
}

// Delete removes the blob best-effort, then the metadata row. A receipt
// whose parent expense belongs to another user is visible but untouchable.
func (s *ReceiptService) Delete(ctx context.Context, userID, receiptID string) error {
	ctx, span := receiptTracer.Start(ctx, "ReceiptService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("receipt.id", receiptID))

	receipt, err := s.receipts.GetReceipt(ctx, receiptID)
	if err != nil {
		return err
	}

	// The parent exists (the FK guarantees it), so a scoped miss means
	// it belongs to someone else.
	if _, err := s.expenses.GetExpense(ctx, userID, receipt.ExpenseID); err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return &domain.ErrForbidden{Action: "delete this receipt"}
		}
		return err
	}

	// Blob cleanup is best-effort: a stale blob is harmless, a dangling
	// metadata row is not, so storage failures never block the delete.
	if key := blobKeyFromURL(receipt.FileURL); key != "" {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.metrics.IncrOrphanedBlob()
			s.logger.Warn("receipt blob delete failed, blob orphaned",
				zap.String("receipt_id", receiptID),
				zap.String("blob_key", key),
				zap.Error(err),
			)
		}
	}

	if err := s.receipts.DeleteReceipt(ctx, receiptID); err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}

	return nil
}

// blobKey builds the storage key for a new upload. The original filename
// contributes only its extension; the name itself is a fresh UUID.
func blobKey(expenseID, fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("receipts/%s/%s.%s", expenseID, uuid.NewString(), ext)
}

// blobKeyFromURL recovers the bucket-relative key from a public object
// URL. Returns "" when the URL does not look like one of ours.
func blobKeyFromURL(fileURL string) string {
	const marker = "/storage/v1/object/public/"
	idx := strings.Index(fileURL, marker)
	if idx < 0 {
		return ""
	}
	rest := fileURL[idx+len(marker):]
	// First segment is the bucket name.
	slash := strings.IndexByte(rest, '/')
	if slash < 0 || slash == len(rest)-1 {
		return ""
	}
	return rest[slash+1:]
}
