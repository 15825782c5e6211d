package handler

import (
	"io"
	"net/http"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/service"
	"github.com/HammadCopilot/expense-tracker/internal/validate"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxUploadBytes caps the whole multipart body. It sits above the
// per-file limit so oversized files reach the validator and get a
// field-level error instead of a connection reset.
const maxUploadBytes = validate.MaxReceiptSize + 1<<20

// ============================================================
// Receipts — /v1/receipts
// ============================================================

func uploadReceiptHandler(svc *service.ReceiptService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/receipts")
		defer span.End()

		userID := UserIDFromContext(ctx)

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body or file too large")
			return
		}

		expenseID := r.FormValue("expenseId")
		if expenseID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "validation failed",
				Details: []domain.FieldError{{Field: "expenseId", Message: "required"}},
			})
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "validation failed",
				Details: []domain.FieldError{{Field: "file", Message: "required"}},
			})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}

		mimeType := header.Header.Get("Content-Type")

		receipt, err := svc.Upload(ctx, userID, expenseID, header.Filename, mimeType, data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}

func deleteReceiptHandler(svc *service.ReceiptService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/receipts/{receiptId}")
		defer span.End()

		userID := UserIDFromContext(ctx)
		receiptID := chi.URLParam(r, "receiptId")

		if err := svc.Delete(ctx, userID, receiptID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "receipt deleted successfully"})
	}
}
