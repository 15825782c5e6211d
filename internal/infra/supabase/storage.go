package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Storage adapts Supabase Storage as the receipt blob store.
type Storage struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	bucket         string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewStorage creates a Supabase Storage client for the given bucket.
func NewStorage(httpClient *http.Client, baseURL, apiKey, serviceRoleKey, bucket string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Storage {
	return &Storage{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		bucket:         bucket,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// Upload stores a blob under key and returns its public URL.
func (s *Storage) Upload(ctx context.Context, key, mimeType string, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "Storage.Upload")
	defer span.End()

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	_, err := s.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, s.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
			if err != nil {
				return err
			}
			req.Header.Set("apikey", s.apiKey)
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.serviceRoleKey))
			req.Header.Set("Content-Type", mimeType)

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				body, _ := io.ReadAll(resp.Body)
				s.logger.Warn("storage: upload failed",
					zap.String("key", key),
					zap.Int("status", resp.StatusCode),
					zap.String("body", string(body)),
				)
				return fmt.Errorf("storage upload returned status %d: %s", resp.StatusCode, string(body))
			}
			return nil
		})
	})
	if err != nil {
		return "", &domain.ErrExternalService{Service: "supabase/storage", Err: mapBreakerErr(err, "supabase/storage")}
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
	return publicURL, nil
}

// Delete removes a blob. Missing objects are not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Storage.Delete")
	defer span.End()

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	_, err := s.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, s.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
			if err != nil {
				return err
			}
			req.Header.Set("apikey", s.apiKey)
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.serviceRoleKey))

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return nil
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("storage delete returned status %d: %s", resp.StatusCode, string(body))
			}
			return nil
		})
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/storage", Err: mapBreakerErr(err, "supabase/storage")}
	}
	return nil
}
