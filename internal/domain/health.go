package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual collaborator.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// OpsMetrics is returned by GET /v1/metrics/ops.
type OpsMetrics struct {
	TotalRequests  int64   `json:"totalRequests"`
	ErrorRate      float64 `json:"errorRate"`
	CacheHitRate   float64 `json:"cacheHitRate"`
	ReceiptUploads int64   `json:"receiptUploads"`
	OrphanedBlobs  int64   `json:"orphanedBlobs"`
}

// SuccessResponse wraps a message-only success body.
type SuccessResponse struct {
	Message string `json:"message"`
}
