package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	settlement "clinic-register/internal/settlement/domain"
)

// WebhookNotifier posts discrepant-close alerts to a webhook endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// WebhookOption configures the notifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(n *WebhookNotifier) {
		if client != nil {
			n.client = client
		}
	}
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string, opts ...WebhookOption) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	notifier := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier, nil
}

// NotifyDiscrepancy posts the discrepant record. Per-bucket differences go
// in the payload so the receiver can alert without calling back.
func (n *WebhookNotifier) NotifyDiscrepancy(ctx context.Context, record settlement.Record) error {
	if n == nil || n.url == "" {
		return nil
	}
	buckets := make([]map[string]string, 0, len(record.Results))
	for _, result := range record.Results {
		buckets = append(buckets, map[string]string{
			"bucket":     string(result.Bucket),
			"expected":   result.Expected.StringFixed(2),
			"counted":    result.Counted.StringFixed(2),
			"difference": result.Difference.StringFixed(2),
			"status":     string(result.Status),
		})
	}
	payload, err := json.Marshal(map[string]any{
		"type":      "settlement.discrepant",
		"record_id": record.ID,
		"day":       record.DayStart.Format("2006-01-02"),
		"version":   record.Version,
		"closed_by": record.ClosedBy,
		"closed_at": record.ClosedAt.Format(time.RFC3339),
		"buckets":   buckets,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: http %d", resp.StatusCode)
	}
	return nil
}
