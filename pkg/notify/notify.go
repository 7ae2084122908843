// Package notify delivers a best-effort webhook ping when the shared
// log changes. Delivery runs detached from the request that triggered
// it: errors are logged and counted, never surfaced, never retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"quietpost/pkg/logger"
	"quietpost/pkg/metrics"
)

// Webhook posts update events to a single configured URL. A nil or
// URL-less webhook is a no-op, so callers never need to branch.
type Webhook struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewWebhook builds a notifier. An empty url disables it.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

type event struct {
	Event string `json:"event"`
	At    int64  `json:"at"`
}

// PortalUpdated fires a detached notification that the log changed. The
// payload is deliberately generic: no sender, no text, nothing a channel
// observer could correlate with portal traffic.
func (wh *Webhook) PortalUpdated() {
	if wh == nil || wh.url == "" {
		return
	}
	go wh.post()
}

func (wh *Webhook) post() {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("notify_panic", "panic", rec)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), wh.timeout)
	defer cancel()

	body, err := json.Marshal(event{Event: "portal_update", At: time.Now().UnixMilli()})
	if err != nil {
		metrics.NotifyFailures.Inc()
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.url, bytes.NewReader(body))
	if err != nil {
		metrics.NotifyFailures.Inc()
		logger.Warn("notify_request_build_failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := wh.client.Do(req)
	if err != nil {
		metrics.NotifyFailures.Inc()
		logger.Warn("notify_post_failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.NotifyFailures.Inc()
		logger.Warn("notify_post_rejected", "status", resp.StatusCode)
	}
}
