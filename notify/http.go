package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// HTTPDispatcher envia as mensagens como JSON para um serviço de
// notificações (POST <base>/email e <base>/push), limitado a rps chamadas por segundo.
type HTTPDispatcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

type HTTPOption func(*HTTPDispatcher)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(d *HTTPDispatcher) { d.client = c }
}

func NewHTTPDispatcher(baseURL string, rps float64, opts ...HTTPOption) *HTTPDispatcher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	d := &HTTPDispatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *HTTPDispatcher) SendEmail(ctx context.Context, msg Email) error {
	return d.post(ctx, "/email", msg)
}

func (d *HTTPDispatcher) SendPush(ctx context.Context, msg Push) error {
	return d.post(ctx, "/push", msg)
}

func (d *HTTPDispatcher) post(ctx context.Context, path string, payload any) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify: throttle: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
