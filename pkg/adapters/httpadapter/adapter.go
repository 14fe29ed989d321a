// Package httpadapter provides the HTTP adapter: fetches with a GET and sends JSON with a POST (or the
// configured methods).
package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/template"
)

const defaultTimeoutSeconds = 30

var (
	// ErrURLInvalid is returned when the adapter has no url.
	ErrURLInvalid = errors.New("invalid HTTP adapter url")
	// ErrHTTPStatus is returned for responses outside the 2xx range.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// Adapter talks to one HTTP endpoint. URL and header values are templates rendered against the
// calling workflow.
type Adapter struct {
	URL         string
	FetchMethod string
	SendMethod  string
	ReadyURL    string
	Headers     map[string]string
	Timeout     time.Duration

	client *http.Client
	logger *slog.Logger
}

func NewAdapter(config map[string]any, logger *slog.Logger) (*Adapter, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("missing or invalid 'url' in configuration: %w", ErrURLInvalid)
	}

	fetchMethod, _ := config["fetch_method"].(string)
	if fetchMethod == "" {
		fetchMethod = http.MethodGet
	}

	sendMethod, _ := config["send_method"].(string)
	if sendMethod == "" {
		sendMethod = http.MethodPost
	}

	readyURL, _ := config["ready_url"].(string)

	headers := make(map[string]string)

	if headersMap, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersMap {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	timeout := defaultTimeoutSeconds * time.Second
	if seconds := intValue(config["timeout_seconds"]); seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	for key, value := range headers {
		if _, err := template.Parse(value); err != nil {
			return nil, fmt.Errorf("invalid header '%s' template: %w", key, err)
		}
	}

	if _, err := template.Parse(url); err != nil {
		return nil, fmt.Errorf("invalid url template: %w", err)
	}

	return &Adapter{
		URL:         url,
		FetchMethod: strings.ToUpper(fetchMethod),
		SendMethod:  strings.ToUpper(sendMethod),
		ReadyURL:    readyURL,
		Headers:     headers,
		Timeout:     timeout,
		client:      &http.Client{Timeout: timeout},
		logger:      logger.With("module", "http_adapter"),
	}, nil
}

// Fetch returns the decoded JSON response body, or the raw body as a string when it is not JSON.
func (a *Adapter) Fetch(ctx context.Context, ectx models.ExecutionContext) (any, error) {
	req, err := a.buildRequest(ctx, a.FetchMethod, nil, ectx, nil)
	if err != nil {
		return nil, err
	}

	body, err := a.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload any

	if err := json.Unmarshal(body, &payload); err != nil {
		a.logger.WarnContext(ctx, "Failed to parse response as JSON, returning as string", "error", err)

		return string(body), nil
	}

	return payload, nil
}

func (a *Adapter) Send(ctx context.Context, payload any, ectx models.ExecutionContext) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := a.buildRequest(ctx, a.SendMethod, bytes.NewReader(body), ectx, payload)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	_, err = a.do(ctx, req)

	return err
}

// Ready probes ReadyURL when configured; without one the adapter is always ready.
func (a *Adapter) Ready(ctx context.Context) bool {
	if a.ReadyURL == "" {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.ReadyURL, nil)
	if err != nil {
		return false
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}

	_ = resp.Body.Close()

	return resp.StatusCode < http.StatusMultipleChoices
}

func (a *Adapter) Close(_ context.Context) error {
	a.client.CloseIdleConnections()

	return nil
}

func (a *Adapter) buildRequest(ctx context.Context, method string, body io.Reader, ectx models.ExecutionContext, payload any) (*http.Request, error) {
	url, err := template.RenderString(a.URL, template.ContextData(ectx, payload))
	if err != nil {
		return nil, fmt.Errorf("failed to render url template: %w", err)
	}

	a.logger.DebugContext(ctx, "Creating HTTP request", "method", method, "url", url)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if ectx.CorrelationID != "" {
		req.Header.Set("X-Correlation-ID", ectx.CorrelationID)
	}

	for key, value := range a.Headers {
		headerValue, err := template.RenderString(value, template.ContextData(ectx, payload))
		if err != nil {
			return nil, fmt.Errorf("failed to render header '%s' template: %w", key, err)
		}

		req.Header.Set(key, headerValue)
	}

	return req, nil
}

func (a *Adapter) do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrHTTPStatus, req.Method, req.URL.Redacted(), resp.StatusCode)
	}

	a.logger.DebugContext(ctx, "HTTP request completed", "status", resp.StatusCode, "bytes", len(body))

	return body, nil
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
