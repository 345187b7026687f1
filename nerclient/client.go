// Package nerclient talks to the remote biomedical NER and entity-linking
// service and maps its responses onto entities.LinkedEntity.
package nerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-playground/validator/v10"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/pillchecker/pillchecker/interfaces"
	"github.com/pillchecker/pillchecker/logging"
	"github.com/pillchecker/pillchecker/metrics"
)

var _ interfaces.EntityLinker = (*Client)(nil)

// ErrServiceUnavailable is returned when the service cannot be reached or
// keeps failing after all attempts.
var ErrServiceUnavailable = errors.New("entity-linking service unavailable")

const maxErrorBody = 512

// Config configures a Client. Zero durations and attempts take defaults.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	HTTPClient  *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts uint
	baseDelay   time.Duration
	maxDelay    time.Duration
	validate    *validator.Validate
}

// New creates a client for the service rooted at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("entity-linking service URL is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("entity-linking service URL must be http or https, got: %s", baseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		maxAttempts: uint(cfg.MaxAttempts),
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		validate:    validator.New(),
	}, nil
}

// BaseURL returns the service root the client posts to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ExtractEntities sends text to the service and returns the linked entities
// in the service's order. Blank text returns an empty list without a call.
func (c *Client) ExtractEntities(ctx context.Context, text string) ([]entities.LinkedEntity, error) {
	if strings.TrimSpace(text) == "" {
		return []entities.LinkedEntity{}, nil
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	start := time.Now()
	var payload wireResponse
	err = retry.Do(
		func() error {
			payload = wireResponse{}
			return c.post(ctx, "/extract_entities", body, &payload)
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(c.baseDelay),
		retry.MaxDelay(c.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.Warn("Entity-linking request failed, retrying",
				"attempt", n+1, "max_attempts", c.maxAttempts, "error", err)
		}),
	)
	metrics.NERRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.NERRequestsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	metrics.NERRequestsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	result := c.toLinkedEntities(payload.Entities)
	logging.Debug("Extracted entities", "count", len(result))
	return result, nil
}

// FindChemicals returns the chemical entities found in text.
func (c *Client) FindChemicals(ctx context.Context, text string) ([]entities.LinkedEntity, error) {
	return c.findByLabel(ctx, text, entities.LabelChemical)
}

// FindDiseases returns the disease entities found in text.
func (c *Client) FindDiseases(ctx context.Context, text string) ([]entities.LinkedEntity, error) {
	return c.findByLabel(ctx, text, entities.LabelDisease)
}

// FindActiveIngredients returns the raw text of each chemical entity.
func (c *Client) FindActiveIngredients(ctx context.Context, text string) ([]string, error) {
	chemicals, err := c.FindChemicals(ctx, text)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(chemicals))
	for _, e := range chemicals {
		names = append(names, e.Text)
	}
	return names, nil
}

func (c *Client) findByLabel(ctx context.Context, text, label string) ([]entities.LinkedEntity, error) {
	all, err := c.ExtractEntities(ctx, text)
	if err != nil {
		return nil, err
	}
	filtered := make([]entities.LinkedEntity, 0, len(all))
	for _, e := range all {
		if e.HasLabel(label) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Ping checks the service's health endpoint once, without retries.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

// post performs one attempt. Client errors other than 429 are unrecoverable.
func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Unrecoverable(statusErr)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// StatusError is a non-200 reply from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}
