package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var (
	// ErrTransport wraps failures that never produced an HTTP response.
	ErrTransport      = errors.New("remote transport failure")
	ErrTenantNotFound = errors.New("tenant not found on remote store")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the REST-fronted remote store. Collections are addressed
// as /<collection>; filters use the column=eq.<value> convention and upserts
// merge on uuid.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
		logger:  slog.Default().With("component", "remote"),
	}
}

// FetchAll returns every record of collection that belongs to tenant, as raw
// JSON objects.
func (c *Client) FetchAll(ctx context.Context, collection string, tenant uuid.UUID) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("tenant_id", "eq."+tenant.String())
	body, err := c.do(ctx, http.MethodGet, collection, query, nil)
	if err != nil {
		return nil, err
	}
	return splitArray(collection, body)
}

// Upsert posts one JSON object (or an array of them) to collection. Existing
// records with the same uuid are merged.
func (c *Client) Upsert(ctx context.Context, collection string, payload []byte) error {
	query := url.Values{}
	query.Set("on_conflict", "uuid")
	_, err := c.do(ctx, http.MethodPost, collection, query, payload)
	return err
}

// FetchTenant loads one tenant record by uuid.
func (c *Client) FetchTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	query := url.Values{}
	query.Set("uuid", "eq."+id.String())
	body, err := c.do(ctx, http.MethodGet, model.CollectionTenants, query, nil)
	if err != nil {
		return nil, err
	}
	records, err := splitArray(model.CollectionTenants, body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrTenantNotFound)
	}
	var tenant model.Tenant
	if err := json.Unmarshal(records[0], &tenant); err != nil {
		return nil, fmt.Errorf("decode tenant %s: %w", id, err)
	}
	return &tenant, nil
}

func (c *Client) do(ctx context.Context, method, collection string, query url.Values, payload []byte) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s", c.BaseURL, collection)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "resolution=merge-duplicates")
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, collection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, collection, err)
	}
	c.logger.Debug("remote call", "method", method, "collection", collection, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func splitArray(collection string, body []byte) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode %s: invalid JSON", collection)
	}
	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, fmt.Errorf("decode %s: expected a JSON array", collection)
	}
	var out []json.RawMessage
	result.ForEach(func(_, value gjson.Result) bool {
		out = append(out, json.RawMessage(value.Raw))
		return true
	})
	return out, nil
}
