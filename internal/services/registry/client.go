package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

const (
	validatePath = "embedding/validate"
	addPath      = "embedding"

	// VectorLength is the embedding size the registry accepts.
	VectorLength = 512

	maxMessageBytes = 4 << 10
)

// HTTPDoer describes the HTTP client used by the registry client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an HTTP client for the embedding registry.
type Client struct {
	baseURL *url.URL
	client  HTTPDoer
}

type validateRequest struct {
	Vector []float32 `json:"vector"`
}

type addRequest struct {
	Name   string    `json:"name"`
	Vector []float32 `json:"vector"`
}

// NewClient constructs a registry client rooted at baseURL.
func NewClient(baseURL string, client HTTPDoer) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if !strings.HasSuffix(trimmed, "/") {
		trimmed += "/"
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "parse base url", trimmed, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: parsed, client: client}, nil
}

// NewFromConfig builds a client using the configured base URL and timeout.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "configure", "config is nil", nil)
	}
	return NewClient(cfg.Registry.BaseURL, &http.Client{Timeout: cfg.RegistryTimeout()})
}

// BaseURL returns the registry root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Validate reports whether the registry already holds an identity matching
// vector, along with the registry's response text. Only HTTP 200 means
// "exists"; any other status means it does not.
func (c *Client) Validate(ctx context.Context, vector []float32) (bool, string, error) {
	if err := checkVector(vector); err != nil {
		return false, "", err
	}
	resp, err := c.post(ctx, validatePath, validateRequest{Vector: vector})
	if err != nil {
		return false, "", services.Wrap(services.ErrRegistry, "registry", "validate", "request failed", err)
	}
	defer drain(resp.Body)
	message, err := io.ReadAll(io.LimitReader(resp.Body, maxMessageBytes))
	if err != nil {
		return false, "", services.Wrap(services.ErrRegistry, "registry", "validate", "read response", err)
	}
	return resp.StatusCode == http.StatusOK, strings.TrimSpace(string(message)), nil
}

// Add submits vector under name and returns the HTTP status code. HTTP 201
// indicates the identity was stored.
func (c *Client) Add(ctx context.Context, vector []float32, name string) (int, error) {
	if err := checkVector(vector); err != nil {
		return 0, err
	}
	if strings.TrimSpace(name) == "" {
		return 0, services.Wrap(services.ErrValidation, "registry", "add", "identifier is required", nil)
	}
	resp, err := c.post(ctx, addPath, addRequest{Name: name, Vector: vector})
	if err != nil {
		return 0, services.Wrap(services.ErrRegistry, "registry", "add", "request failed", err)
	}
	defer drain(resp.Body)
	return resp.StatusCode, nil
}

// Ping checks that the registry host accepts connections. Any HTTP response,
// whatever its status, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("build registry ping request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrRegistry, "registry", "ping", "unreachable", err)
	}
	drain(resp.Body)
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode registry payload: %w", err)
	}
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}
	return c.client.Do(req)
}

func checkVector(vector []float32) error {
	if len(vector) != VectorLength {
		return services.Wrap(services.ErrValidation, "registry", "check vector",
			fmt.Sprintf("expected %d values, got %d", VectorLength, len(vector)), nil)
	}
	return nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
