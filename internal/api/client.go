package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is returned when no API bind address is configured.
var ErrUnavailable = errors.New("daemon api unavailable")

// Error is a non-2xx reply from the daemon.
type Error struct {
	Status    int
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.RequestID != "" {
		return fmt.Sprintf("api returned %d: %s (request %s)", e.Status, msg, e.RequestID)
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, msg)
}

// Client talks to the daemon control API.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

// NewClient builds a client for the daemon listening on bind. A bare
// host:port is treated as http.
func NewClient(bind string, httpClient *http.Client) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, ErrUnavailable
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: base, http: httpClient}, nil
}

// WithToken sets the bearer token sent on every request.
func (c *Client) WithToken(token string) *Client {
	c.token = strings.TrimSpace(token)
	return c
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// StartEnrollment opens the gate.
func (c *Client) StartEnrollment(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/api/enrollment/start")
}

// StopEnrollment closes the gate.
func (c *Client) StopEnrollment(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/api/enrollment/stop")
}

// ToggleEnrollment flips the gate.
func (c *Client) ToggleEnrollment(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/api/enrollment/toggle")
}

// StartPreview starts the camera pipeline.
func (c *Client) StartPreview(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/api/preview/start")
}

// StopPreview stops the camera pipeline.
func (c *Client) StopPreview(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/api/preview/stop")
}

// HistoryQuery filters the attempt history.
type HistoryQuery struct {
	Outcome string
	Limit   int
}

// History lists recent attempts, newest first.
func (c *Client) History(ctx context.Context, q HistoryQuery) (HistoryResponse, error) {
	values := url.Values{}
	if q.Outcome != "" {
		values.Set("outcome", q.Outcome)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	var out HistoryResponse
	err := c.do(ctx, http.MethodGet, "/api/history?"+values.Encode(), nil, &out)
	return out, err
}

// LogQuery selects buffered log events.
type LogQuery struct {
	Since     uint64
	Limit     int
	Tail      bool
	Component string
}

// Logs fetches buffered log events.
func (c *Client) Logs(ctx context.Context, q LogQuery) (LogStreamResponse, error) {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if q.Component != "" {
		values.Set("component", q.Component)
	}
	var out LogStreamResponse
	err := c.do(ctx, http.MethodGet, "/api/logs?"+values.Encode(), nil, &out)
	return out, err
}

// TestNotification asks the daemon to publish a test notification.
func (c *Client) TestNotification(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/api/notifications/test")
}

// Frame downloads the current display frame as JPEG.
func (c *Client) Frame(ctx context.Context, mirror bool) ([]byte, error) {
	path := "/api/frame"
	if mirror {
		path += "?mirror=1"
	}
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) action(ctx context.Context, path string) (ActionResponse, error) {
	var out ActionResponse
	err := c.do(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	resp, err := c.send(ctx, method, path, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c == nil {
		return nil, ErrUnavailable
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := &Error{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		var payload ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return nil, apiErr
	}
	return resp, nil
}
