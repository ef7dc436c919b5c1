package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MatSV27/neo-portal-proveedores/internal/audit"
	"github.com/MatSV27/neo-portal-proveedores/internal/metrics"
	"github.com/MatSV27/neo-portal-proveedores/mirror"
	"github.com/MatSV27/neo-portal-proveedores/session"
)

// ErrNotAuthenticated is returned when a request is attempted without an
// authenticated session. No network traffic is produced.
var ErrNotAuthenticated = errors.New("no authenticated session")

// ErrSessionExpired is returned when the backend rejected the session token.
// By the time a caller sees this error the session has already transitioned
// to expired.
var ErrSessionExpired = errors.New("session expired")

// ErrNetworkUnavailable wraps transport-level failures. The session is left
// untouched; connectivity problems are not an authentication verdict.
var ErrNetworkUnavailable = errors.New("network unavailable")

// RequestError is a non-2xx backend response other than 401.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

const (
	headerInstance = "X-Client-Instance"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// Config configures a Client. BaseURL is required.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration

	Mirror  mirror.Mirror
	Metrics *metrics.Metrics
	Audit   *audit.Dispatcher

	// OnExpired runs exactly once per expiry cascade, after the session has
	// transitioned and the mirror is cleared. Hosts hook navigation here.
	OnExpired func()
	Warn      func(string, ...any)
}

// Client performs authorized requests against the portal backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	mirror     mirror.Mirror
	metrics    *metrics.Metrics
	audit      *audit.Dispatcher
	onExpired  func()
	warn       func(string, ...any)
	instanceID string
}

// New creates a Client bound to the session store.
func New(store *session.Store, cfg Config) (*Client, error) {
	if store == nil {
		return nil, errors.New("apiclient: session store required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("apiclient: base URL required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	m := cfg.Mirror
	if m == nil {
		m = mirror.NoOp{}
	}
	warn := cfg.Warn
	if warn == nil {
		warn = log.Printf
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
		store:      store,
		mirror:     m,
		metrics:    cfg.Metrics,
		audit:      cfg.Audit,
		onExpired:  cfg.OnExpired,
		warn:       warn,
		instanceID: uuid.NewString(),
	}, nil
}

// Get performs an authorized GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// Post performs an authorized POST with a JSON body. in may be nil.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	body, contentType, err := jsonBody(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, body, contentType, out)
}

// Put performs an authorized PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	body, contentType, err := jsonBody(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, body, contentType, out)
}

// Patch performs an authorized PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	body, contentType, err := jsonBody(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, path, body, contentType, out)
}

func jsonBody(in any) (io.Reader, string, error) {
	if in == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// do runs the request lifecycle: token precondition, bearer attach, send,
// status mapping, decode.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	snap := c.store.Get()
	if !snap.Authenticated() {
		c.metrics.Inc(metrics.MetricRequestBlockedNoToken)
		return ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+snap.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerInstance, c.instanceID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Inc(metrics.MetricRequestNetworkError)
		c.emitAudit(ctx, "request_network_error", snap, path, false, err.Error())
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	c.metrics.Observe(metrics.MetricRequestLatency, time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		c.metrics.Inc(metrics.MetricRequestRejected)
		c.expireSession(snap, path)
		return ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.Inc(metrics.MetricRequestFailed)
		reqErr := &RequestError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		c.emitAudit(ctx, "request_failed", snap, path, false, reqErr.Message)
		return reqErr
	}

	c.metrics.Inc(metrics.MetricRequestSuccess)
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// expireSession runs the 401 cascade. Only the winner of the expiry
// transition clears the mirror and fires the hook; losers return quietly and
// their callers still see ErrSessionExpired.
func (c *Client) expireSession(snap session.Snapshot, path string) {
	_, won := c.store.Expire()
	if !won {
		return
	}
	c.metrics.Inc(metrics.MetricSessionExpired)

	// The caller's context may already be cancelled; the cascade's side
	// effects run on their own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.mirror.Clear(ctx); err != nil {
		c.warn("portalauth: mirror clear after 401 failed: %v", err)
	}
	c.emitAudit(ctx, "session_expired", snap, path, false, "backend rejected token")
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Client) emitAudit(ctx context.Context, eventType string, snap session.Snapshot, route string, success bool, errMsg string) {
	c.audit.Emit(ctx, audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Identity:  snap.Identity,
		Role:      snap.Role,
		Status:    snap.Status.String(),
		Route:     route,
		Success:   success,
		Error:     errMsg,
		Metadata:  map[string]string{"client_instance": c.instanceID},
	})
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		switch {
		case body.Error != "" && body.Detail != "":
			return body.Error + ": " + body.Detail
		case body.Error != "":
			return body.Error
		case body.Message != "":
			return body.Message
		}
	}
	return strings.TrimSpace(string(data))
}
