package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRole is the baseline role assumed when the token carries no role
// claim.
const DefaultRole = "proveedor"

// expirySlack is how close to expiry a cached token may be before Token
// fetches a new one even without forceRefresh.
const expirySlack = 30 * time.Second

// HTTPConfig configures the HTTP identity provider.
type HTTPConfig struct {
	// BaseURL is the identity service root, e.g. "https://id.example.com".
	BaseURL string
	// APIKey, when set, is sent as X-Api-Key on every call.
	APIKey string
	// Timeout bounds each identity call. Defaults to 10s.
	Timeout time.Duration
	// DefaultRole overrides the baseline role. Defaults to DefaultRole.
	DefaultRole string
	// HTTPClient overrides the underlying client. Defaults to a dedicated
	// client with Timeout applied.
	HTTPClient *http.Client
}

// HTTPProvider implements Provider against the identity service REST
// surface. It tracks the signed-in identity and its refresh credential, and
// pushes identity-change events to subscribers.
type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client

	mu          sync.Mutex
	current     *Info
	refreshCred string
	cached      TokenResult
	subs        map[uint64]func(Event)
	nextSub     uint64
}

// NewHTTPProvider creates a provider. BaseURL must be non-empty.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("identity: BaseURL required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = DefaultRole
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: client,
		subs:   make(map[uint64]func(Event)),
	}, nil
}

type credentialRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	UID          string `json:"uid"`
	Email        string `json:"email"`
}

// Login exchanges credentials for a token and announces the new identity.
func (p *HTTPProvider) Login(ctx context.Context, creds Credentials) (TokenResult, error) {
	resp, err := p.post(ctx, "/v1/login", credentialRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return TokenResult{}, err
	}
	switch {
	case resp.status == http.StatusOK:
	case resp.status == http.StatusBadRequest, resp.status == http.StatusUnauthorized, resp.status == http.StatusForbidden:
		return TokenResult{}, ErrInvalidCredentials
	default:
		return TokenResult{}, fmt.Errorf("login returned HTTP %d: %w", resp.status, ErrUnavailable)
	}
	return p.adopt(resp.body)
}

// Register creates an account and announces the new identity. Same
// post-condition as Login.
func (p *HTTPProvider) Register(ctx context.Context, creds Credentials) (TokenResult, error) {
	resp, err := p.post(ctx, "/v1/register", credentialRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return TokenResult{}, err
	}
	switch resp.status {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return TokenResult{}, ErrAccountExists
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return TokenResult{}, ErrWeakCredential
	default:
		return TokenResult{}, fmt.Errorf("register returned HTTP %d: %w", resp.status, ErrUnavailable)
	}
	return p.adopt(resp.body)
}

// Logout revokes the external session when possible and always clears the
// local identity, emitting a sign-out event. The network error, if any, is
// returned so the caller can log it, but local clearing is unconditional.
func (p *HTTPProvider) Logout(ctx context.Context) error {
	p.mu.Lock()
	cred := p.refreshCred
	p.current = nil
	p.refreshCred = ""
	p.cached = TokenResult{}
	p.mu.Unlock()

	p.emit(Event{Identity: nil})

	if cred == "" {
		return nil
	}
	resp, err := p.post(ctx, "/v1/revoke", refreshRequest{RefreshToken: cred})
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK && resp.status != http.StatusNoContent {
		return fmt.Errorf("revoke returned HTTP %d: %w", resp.status, ErrUnavailable)
	}
	return nil
}

// Token returns the current bearer token. With forceRefresh it always
// exchanges the refresh credential for a fresh token; otherwise a cached
// token is reused while it is comfortably inside its validity window.
func (p *HTTPProvider) Token(ctx context.Context, forceRefresh bool) (TokenResult, error) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return TokenResult{}, ErrNoIdentity
	}
	ident := *p.current
	cred := p.refreshCred
	cached := p.cached
	p.mu.Unlock()

	if !forceRefresh && cached.Token != "" && time.Until(cached.ExpiresAt) > expirySlack {
		return cached, nil
	}

	resp, err := p.post(ctx, "/v1/refresh", refreshRequest{RefreshToken: cred})
	if err != nil {
		return TokenResult{}, err
	}
	switch resp.status {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized:
		return TokenResult{}, fmt.Errorf("refresh credential rejected: %w", ErrNoIdentity)
	default:
		return TokenResult{}, fmt.Errorf("refresh returned HTTP %d: %w", resp.status, ErrUnavailable)
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return TokenResult{}, fmt.Errorf("decode refresh response: %w", ErrUnavailable)
	}
	result, err := p.decode(body.IDToken, ident)
	if err != nil {
		return TokenResult{}, err
	}

	p.mu.Lock()
	// A logout may have raced the refresh; its result must not resurrect
	// the identity.
	if p.current != nil && p.current.UID == ident.UID {
		p.cached = result
		if body.RefreshToken != "" {
			p.refreshCred = body.RefreshToken
		}
	}
	p.mu.Unlock()

	return result, nil
}

// Changes registers handler and fires it once with the current identity.
func (p *HTTPProvider) Changes(handler func(Event)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = handler
	var initial Event
	if p.current != nil {
		ident := *p.current
		initial.Identity = &ident
	}
	p.mu.Unlock()

	handler(initial)

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// adopt installs the identity from a successful login/register response and
// announces it.
func (p *HTTPProvider) adopt(raw []byte) (TokenResult, error) {
	var body tokenResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return TokenResult{}, fmt.Errorf("decode credential response: %w", ErrUnavailable)
	}
	ident := Info{UID: body.UID, Email: body.Email}
	result, err := p.decode(body.IDToken, ident)
	if err != nil {
		return TokenResult{}, err
	}

	p.mu.Lock()
	p.current = &ident
	p.refreshCred = body.RefreshToken
	p.cached = result
	p.mu.Unlock()

	p.emit(Event{Identity: &ident})
	return result, nil
}

// decode pulls role, issued-at, and expiry out of the token's claims. The
// signature is not verified; the backend verifies on every request.
func (p *HTTPProvider) decode(token string, ident Info) (TokenResult, error) {
	if token == "" {
		return TokenResult{}, fmt.Errorf("empty token in response: %w", ErrUnavailable)
	}

	result := TokenResult{
		Identity: ident,
		Token:    token,
		Role:     p.cfg.DefaultRole,
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenResult{}, fmt.Errorf("malformed token: %w", ErrUnavailable)
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		result.Role = role
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		result.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		result.ExpiresAt = exp.Time
	}
	return result, nil
}

// emit delivers an event to all subscribers. Handlers run outside the
// provider lock so they may call back into the provider.
func (p *HTTPProvider) emit(event Event) {
	p.mu.Lock()
	handlers := make([]func(Event), 0, len(p.subs))
	for _, h := range p.subs {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

type httpResult struct {
	status int
	body   []byte
}

func (p *HTTPProvider) post(ctx context.Context, path string, payload any) (httpResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return httpResult{}, fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.cfg.BaseURL, "/")+path, bytes.NewReader(data))
	if err != nil {
		return httpResult{}, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return httpResult{}, fmt.Errorf("%s: %w", path, ErrUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return httpResult{}, fmt.Errorf("read %s response: %w", path, ErrUnavailable)
	}
	return httpResult{status: resp.StatusCode, body: body}, nil
}
