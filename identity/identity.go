package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials is returned by Login when the identity service
	// rejects the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned by Register when the identifier is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrWeakCredential is returned by Register when the password fails the
	// identity service's policy.
	ErrWeakCredential = errors.New("credential rejected by policy")
	// ErrNoIdentity is returned by Token when no identity is signed in.
	ErrNoIdentity = errors.New("no identity present")
	// ErrUnavailable is returned when the identity service cannot be
	// reached or answers outside its contract.
	ErrUnavailable = errors.New("identity service unavailable")
)

// Credentials is the email/password pair exchanged for a token.
type Credentials struct {
	Email    string
	Password string
}

// Info is the opaque external-user reference.
type Info struct {
	UID   string
	Email string
}

// TokenResult carries a bearer token together with everything decoded from
// its claims. Role is always re-derived from the token, never cached
// independently of a fetch.
type TokenResult struct {
	Identity  Info
	Token     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Event is one identity-change notification. Identity is nil when the
// provider detects a sign-out.
type Event struct {
	Identity *Info
}

// Provider is the contract every identity backend must satisfy.
//
// Changes fires the handler once at subscription time with the current
// identity, then on every sign-in/sign-out the provider detects. The
// returned function cancels the subscription; the sequence is infinite and
// re-subscribable.
type Provider interface {
	Login(ctx context.Context, creds Credentials) (TokenResult, error)
	Register(ctx context.Context, creds Credentials) (TokenResult, error)
	Logout(ctx context.Context) error
	Token(ctx context.Context, forceRefresh bool) (TokenResult, error)
	Changes(handler func(Event)) (unsubscribe func())
}
