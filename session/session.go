package session

import "time"

// Status is the lifecycle state of the client session.
type Status uint8

const (
	// StatusAnonymous means no identity is present.
	StatusAnonymous Status = iota
	// StatusAuthenticating means a login is in progress, or the startup
	// identity resolution has not completed yet.
	StatusAuthenticating
	// StatusAuthenticated means a valid token and role are present.
	StatusAuthenticated
	// StatusExpired means the backend rejected the token or the user logged
	// out; the credential has been discarded and must never be reused.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session is the sole stateful entity of the portal client. The token is
// opaque except for its validity window; the role is re-derived from the
// token's claims on every refresh and never cached independently.
type Session struct {
	// Identity is the opaque external-user reference. Empty when absent.
	Identity string

	// Token is the bearer credential. Present if and only if
	// Status == StatusAuthenticated.
	Token string

	// TokenIssuedAt and TokenExpiry bound the token's validity.
	TokenIssuedAt time.Time
	TokenExpiry   time.Time

	// Role is the capability tag decoded from the token's claims. Present
	// only when Token is present.
	Role string

	// Status is the lifecycle state.
	Status Status
}

// Authenticated reports whether the session carries a usable credential.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != ""
}

// normalize enforces the structural invariant: token, role, and validity
// window exist only in the authenticated state.
func normalize(s Session) Session {
	if s.Status != StatusAuthenticated {
		s.Token = ""
		s.Role = ""
		s.TokenIssuedAt = time.Time{}
		s.TokenExpiry = time.Time{}
	}
	if s.Status == StatusAnonymous || s.Status == StatusExpired {
		s.Identity = ""
	}
	return s
}
