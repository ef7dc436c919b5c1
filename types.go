package portalauth

import (
	"github.com/MatSV27/neo-portal-proveedores/identity"
	"github.com/MatSV27/neo-portal-proveedores/session"
)

// Role values the portal backend assigns through token claims.
const (
	RoleAdmin    = "admin"
	RoleSupplier = "proveedor"
)

// Session is the sole stateful entity of the portal client.
type Session = session.Session

// Status is the lifecycle state of the client session.
type Status = session.Status

const (
	StatusAnonymous      = session.StatusAnonymous
	StatusAuthenticating = session.StatusAuthenticating
	StatusAuthenticated  = session.StatusAuthenticated
	StatusExpired        = session.StatusExpired
)

// Snapshot is an immutable Session view plus its generation.
type Snapshot = session.Snapshot

// Credentials is the email/password pair exchanged for a token.
type Credentials = identity.Credentials

// IdentityInfo is the opaque external-user reference.
type IdentityInfo = identity.Info

// TokenResult carries a bearer token and everything decoded from its claims.
type TokenResult = identity.TokenResult

// IdentityProvider is the contract every identity backend must satisfy.
// [identity.HTTPProvider] is the production implementation.
type IdentityProvider = identity.Provider
