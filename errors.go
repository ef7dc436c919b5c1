package portalauth

import (
	"github.com/MatSV27/neo-portal-proveedores/apiclient"
	"github.com/MatSV27/neo-portal-proveedores/identity"
)

var (
	// ErrInvalidCredentials is returned by Login when the identity service
	// rejects the email/password pair.
	ErrInvalidCredentials = identity.ErrInvalidCredentials
	// ErrAccountExists is returned by Register when the email is taken.
	ErrAccountExists = identity.ErrAccountExists
	// ErrWeakCredential is returned by Register when the password fails the
	// identity service's policy.
	ErrWeakCredential = identity.ErrWeakCredential
	// ErrIdentityUnavailable is returned when the identity service cannot be
	// reached or answers outside its contract.
	ErrIdentityUnavailable = identity.ErrUnavailable

	// ErrNotAuthenticated is returned by operations that require a session
	// when none is present. No network traffic is produced.
	ErrNotAuthenticated = apiclient.ErrNotAuthenticated
	// ErrSessionExpired is returned when the backend rejected the session
	// token. The session has already transitioned to expired.
	ErrSessionExpired = apiclient.ErrSessionExpired
	// ErrNetworkUnavailable wraps transport-level request failures. The
	// session is left untouched.
	ErrNetworkUnavailable = apiclient.ErrNetworkUnavailable
)

// RequestError is a non-2xx backend response other than 401.
type RequestError = apiclient.RequestError
