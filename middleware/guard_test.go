package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MatSV27/neo-portal-proveedores/gate"
	"github.com/MatSV27/neo-portal-proveedores/session"
)

func guardedHandler(t *testing.T, st *session.Store, routes Routes, required ...string) (http.Handler, *bool) {
	t.Helper()

	reached := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		res, ok := GateResultFromContext(r.Context())
		if !ok || !res.Allowed() {
			t.Errorf("handler ran without an allow result in context")
		}
		w.WriteHeader(http.StatusOK)
	})
	return Guard(gate.New(st, nil), routes, required...)(inner), &reached
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func signedIn(role string) session.Session {
	now := time.Now()
	return session.Session{
		Identity:      "uid-1",
		Token:         "tok-1",
		Role:          role,
		TokenIssuedAt: now,
		TokenExpiry:   now.Add(time.Hour),
		Status:        session.StatusAuthenticated,
	}
}

func TestGuardAdmitsMatchingRole(t *testing.T) {
	st := session.NewStore()
	st.Set(signedIn("admin"))
	h, reached := guardedHandler(t, st, Routes{}, "admin")

	rec := serve(h, "/admin")
	if rec.Code != http.StatusOK || !*reached {
		t.Fatalf("expected handler to run, got %d", rec.Code)
	}
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	h, reached := guardedHandler(t, session.NewStore(), Routes{Login: "/login"}, "proveedor")

	rec := serve(h, "/dashboard")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if *reached {
		t.Fatalf("handler must not run for anonymous sessions")
	}
}

func TestGuardRedirectsWrongRoleToBaseline(t *testing.T) {
	st := session.NewStore()
	st.Set(signedIn("proveedor"))

	routes := Routes{
		Login: "/login",
		Baseline: func(role string) string {
			if role == "admin" {
				return "/admin"
			}
			return "/dashboard"
		},
	}
	h, reached := guardedHandler(t, st, routes, "admin")

	rec := serve(h, "/admin/suppliers")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected baseline redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if *reached {
		t.Fatalf("handler must not run for insufficient role")
	}
	if snap := st.Get(); snap.Status != session.StatusAuthenticated {
		t.Fatalf("role denial must keep the session: %v", snap.Status)
	}
}

func TestGuardHoldsWhileRestoring(t *testing.T) {
	st := session.NewStore()
	st.Set(session.Session{Status: session.StatusAuthenticating})
	h, reached := guardedHandler(t, st, Routes{PendingRetryAfter: 2}, "proveedor")

	rec := serve(h, "/dashboard")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while restoring, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}
	if *reached {
		t.Fatalf("handler must not run while restoring")
	}
}

func TestGuardWithoutRolesAdmitsAnyAuthenticated(t *testing.T) {
	st := session.NewStore()
	st.Set(signedIn("proveedor"))
	h, reached := guardedHandler(t, st, Routes{})

	if rec := serve(h, "/profile"); rec.Code != http.StatusOK || !*reached {
		t.Fatalf("expected handler to run, got %d", rec.Code)
	}
}
