package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sessionCookie(t *testing.T, role Role, id uint) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	CreateSession(w, role, id)
	res := w.Result()
	for _, c := range res.Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	c := sessionCookie(t, RoleReader, 42)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	id, ok := ParseSession(r)
	if !ok {
		t.Fatal("expected valid session")
	}
	if id.Role != RoleReader || id.ID != 42 {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestTamperedRoleRejected(t *testing.T) {
	c := sessionCookie(t, RoleReader, 42)
	// Rewrite role while keeping the original signature.
	parts := strings.SplitN(c.Value, ".", 2)
	c.Value = strings.Replace(parts[0], "reader", "admin", 1) + "." + parts[1]
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	if _, ok := ParseSession(r); ok {
		t.Fatal("tampered session accepted")
	}
}

func TestRequireReaderRedirectsAnonymous(t *testing.T) {
	h := Middleware(RequireReader(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login got %s", loc)
	}
}

func TestRequireAdminRejectsReaderSession(t *testing.T) {
	h := Middleware(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	r := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	r.Header.Set("Accept", "application/json")
	r.AddCookie(sessionCookie(t, RoleReader, 7))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestVerifierClearsStaleSession(t *testing.T) {
	SetVerifier(func(_ context.Context, _ Role, _ uint) bool { return false })
	t.Cleanup(func() { SetVerifier(nil) })

	h := Middleware(RequireReader(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(sessionCookie(t, RoleReader, 9))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected stale session cookie to be cleared")
	}
}
