package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Sessions are HMAC-signed cookies carrying "role:id". Two roles exist:
// library readers and admins. The signature covers the role so a reader
// cannot rewrite their cookie into an admin session.

type Role string

const (
	RoleReader Role = "reader"
	RoleAdmin  Role = "admin"
)

type ctxKey string

const (
	sessionCookieName = "session"
	identityCtxKey    = ctxKey("identity")
)

// Identity is the authenticated principal attached to a request context.
type Identity struct {
	Role Role
	ID   uint
}

// Verifier is an optional callback to validate that a session's principal
// still exists. Set it during app bootstrap via SetVerifier. If nil, no
// extra verification is performed.
type Verifier func(ctx context.Context, role Role, id uint) bool

var verifier Verifier

// SetVerifier configures the global verifier used by the Require middlewares.
func SetVerifier(v Verifier) { verifier = v }

// Secret returns SESSION_SECRET or default dev value.
func Secret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

func sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CreateSession sets a signed cookie identifying the principal.
func CreateSession(w http.ResponseWriter, role Role, id uint) {
	payload := string(role) + ":" + strconv.FormatUint(uint64(id), 10)
	value := payload + "." + sign(payload)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(14 * 24 * time.Hour),
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates the cookie and returns the identity it names.
func ParseSession(r *http.Request) (Identity, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return Identity{}, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return Identity{}, false
	}
	payload, sig := parts[0], parts[1]
	if !hmac.Equal([]byte(sig), []byte(sign(payload))) {
		return Identity{}, false
	}
	roleStr, idStr, ok := strings.Cut(payload, ":")
	if !ok {
		return Identity{}, false
	}
	role := Role(roleStr)
	if role != RoleReader && role != RoleAdmin {
		return Identity{}, false
	}
	id64, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id64 == 0 {
		return Identity{}, false
	}
	return Identity{Role: role, ID: uint(id64)}, true
}

// WithIdentity stores the identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFromContext extracts the identity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityCtxKey)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// ReaderID returns the reader id from context, 0 when the request is not an
// authenticated reader.
func ReaderID(ctx context.Context) uint {
	if id, ok := IdentityFromContext(ctx); ok && id.Role == RoleReader {
		return id.ID
	}
	return 0
}

// AdminID returns the admin id from context, 0 when not an admin session.
func AdminID(ctx context.Context) uint {
	if id, ok := IdentityFromContext(ctx); ok && id.Role == RoleAdmin {
		return id.ID
	}
	return 0
}

// Middleware attaches the session identity to the request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := ParseSession(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireReader gates a handler behind an authenticated reader session.
func RequireReader(next http.Handler) http.Handler { return require(RoleReader, "/login", next) }

// RequireAdmin gates a handler behind an authenticated admin session.
func RequireAdmin(next http.Handler) http.Handler { return require(RoleAdmin, "/admin/login", next) }

func require(role Role, loginPath string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok || id.Role != role {
			deny(w, r, loginPath)
			return
		}
		if verifier != nil && !verifier(r.Context(), id.Role, id.ID) {
			// Session refers to a deleted account: clear and treat as unauthorized.
			ClearSession(w)
			deny(w, r, loginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, r *http.Request, loginPath string) {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"unauthorized"}`)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}
