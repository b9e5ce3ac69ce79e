package security

import (
	"crypto/subtle"
	"net/http"
)

// AdminHeader carries the administrative password
const AdminHeader = "X-Admin-Password"

// AdminAuth guards administrative endpoints with a shared password
type AdminAuth struct {
	password string
}

// NewAdminAuth creates a new admin password check
func NewAdminAuth(password string) *AdminAuth {
	return &AdminAuth{password: password}
}

// Check compares candidate with the configured password in constant time.
// An empty configured password rejects everything.
func (a *AdminAuth) Check(candidate string) bool {
	if a.password == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.password), []byte(candidate)) == 1
}

// FromRequest reads the password from the header, or from the token query
// parameter for clients such as browsers opening a websocket
func (a *AdminAuth) FromRequest(r *http.Request) bool {
	if v := r.Header.Get(AdminHeader); v != "" {
		return a.Check(v)
	}
	return a.Check(r.URL.Query().Get("token"))
}

// Middleware rejects requests without the admin password
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.FromRequest(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Senha de administrador inválida"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
