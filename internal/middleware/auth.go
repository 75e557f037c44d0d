package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const RoleKey contextKey = "role"

// Role is the access level a caller authenticates as.
type Role string

const (
	RoleServiceRole   Role = "service_role"
	RoleAnon          Role = "anon"
	RoleAuthenticated Role = "authenticated"
)

// AuthSettings carries the static access keys and the optional JWT secret.
type AuthSettings struct {
	ServiceRoleKey string
	AnonKey        string
	JWTSecret      string
}

func (s AuthSettings) disabled() bool {
	return s.ServiceRoleKey == "" && s.AnonKey == "" && s.JWTSecret == ""
}

// RoleClaims is an HS256 token whose role claim names the caller's access level.
type RoleClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireRole admits callers presenting a credential for one of the allowed
// roles, either in the apikey header or as a Bearer token. With no keys and no
// secret configured every request passes.
func RequireRole(s AuthSettings, allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.disabled() {
				next.ServeHTTP(w, r)
				return
			}

			credential := credentialFrom(r)
			if credential == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing authorization header", "auth_required")
				return
			}

			role, ok := s.resolve(credential)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "invalid credentials", "auth_invalid")
				return
			}
			if !slices.Contains(allowed, role) {
				writeAuthError(w, http.StatusForbidden, "role not allowed", "forbidden")
				return
			}

			ctx := context.WithValue(r.Context(), RoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRole returns the role RequireRole authenticated.
func GetRole(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(RoleKey).(Role)
	return role, ok
}

func credentialFrom(r *http.Request) string {
	if key := r.Header.Get("apikey"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func (s AuthSettings) resolve(credential string) (Role, bool) {
	if equalKey(credential, s.ServiceRoleKey) {
		return RoleServiceRole, true
	}
	if equalKey(credential, s.AnonKey) {
		return RoleAnon, true
	}
	if s.JWTSecret == "" {
		return "", false
	}

	claims := &RoleClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.JWTSecret), nil
	})
	if err != nil || !token.Valid || claims.Role == "" {
		return "", false
	}
	return Role(claims.Role), true
}

func equalKey(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"code":  code,
	})
}
