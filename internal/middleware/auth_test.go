package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func roleEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := GetRole(r.Context())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(role))
	})
}

func signRole(t *testing.T, secret, role string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RoleClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireRole(t *testing.T) {
	settings := AuthSettings{ServiceRoleKey: "service-key", AnonKey: "anon-key", JWTSecret: testJWTSecret}

	tests := []struct {
		name       string
		allowed    []Role
		setHeaders func(t *testing.T, r *http.Request)
		wantStatus int
		wantRole   string
	}{
		{
			name:       "missing credentials",
			allowed:    []Role{RoleServiceRole},
			setHeaders: func(t *testing.T, r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "service key in apikey header",
			allowed: []Role{RoleServiceRole},
			setHeaders: func(t *testing.T, r *http.Request) {
				r.Header.Set("apikey", "service-key")
			},
			wantStatus: http.StatusOK,
			wantRole:   "service_role",
		},
		{
			name:    "anon key as bearer",
			allowed: []Role{RoleAnon, RoleServiceRole},
			setHeaders: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Bearer anon-key")
			},
			wantStatus: http.StatusOK,
			wantRole:   "anon",
		},
		{
			name:    "anon key on service route",
			allowed: []Role{RoleServiceRole},
			setHeaders: func(t *testing.T, r *http.Request) {
				r.Header.Set("apikey", "anon-key")
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:    "unknown key",
			allowed: []Role{RoleServiceRole},
			setHeaders: func(t *testing.T, r *http.Request) {
				r.Header.Set("apikey", "nope")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "signed service role token",
			allowed: []Role{RoleServiceRole},
			setHeaders: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signRole(t, testJWTSecret, "service_role", time.Hour))
			},
			wantStatus: http.StatusOK,
			wantRole:   "service_role",
		},
		{
			name:    "expired token",
			allowed: []Role{RoleServiceRole},
			setHeaders: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signRole(t, testJWTSecret, "service_role", -time.Hour))
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "token signed with another secret",
			allowed: []Role{RoleServiceRole},
			setHeaders: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signRole(t, "another-secret-another-secret-00", "service_role", time.Hour))
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", nil)
			tt.setHeaders(t, req)
			w := httptest.NewRecorder()

			RequireRole(settings, tt.allowed...)(roleEcho()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantRole, w.Body.String())
			}
		})
	}
}

func TestRequireRole_DisabledWithoutKeys(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()

	RequireRole(AuthSettings{}, RoleServiceRole)(roleEcho()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRequireRole_ErrorBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()

	RequireRole(AuthSettings{ServiceRoleKey: "k"}, RoleServiceRole)(roleEcho()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"missing authorization header","code":"auth_required"}`, w.Body.String())
}
