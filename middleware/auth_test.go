package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func protected(roles ...string) (http.Handler, *string) {
	var actor string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = GetActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	return Authenticate(testSecret)(Authorize(roles...)(h)), &actor
}

func TestAuthenticate(t *testing.T) {
	valid := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 7, "role": RoleAdmin, "email": "ops@example.test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, testSecret, jwt.MapClaims{"user_id": 7, "role": RoleAdmin, "exp": time.Now().Add(-time.Hour).Unix()})
	forged := signToken(t, []byte("other"), jwt.MapClaims{"user_id": 7, "role": RoleAdmin})
	operator := signToken(t, testSecret, jwt.MapClaims{"user_id": 9, "role": RoleOperator})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"valid header", "Bearer " + valid, "", http.StatusNoContent},
		{"valid query", "", valid, http.StatusNoContent},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, "", http.StatusUnauthorized},
		{"wrong role", "Bearer " + operator, "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := protected(RoleAdmin)
			req := httptest.NewRequest(http.MethodGet, "/admin/profiles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.query != "" {
				q := req.URL.Query()
				q.Set("token", tt.query)
				req.URL.RawQuery = q.Encode()
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetActorFromContext(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"email wins", jwt.MapClaims{"role": RoleAdmin, "email": "a@example.test", "sub": "s1", "user_id": 3}, "a@example.test"},
		{"subject", jwt.MapClaims{"role": RoleAdmin, "sub": "s1", "user_id": 3}, "s1"},
		{"user id", jwt.MapClaims{"role": RoleAdmin, "user_id": "3"}, "user:3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, actor := protected(RoleAdmin)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, tt.claims))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.want, *actor)
		})
	}
}
