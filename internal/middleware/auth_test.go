package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticResolver map[string]string

func (s staticResolver) Resolve(token string) (string, error) {
	if userID, ok := s[token]; ok {
		return userID, nil
	}
	return "", errors.New("unknown token")
}

func TestAuthMiddleware(t *testing.T) {
	var seen string
	handler := AuthMiddleware(staticResolver{"good": "alice"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
		user   string
	}{
		{name: "valid", header: "Bearer good", status: http.StatusNoContent, user: "alice"},
		{name: "lowercase scheme", header: "bearer good", status: http.StatusNoContent, user: "alice"},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
		{name: "malformed", header: "Bearer", status: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer bad", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, seen)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestGetUserIDWithoutIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetUserID(req.Context()))
	assert.Equal(t, "bob", GetUserID(WithUserID(req.Context(), "bob")))
}
