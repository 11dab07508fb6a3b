package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/services"
)

type stubVerifier map[string]*domain.User

func (s stubVerifier) Verify(_ context.Context, token string) (*domain.User, error) {
	switch token {
	case "gone":
		return nil, services.ErrUnauthorized
	case "broken":
		return nil, errors.New("db down")
	}
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, services.ErrInvalidToken
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	v := stubVerifier{
		"cust":  {ID: "u1", Username: "alice", Role: domain.RoleCustomer},
		"admin": {ID: "a1", Username: "ops", Role: domain.RoleAdmin},
	}
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", Authenticate(v), func(c *gin.Context) {
		u, _ := UserFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "uid": c.GetString(userIDKey)})
	})
	r.GET("/admin", Authenticate(v), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/unguarded-admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func doAuth(r http.Handler, path, header string) (int, map[string]any) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestAuthenticate(t *testing.T) {
	r := newAuthRouter()
	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"ok", "Bearer cust", http.StatusOK, ""},
		{"scheme is case-insensitive", "bearer cust", http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "unauthorized"},
		{"wrong scheme", "Basic cust", http.StatusUnauthorized, "unauthorized"},
		{"empty token", "Bearer   ", http.StatusUnauthorized, "unauthorized"},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, "unauthorized"},
		{"deleted user", "Bearer gone", http.StatusUnauthorized, "unauthorized"},
		{"store failure", "Bearer broken", http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doAuth(r, "/me", tc.header)
			if status != tc.status {
				t.Fatalf("status = %d; want %d (%v)", status, tc.status, body)
			}
			if tc.code == "" {
				if body["id"] != "u1" || body["uid"] != "u1" {
					t.Fatalf("caller not stored: %v", body)
				}
				return
			}
			if body["code"] != tc.code || body["request_id"] == "" || body["message"] == "" {
				t.Fatalf("unexpected envelope: %v", body)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newAuthRouter()

	if status, _ := doAuth(r, "/admin", "Bearer admin"); status != http.StatusNoContent {
		t.Fatalf("admin: status = %d", status)
	}
	status, body := doAuth(r, "/admin", "Bearer cust")
	if status != http.StatusForbidden || body["code"] != "forbidden" {
		t.Fatalf("customer: %d %v", status, body)
	}
	if status, _ := doAuth(r, "/unguarded-admin", ""); status != http.StatusUnauthorized {
		t.Fatalf("no caller: status = %d", status)
	}
}

func TestBearerToken(t *testing.T) {
	for in, want := range map[string]string{
		"Bearer abc":      "abc",
		"  BEARER  abc  ": "abc",
		"Bearer":          "",
		"Token abc":       "",
	} {
		got, ok := bearerToken(in)
		if got != want || ok != (want != "") {
			t.Fatalf("bearerToken(%q) = %q,%v", in, got, ok)
		}
	}
}
