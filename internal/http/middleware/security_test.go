package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveSecure(t *testing.T, opt SecurityOptions, pre gin.HandlerFunc, prep func(*http.Request)) http.Header {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	if prep != nil {
		prep(req)
	}
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := serveSecure(t, SecurityOptions{}, nil, nil)

	if h.Get("X-Content-Type-Options") != "nosniff" ||
		h.Get("X-Frame-Options") != "DENY" ||
		h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	if h.Get("Permissions-Policy") != "" || h.Get("Cache-Control") != "" || h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("unexpected optional headers: %#v", h)
	}
	want := "X-Request-ID, Idempotency-Replayed, ETag, Retry-After"
	if got := h.Get("Access-Control-Expose-Headers"); got != want {
		t.Fatalf("expose headers = %q; want %q", got, want)
	}
}

func TestSecurityHeaders_ExposeMergesWithoutDuplicates(t *testing.T) {
	pre := func(c *gin.Context) {
		c.Header("Access-Control-Expose-Headers", "Foo, etag")
		c.Next()
	}
	h := serveSecure(t, SecurityOptions{}, pre, nil)

	want := "Foo, etag, X-Request-ID, Idempotency-Replayed, Retry-After"
	if got := h.Get("Access-Control-Expose-Headers"); got != want {
		t.Fatalf("expose headers = %q; want %q", got, want)
	}
}

func TestSecurityHeaders_PolicyNoStoreHSTS(t *testing.T) {
	h := serveSecure(t, SecurityOptions{
		EnableHSTS:   true,
		HSTSMaxAge:   24 * time.Hour,
		NoStore:      true,
		EnablePolicy: true,
	}, nil, func(r *http.Request) { r.TLS = &tls.ConnectionState{} })

	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("missing policy headers: %#v", h)
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("missing cache headers: %#v", h)
	}
	if got := h.Get("Strict-Transport-Security"); got != "max-age=86400; includeSubDomains; preload" {
		t.Fatalf("unexpected HSTS %q", got)
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true}

	if got := serveSecure(t, opt, nil, nil).Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("plain HTTP must not get HSTS, got %q", got)
	}
	h := serveSecure(t, opt, nil, func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") })
	if got := h.Get("Strict-Transport-Security"); !strings.HasPrefix(got, "max-age=15552000") {
		t.Fatalf("expected default 180d HSTS via proxy header, got %q", got)
	}
}
