package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/testcenter/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireCandidate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		status int
		key    string
	}{
		{name: "missing", status: http.StatusUnauthorized},
		{name: "header", header: "Bearer 12|abc", status: http.StatusOK, key: "12|abc"},
		{name: "lowercase scheme", header: "bearer 12|abc", status: http.StatusOK, key: "12|abc"},
		{name: "query fallback", query: "?token=ws-token", status: http.StatusOK, key: "ws-token"},
		{name: "wrong scheme", header: "Basic dXNlcg==", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", RequireCandidate(func(token string) service.Candidate {
				return service.Candidate{Key: token}
			}), func(c *gin.Context) {
				cand, ok := GetCandidate(c)
				if !ok {
					t.Error("candidate not set")
				}
				c.String(http.StatusOK, cand.Key)
			})

			req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.key != "" && w.Body.String() != tt.key {
				t.Errorf("key = %q, want %q", w.Body.String(), tt.key)
			}
		})
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := &RateLimiter{visitors: map[string]*visitor{}, rate: 2, interval: time.Minute}
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	if !rl.allow("a", now) || !rl.allow("a", now) {
		t.Fatal("first two requests rejected")
	}
	if rl.allow("a", now) {
		t.Error("third request allowed")
	}
	if !rl.allow("b", now) {
		t.Error("other key throttled")
	}
	if !rl.allow("a", now.Add(time.Minute)) {
		t.Error("bucket not refilled")
	}
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	big := strings.Repeat("answer ", 400)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/big", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("Content-Encoding = %q", w.Header().Get("Content-Encoding"))
	}
	plain, err := io.ReadAll(brotli.NewReader(w.Body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(plain) != big {
		t.Error("round trip mismatch")
	}

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Errorf("small body: encoding=%q body=%q", w.Header().Get("Content-Encoding"), w.Body.String())
	}
}
