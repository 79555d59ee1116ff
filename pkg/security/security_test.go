package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestCORSExposesRequestID(t *testing.T) {
	r := newRouter(CORS([]string{"http://localhost:3000"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q, want whitelisted origin echoed", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID" {
		t.Errorf("expose-headers = %q, want X-Request-ID", got)
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	r := newRouter(CORS([]string{"http://localhost:3000"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want empty for unlisted origin", got)
	}
}

func TestRateLimiterKeysByToken(t *testing.T) {
	r := newRouter(RateLimiter(1, time.Minute))

	do := func(token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/ping", nil)
		if token != "" {
			req.Header.Set("Authorization", token)
		}
		r.ServeHTTP(w, req)
		return w
	}

	if w := do("Bearer alice"); w.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", w.Code)
	}
	// 同一令牌超限
	if w := do("Bearer alice"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request same token = %d, want 429", w.Code)
	} else if w.Header().Get("Retry-After") != "60" {
		t.Errorf("retry-after = %q, want 60", w.Header().Get("Retry-After"))
	}
	// 同一 IP 上的另一个令牌不受影响
	if w := do("Bearer bob"); w.Code != http.StatusOK {
		t.Errorf("other token = %d, want 200", w.Code)
	}
	// 匿名请求按 IP 独立计数
	if w := do(""); w.Code != http.StatusOK {
		t.Errorf("anonymous request = %d, want 200", w.Code)
	}
}
