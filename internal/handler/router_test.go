package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/authpage/internal/auth"
	"github.com/hitoshi/authpage/internal/metrics"
	"github.com/hitoshi/authpage/internal/middleware"
)

func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()
	if deps.AuthService == nil {
		deps.AuthService = &mockAuthService{}
	}
	if deps.Flows == nil {
		deps.Flows = auth.NewFlowCodec(testFlowSecret, 0)
	}
	return NewRouter(deps)
}

func TestRouter_Home_HasSecurityHeadersAndRequestID(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", got)
	}
	if cookieNamed(w.Result(), middleware.CSRFCookieName) == nil {
		t.Error("home page should issue a CSRF cookie")
	}
}

func TestRouter_StateChangingRoutes_RequireCSRF(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	for _, path := range []string{"/api/auth/signin/google", "/api/auth/signout"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))

			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403", w.Code)
			}
		})
	}
}

func TestRouter_SignIn_WithCSRFHeader_Redirects(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin/google", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "csrf"})
	req.Header.Set(middleware.CSRFHeaderName, "csrf")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Location"), "https://accounts.google.com/") {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}
}

func TestRouter_AuthRoutes_RateLimited(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.PerMinute(1))
	t.Cleanup(rl.Stop)
	router := newTestRouter(t, &RouterDeps{RateLimiter: rl})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/auth/callback/google?error=access_denied", nil))
	if first.Code != http.StatusSeeOther {
		t.Fatalf("first status = %d, want 303", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/auth/callback/google?error=access_denied", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.Code)
	}

	// ページ表示はレート制限の対象外
	page := httptest.NewRecorder()
	router.ServeHTTP(page, httptest.NewRequest(http.MethodGet, "/", nil))
	if page.Code != http.StatusOK {
		t.Errorf("page status = %d, want 200", page.Code)
	}
}

func TestRouter_Metrics_ExposesCollectedValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	router := newTestRouter(t, &RouterDeps{Collector: collector, Gatherer: reg})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	for _, name := range []string{
		`authpage_session_lookups_total{result="unauthenticated"} 1`,
		`authpage_http_requests_total{status_code="200"}`,
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output should contain %q", name)
		}
	}
}

func TestRouter_Health_NotRegisteredWithoutChecker(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRouter_RequestIDPropagatesToLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	router := newTestRouter(t, &RouterDeps{Logger: logger})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Errorf("access log should carry the request id, got: %s", buf.String())
	}
}
