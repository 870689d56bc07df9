package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/authpage/internal/auth"
	"github.com/hitoshi/authpage/internal/metrics"
	"github.com/hitoshi/authpage/internal/model"
)

func authenticatedResult(token string, expires time.Time) auth.SessionResult {
	return auth.SessionResult{
		Status:  auth.StatusAuthenticated,
		User:    &model.User{ID: "user-123", Name: "Test User"},
		Session: &model.Session{Token: token, UserID: "user-123", Expires: expires},
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionMiddleware_ValidSession_InjectsResult(t *testing.T) {
	resolver := &mockSessionResolver{
		getSessionFn: func(ctx context.Context, token string) (auth.SessionResult, error) {
			if token == "valid-token" {
				return authenticatedResult(token, time.Now().Add(time.Hour)), nil
			}
			return auth.SessionResult{Status: auth.StatusUnauthenticated}, nil
		},
	}
	collector := &recordingCollector{}

	var captured auth.SessionResult
	handler := NewSessionMiddleware(resolver, CookieConfig{}, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := SessionFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = result
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !captured.Authenticated() {
		t.Fatal("expected authenticated session in context")
	}
	if captured.User.ID != "user-123" {
		t.Errorf("user ID = %q, want %q", captured.User.ID, "user-123")
	}
	if c := findCookie(w.Result(), SessionCookieName); c != nil {
		t.Errorf("session cookie should not be rewritten without refresh, got %+v", c)
	}
	if len(collector.lookups) != 1 || collector.lookups[0] != metrics.LookupAuthenticated {
		t.Errorf("lookups = %v, want [%s]", collector.lookups, metrics.LookupAuthenticated)
	}
}

func TestSessionMiddleware_NoCookie_PassesThroughUnauthenticated(t *testing.T) {
	var receivedToken = "unset"
	resolver := &mockSessionResolver{
		getSessionFn: func(ctx context.Context, token string) (auth.SessionResult, error) {
			receivedToken = token
			return auth.SessionResult{Status: auth.StatusUnauthenticated}, nil
		},
	}
	collector := &recordingCollector{}

	handlerCalled := false
	handler := NewSessionMiddleware(resolver, CookieConfig{}, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		result, _ := SessionFromContext(r.Context())
		if result.Authenticated() {
			t.Error("expected unauthenticated result")
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !handlerCalled {
		t.Fatal("handler should be called for unauthenticated requests")
	}
	if receivedToken != "" {
		t.Errorf("resolver received token %q, want empty", receivedToken)
	}
	if findCookie(w.Result(), SessionCookieName) != nil {
		t.Error("no cookie should be cleared when none was sent")
	}
	if len(collector.lookups) != 1 || collector.lookups[0] != metrics.LookupUnauthenticated {
		t.Errorf("lookups = %v, want [%s]", collector.lookups, metrics.LookupUnauthenticated)
	}
}

func TestSessionMiddleware_InvalidCookie_ClearsCookie(t *testing.T) {
	resolver := &mockSessionResolver{}

	handler := NewSessionMiddleware(resolver, CookieConfig{}, metrics.Nop{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	c := findCookie(w.Result(), SessionCookieName)
	if c == nil {
		t.Fatal("expected session cookie to be cleared")
	}
	if c.MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative", c.MaxAge)
	}
	if c.Value != "" {
		t.Errorf("cleared cookie value = %q, want empty", c.Value)
	}
}

func TestSessionMiddleware_RefreshedSession_RewritesCookie(t *testing.T) {
	expires := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	resolver := &mockSessionResolver{
		getSessionFn: func(ctx context.Context, token string) (auth.SessionResult, error) {
			result := authenticatedResult(token, expires)
			result.Refreshed = true
			return result, nil
		},
	}

	handler := NewSessionMiddleware(resolver, CookieConfig{Secure: true}, metrics.Nop{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	c := findCookie(w.Result(), SessionCookieName)
	if c == nil {
		t.Fatal("expected refreshed session cookie")
	}
	if c.Value != "valid-token" {
		t.Errorf("cookie value = %q, want %q", c.Value, "valid-token")
	}
	if !c.HttpOnly || !c.Secure {
		t.Errorf("cookie should be HttpOnly and Secure: %+v", c)
	}
	if !c.Expires.Equal(expires) {
		t.Errorf("Expires = %v, want %v", c.Expires, expires)
	}
}

func TestSessionMiddleware_ResolverError_StoresErrorInContext(t *testing.T) {
	resolveErr := errors.New("db down")
	resolver := &mockSessionResolver{
		getSessionFn: func(ctx context.Context, token string) (auth.SessionResult, error) {
			return auth.SessionResult{}, resolveErr
		},
	}
	collector := &recordingCollector{}

	var capturedErr error
	handler := NewSessionMiddleware(resolver, CookieConfig{}, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, capturedErr = SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "some-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !errors.Is(capturedErr, resolveErr) {
		t.Errorf("context error = %v, want %v", capturedErr, resolveErr)
	}
	if findCookie(w.Result(), SessionCookieName) != nil {
		t.Error("cookie should be kept when lookup fails")
	}
	if len(collector.lookups) != 1 || collector.lookups[0] != metrics.LookupError {
		t.Errorf("lookups = %v, want [%s]", collector.lookups, metrics.LookupError)
	}
}

func TestSessionFromContext_NoValue_ReturnsUnauthenticated(t *testing.T) {
	result, err := SessionFromContext(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Status != auth.StatusUnauthenticated {
		t.Errorf("status = %v, want %v", result.Status, auth.StatusUnauthenticated)
	}
}

func TestContextWithSession_RoundTrip(t *testing.T) {
	want := authenticatedResult("token", time.Now().Add(time.Hour))
	ctx := ContextWithSession(context.Background(), want, nil)

	got, err := SessionFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Session.Token != "token" {
		t.Errorf("token = %q, want %q", got.Session.Token, "token")
	}
}
