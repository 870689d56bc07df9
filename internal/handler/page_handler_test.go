package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/authpage/internal/auth"
	"github.com/hitoshi/authpage/internal/middleware"
	"github.com/hitoshi/authpage/internal/model"
	"github.com/hitoshi/authpage/internal/testutil"
)

func servePage(t *testing.T, ctx context.Context) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	NewPageHandler().Home(w, req)
	return w
}

func TestPageHandler_Home_Unauthenticated_RendersSignInOnly(t *testing.T) {
	ctx := middleware.ContextWithSession(context.Background(), auth.SessionResult{Status: auth.StatusUnauthenticated}, nil)
	ctx = middleware.ContextWithCSRFToken(ctx, "csrf-123")

	w := servePage(t, ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cc)
	}

	doc := testutil.ParseHTML(t, w.Body)
	if testutil.FindByTestID(doc, "signin") == nil {
		t.Error("expected sign-in control")
	}
	if testutil.FindByTestID(doc, "signout") != nil {
		t.Error("sign-out control must not be rendered")
	}

	var csrf string
	for _, input := range testutil.FindAll(doc, "input") {
		if testutil.Attr(input, "name") == "csrfToken" {
			csrf = testutil.Attr(input, "value")
		}
	}
	if csrf != "csrf-123" {
		t.Errorf("csrf field = %q, want %q", csrf, "csrf-123")
	}
}

func TestPageHandler_Home_Authenticated_RendersSignOutOnly(t *testing.T) {
	result := auth.SessionResult{
		Status:  auth.StatusAuthenticated,
		User:    &model.User{ID: "user-1"},
		Session: &model.Session{Token: "t", UserID: "user-1", Expires: time.Now().Add(time.Hour)},
	}
	ctx := middleware.ContextWithSession(context.Background(), result, nil)

	w := servePage(t, ctx)

	doc := testutil.ParseHTML(t, w.Body)
	if testutil.FindByTestID(doc, "signout") == nil {
		t.Error("expected sign-out control")
	}
	if testutil.FindByTestID(doc, "signin") != nil {
		t.Error("sign-in control must not be rendered")
	}
}

func TestPageHandler_Home_NoSessionMiddleware_RendersSignIn(t *testing.T) {
	w := servePage(t, context.Background())

	doc := testutil.ParseHTML(t, w.Body)
	if testutil.FindByTestID(doc, "signin") == nil {
		t.Error("expected sign-in control")
	}
}

func TestPageHandler_Home_LookupError_Returns500Page(t *testing.T) {
	ctx := middleware.ContextWithSession(context.Background(), auth.SessionResult{}, errors.New("db down"))

	w := servePage(t, ctx)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	doc := testutil.ParseHTML(t, w.Body)
	if testutil.FindByTestID(doc, "signin") != nil || testutil.FindByTestID(doc, "signout") != nil {
		t.Error("no session control should be rendered on lookup failure")
	}
	code := testutil.FindByTestID(doc, "error-code")
	if code == nil || testutil.Text(code) != model.ErrCodeCallback {
		t.Errorf("error code element missing or wrong")
	}
}
