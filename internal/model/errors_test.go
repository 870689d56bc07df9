package model

import (
	"errors"
	"strings"
	"testing"
)

func TestAuthError_ErrorIncludesCodeAndCause(t *testing.T) {
	cause := errors.New("token endpoint returned 500")
	err := NewOAuthCallbackError(cause)

	if !strings.Contains(err.Error(), "[OAuthCallback]") {
		t.Errorf("Error() should contain code, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), cause.Error()) {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestAuthError_WithoutCause(t *testing.T) {
	err := NewAccessDeniedError()

	if err.Unwrap() != nil {
		t.Error("Unwrap() should be nil without cause")
	}
	if err.Error() != "[AccessDenied] "+err.Message {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAuthError_ErrorsAs(t *testing.T) {
	var wrapped error = errors.Join(errors.New("context"), NewCallbackError(nil))

	var authErr *AuthError
	if !errors.As(wrapped, &authErr) {
		t.Fatal("errors.As should find *AuthError")
	}
	if authErr.Category != CategoryPersistence {
		t.Errorf("Category = %q, want %q", authErr.Category, CategoryPersistence)
	}
}

func TestNewConfigurationError_Reason(t *testing.T) {
	if got := NewConfigurationError("").Message; strings.Contains(got, ":") {
		t.Errorf("message without reason should not contain separator, got %q", got)
	}
	if got := NewConfigurationError("unknown provider").Message; !strings.Contains(got, "unknown provider") {
		t.Errorf("message should contain reason, got %q", got)
	}
}

func TestLookupAuthError(t *testing.T) {
	tests := []struct {
		code         string
		wantCode     string
		wantCategory string
	}{
		{ErrCodeConfiguration, ErrCodeConfiguration, CategoryConfiguration},
		{ErrCodeAccessDenied, ErrCodeAccessDenied, CategoryProvider},
		{ErrCodeOAuthSignin, ErrCodeOAuthSignin, CategoryProvider},
		{ErrCodeOAuthCallback, ErrCodeOAuthCallback, CategoryProvider},
		{ErrCodeOAuthAccountNotLinked, ErrCodeOAuthAccountNotLinked, CategoryProvider},
		{ErrCodeCallback, ErrCodeCallback, CategoryPersistence},
		{ErrCodeVerification, ErrCodeVerification, CategoryProvider},
		{"", ErrCodeDefault, CategoryProvider},
		{"<script>", ErrCodeDefault, CategoryProvider},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := LookupAuthError(tt.code)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.Message == "" || got.Action == "" {
				t.Error("Message and Action should be set")
			}
		})
	}
}
