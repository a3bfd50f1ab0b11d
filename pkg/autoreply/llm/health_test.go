package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifyCredential(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"accepted", http.StatusOK, nil},
		{"rejected", http.StatusUnauthorized, ErrNoCredential},
		{"forbidden", http.StatusForbidden, ErrNoCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "test-key", slog.Default())
			err := c.VerifyCredential(context.Background())

			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestVerifyCredentialProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", slog.Default())
	err := c.VerifyCredential(context.Background())

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !perr.Transient {
		t.Error("5xx health failure should classify as transient")
	}
}

func TestVerifyCredentialWithoutKey(t *testing.T) {
	c := NewClient("http://localhost:1", "", slog.Default())
	if err := c.VerifyCredential(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}
