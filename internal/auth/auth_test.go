package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stagehand-audio/ampctld/internal/auth"
)

func TestMiddleware_AlwaysPassesThrough(t *testing.T) {
	svc, err := auth.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Close)

	called := false
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/zones", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !called {
		t.Error("middleware did not call next handler")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestMiddleware_NoCredentials_StillPasses(t *testing.T) {
	svc, err := auth.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Close)

	called := false
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/factory_reset", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !called {
		t.Error("middleware blocked a request with no credentials — auth is out of scope, it must never reject")
	}
}

func TestNewService_MissingConfigDir_NoError(t *testing.T) {
	svc, err := auth.NewService("/does/not/exist")
	if err != nil {
		t.Fatalf("NewService with non-existent dir: %v", err)
	}
	t.Cleanup(svc.Close)
}
