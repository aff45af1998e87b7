package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront/pkg/config"
)

func sessionConfig() config.SessionConfig {
	return config.SessionConfig{Header: "X-Session-Id", Cookie: "sf_session", IssueOnGet: true}
}

func captureSession(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionFromHeader(t *testing.T) {
	var got string
	handler := Session(sessionConfig(), nil)(captureSession(&got))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	req.Header.Set("X-Session-Id", "4F7C2F0E-4B5D-4A7E-9A39-1D2F3C4B5A6E")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != testSessionID {
		t.Fatalf("expected normalized session id, got %q", got)
	}
	if rec.Header().Get("X-Session-Id") != testSessionID {
		t.Fatalf("expected session header echoed")
	}
}

func TestSessionFromCookie(t *testing.T) {
	var got string
	handler := Session(sessionConfig(), nil)(captureSession(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "sf_session", Value: testSessionID})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got != testSessionID {
		t.Fatalf("expected cookie session, got %q", got)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("existing session should not be reissued")
	}
}

func TestSessionIssuedOnGet(t *testing.T) {
	var got string
	handler := Session(sessionConfig(), nil)(captureSession(&got))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if got == "" {
		t.Fatalf("expected a session to be issued")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != got || !cookies[0].HttpOnly {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
}

func TestSessionRequiredForMutations(t *testing.T) {
	called := false
	handler := Session(sessionConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil))
	if called || rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session, got %d (called=%v)", rec.Code, called)
	}
}

func TestSessionRejectsMalformedID(t *testing.T) {
	var got string
	handler := Session(sessionConfig(), nil)(captureSession(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Id", "sf:state:other")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || got != "" {
		t.Fatalf("expected malformed id rejection, got %d", rec.Code)
	}
}
