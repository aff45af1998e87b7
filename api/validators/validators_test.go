package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type addPayload struct {
	VariantID string `json:"variant_id" validate:"required,max=128"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=99"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":120}`))
	var payload addPayload
	err := DecodeJSONBody(req, &payload)

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["variant_id"] != "is required" || details["quantity"] != "must be at most 99" {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"variant_id":"v1","price":1}`))
	var payload addPayload
	if err := DecodeJSONBody(req, &payload); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodySuccess(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"variant_id":"v1","quantity":2}`))
	var payload addPayload
	if err := DecodeJSONBody(req, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.VariantID != "v1" || payload.Quantity != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?original=12&bad=x", nil)
	if v, err := ParseQueryInt(req, "original", 0, 0, 100); err != nil || v != 12 {
		t.Fatalf("expected 12, got %d (%v)", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 7, 0, 100); err != nil || v != 7 {
		t.Fatalf("expected default, got %d (%v)", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 0, 0, 100); err == nil {
		t.Fatalf("expected numeric error")
	}
}

func TestPathID(t *testing.T) {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("lineItemId", "li_123")
	rc.URLParams.Add("blank", " ")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	if id, err := PathID(req, "lineItemId"); err != nil || id != "li_123" {
		t.Fatalf("expected li_123, got %q (%v)", id, err)
	}
	if _, err := PathID(req, "blank"); err == nil {
		t.Fatalf("expected blank id to fail")
	}
}
