package medusa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

const cartJSON = `{"cart":{"id":"cart_1","currency_code":"npr","subtotal":1500,"item_total":1500,"shipping_total":100,"tax_total":0,"total":1600,"discount_total":0,
"promotions":[{"id":"promo_1","code":"DASHAIN","is_automatic":false,"application_method":{"type":"percentage","value":10}}],
"items":[{"id":"li_1","title":"Dhaka Topi","unit_price":750,"thumbnail":"https://cdn/topi.png","quantity":2,"variant_id":"variant_1","product_id":"prod_1"}]}}`

func TestClientAddLineItemRequest(t *testing.T) {
	var captured *http.Request
	var payload map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return jsonResponse(http.StatusOK, cartJSON), nil
	})

	client := newTestClient(t, rt)
	cart, err := client.AddLineItem(context.Background(), "cart_1", "variant_1", 2)
	if err != nil {
		t.Fatalf("add line item: %v", err)
	}

	if captured.Method != http.MethodPost {
		t.Fatalf("unexpected method %s", captured.Method)
	}
	if got := captured.URL.String(); got != "http://medusa.test/store/carts/cart_1/line-items" {
		t.Fatalf("unexpected URL %q", got)
	}
	if captured.Header.Get(publishableKeyHeader) != "pk_test" {
		t.Fatalf("publishable key header missing")
	}
	if payload["variant_id"] != "variant_1" || payload["quantity"] != float64(2) {
		t.Fatalf("unexpected payload %+v", payload)
	}

	if cart.ID != "cart_1" || len(cart.Items) != 1 {
		t.Fatalf("unexpected cart %+v", cart)
	}
	if !cart.Items[0].UnitPrice.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("unexpected unit price %s", cart.Items[0].UnitPrice)
	}
	if cart.Promotions[0].ApplicationMethod == nil || cart.Promotions[0].ApplicationMethod.Type != "percentage" {
		t.Fatalf("promotion application method not decoded: %+v", cart.Promotions[0])
	}
}

func TestClientUpdateLineItemRequest(t *testing.T) {
	var capturedURL string
	var payload map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		_ = json.NewDecoder(req.Body).Decode(&payload)
		return jsonResponse(http.StatusOK, cartJSON), nil
	})

	client := newTestClient(t, rt)
	if _, err := client.UpdateLineItem(context.Background(), "cart_1", "li_1", 3); err != nil {
		t.Fatalf("update line item: %v", err)
	}
	if capturedURL != "http://medusa.test/store/carts/cart_1/line-items/li_1" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if payload["quantity"] != float64(3) {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestClientDeleteLineItem(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodDelete {
			t.Fatalf("unexpected method %s", req.Method)
		}
		return jsonResponse(http.StatusOK, `{"id":"li_1","object":"line-item","deleted":true}`), nil
	})

	client := newTestClient(t, rt)
	resp, err := client.DeleteLineItem(context.Background(), "cart_1", "li_1")
	if err != nil {
		t.Fatalf("delete line item: %v", err)
	}
	if resp.Deleted == nil || !*resp.Deleted {
		t.Fatalf("expected deleted=true, got %+v", resp)
	}
}

func TestClientDeleteLineItemMissingDeletedField(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"id":"li_1","object":"line-item"}`), nil
	})

	client := newTestClient(t, rt)
	resp, err := client.DeleteLineItem(context.Background(), "cart_1", "li_1")
	if err != nil {
		t.Fatalf("delete line item: %v", err)
	}
	if resp.Deleted != nil {
		t.Fatalf("expected deleted to be absent, got %v", *resp.Deleted)
	}
}

func TestClientGetCartNotFoundIsNil(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"type":"not_found","message":"Cart not found"}`), nil
	})

	client := newTestClient(t, rt)
	cart, err := client.GetCart(context.Background(), "cart_missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cart != nil {
		t.Fatalf("expected nil cart, got %+v", cart)
	}
}

func TestClientErrorCodes(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{status: http.StatusBadRequest, code: pkgerrors.CodeUpstream},
		{status: http.StatusInternalServerError, code: pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(tt.status, `{"message":"nope"}`), nil
		})
		client := newTestClient(t, rt)
		_, err := client.UpdateLineItem(context.Background(), "cart_1", "li_1", 5)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != tt.code {
			t.Fatalf("status %d: expected code %s, got %v", tt.status, tt.code, err)
		}
		if dump := pkgerrors.Dump(err); dump.UpstreamStatus != tt.status {
			t.Fatalf("status %d: dump should carry upstream status, got %d", tt.status, dump.UpstreamStatus)
		}
	}
}

func TestClientCreateCartSendsRegion(t *testing.T) {
	var payload map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		_ = json.NewDecoder(req.Body).Decode(&payload)
		return jsonResponse(http.StatusOK, `{"cart":{"id":"cart_new","items":[]}}`), nil
	})

	client := newTestClient(t, rt)
	cart, err := client.CreateCart(context.Background(), "reg_np")
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if cart.ID != "cart_new" || payload["region_id"] != "reg_np" {
		t.Fatalf("unexpected create result cart=%+v payload=%+v", cart, payload)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "pk"); err == nil {
		t.Fatalf("expected base url error")
	}
	if _, err := NewClient("http://medusa.test", " "); err == nil {
		t.Fatalf("expected key error")
	}
}

func TestCartFindItem(t *testing.T) {
	cart := &Cart{Items: []LineItem{{ID: "li_1", VariantID: "v1"}}}
	if item, ok := cart.FindItem("li_1"); !ok || item.VariantID != "v1" {
		t.Fatalf("expected li_1")
	}
	if _, ok := cart.FindItem("li_2"); ok {
		t.Fatalf("did not expect li_2")
	}
	var nilCart *Cart
	if _, ok := nilCart.FindItem("li_1"); ok {
		t.Fatalf("nil cart has no items")
	}
}

func newTestClient(t *testing.T, rt http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient("http://medusa.test/", "pk_test", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
