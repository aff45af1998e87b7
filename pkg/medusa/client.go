package medusa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const (
	defaultTimeout             = 10 * time.Second
	publishableKeyHeader       = "x-publishable-api-key"
	errorBodyReadLimit   int64 = 1024
)

var (
	errBaseURLRequired = errors.New("medusa base url is required")
	errKeyRequired     = errors.New("medusa publishable key is required")
)

// StatusError carries a non-2xx store API response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// StatusCode exposes the upstream status to error dumps.
func (e *StatusError) StatusCode() int { return e.Status }

// Client talks to the Medusa store API on behalf of storefront sessions.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	publishableKey string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a store API client.
func NewClient(baseURL, publishableKey string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	key := strings.TrimSpace(publishableKey)
	if key == "" {
		return nil, errKeyRequired
	}

	client := &Client{
		baseURL:        base,
		publishableKey: key,
		httpClient:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// CreateCart creates an empty cart, optionally bound to a region.
func (c *Client) CreateCart(ctx context.Context, regionID string) (*Cart, error) {
	body := map[string]any{}
	if regionID != "" {
		body["region_id"] = regionID
	}
	var resp CartResponse
	if err := c.do(ctx, http.MethodPost, "store/carts", body, &resp); err != nil {
		return nil, err
	}
	if resp.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "create cart returned no cart")
	}
	return resp.Cart, nil
}

// GetCart retrieves a cart. A missing cart yields (nil, nil).
func (c *Client) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	var resp CartResponse
	err := c.do(ctx, http.MethodGet, "store/carts/"+url.PathEscape(cartID), nil, &resp)
	if err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return resp.Cart, nil
}

// AddLineItem adds quantity of a variant to the cart.
func (c *Client) AddLineItem(ctx context.Context, cartID, variantID string, quantity int) (*Cart, error) {
	if strings.TrimSpace(variantID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	body := map[string]any{"variant_id": variantID, "quantity": quantity}
	var resp CartResponse
	if err := c.do(ctx, http.MethodPost, cartPath(cartID, "line-items"), body, &resp); err != nil {
		return nil, err
	}
	return resp.Cart, nil
}

// UpdateLineItem sets the quantity of an existing line item.
func (c *Client) UpdateLineItem(ctx context.Context, cartID, lineItemID string, quantity int) (*Cart, error) {
	if strings.TrimSpace(lineItemID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	body := map[string]any{"quantity": quantity}
	var resp CartResponse
	if err := c.do(ctx, http.MethodPost, cartPath(cartID, "line-items", lineItemID), body, &resp); err != nil {
		return nil, err
	}
	return resp.Cart, nil
}

// DeleteLineItem removes a line item.
func (c *Client) DeleteLineItem(ctx context.Context, cartID, lineItemID string) (*DeleteResponse, error) {
	if strings.TrimSpace(lineItemID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	var resp DeleteResponse
	if err := c.do(ctx, http.MethodDelete, cartPath(cartID, "line-items", lineItemID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping checks the store API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

func cartPath(cartID string, parts ...string) string {
	segments := []string{"store", "carts", url.PathEscape(cartID)}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(p))
	}
	return strings.Join(segments, "/")
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "medusa client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal store api request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build store api request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(publishableKeyHeader, c.publishableKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute store api request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		statusErr := &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		code := pkgerrors.CodeDependency
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			code = pkgerrors.CodeUpstream
		}
		return pkgerrors.Wrap(code, statusErr, fmt.Sprintf("%s %s failed", method, path))
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode store api response")
	}
	return nil
}
