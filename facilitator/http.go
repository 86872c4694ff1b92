package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentcommerce/x402-a2a/types"
)

const defaultTimeout = 30 * time.Second

// HTTPClient talks to a facilitator service over its REST surface:
// POST /verify, POST /settle, GET /supported.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// HTTPOption customizes an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHeader adds a header to every facilitator request, e.g. an API key.
func WithHeader(key, value string) HTTPOption {
	return func(c *HTTPClient) {
		c.headers[key] = value
	}
}

// WithHTTPClient replaces the underlying http client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// NewHTTPClient builds a facilitator client for the given base URL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify implements Client.
func (c *HTTPClient) Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerifyResponse, error) {
	req := types.VerifyRequest{
		X402Version:         types.X402Version,
		PaymentPayload:      *payload,
		PaymentRequirements: *requirements,
	}
	var resp types.VerifyResponse
	if err := c.post(ctx, "/verify", req, &resp); err != nil {
		return nil, fmt.Errorf("facilitator verify: %w", err)
	}
	return &resp, nil
}

// Settle implements Client.
func (c *HTTPClient) Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.SettleResponse, error) {
	req := types.VerifyRequest{
		X402Version:         types.X402Version,
		PaymentPayload:      *payload,
		PaymentRequirements: *requirements,
	}
	var resp types.SettleResponse
	if err := c.post(ctx, "/settle", req, &resp); err != nil {
		return nil, fmt.Errorf("facilitator settle: %w", err)
	}
	if resp.Network == "" {
		resp.Network = requirements.Network
	}
	return &resp, nil
}

// Supported implements Client.
func (c *HTTPClient) Supported(ctx context.Context) (*types.SupportedResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/supported", nil)
	if err != nil {
		return nil, err
	}
	var resp types.SupportedResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, fmt.Errorf("facilitator supported: %w", err)
	}
	return &resp, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &types.Error{
			Code:    types.ErrSettlementFailed,
			Message: fmt.Sprintf("facilitator returned status %d: %s", resp.StatusCode, raw),
		}
	}
	return json.Unmarshal(raw, out)
}
