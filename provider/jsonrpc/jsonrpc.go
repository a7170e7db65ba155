// Package jsonrpc provides the HTTP adapter for JSON-RPC style Solana
// data providers (Helius, QuickNode, Alchemy, the public RPC, ...).
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/solgate-dev/solgate"
)

// Provider issues JSON-RPC 2.0 calls against one provider endpoint.
type Provider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ solgate.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithAPIKey appends the key as the final URL path segment, the way
// Helius-style endpoints expect it.
func WithAPIKey(key string) Option {
	return func(p *Provider) { p.apiKey = key }
}

// New creates a JSON-RPC provider adapter.
func New(name, baseURL string, opts ...Option) *Provider {
	p := &Provider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromConfig creates an adapter from a provider declaration.
func FromConfig(cfg solgate.ProviderConfig, opts ...Option) *Provider {
	if cfg.APIKey != "" {
		opts = append([]Option{WithAPIKey(cfg.APIKey)}, opts...)
	}
	return New(cfg.Name, cfg.Endpoint, opts...)
}

func (p *Provider) Name() string { return p.name }

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call issues one JSON-RPC request and returns the raw result payload.
func (p *Provider) Call(ctx context.Context, req solgate.RPCRequest) ([]byte, error) {
	body, err := json.Marshal(rpcEnvelope{
		JSONRPC: "2.0",
		ID:      1,
		Method:  req.Method,
		Params:  req.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: marshal request: %w", err)
	}

	url := p.baseURL
	if p.apiKey != "" {
		url += "/" + p.apiKey
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", solgate.ErrProviderUnavailable, p.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s: status %d", solgate.ErrAuthFailed, p.name, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", solgate.ErrRateLimited, p.name)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: %s: status %d", solgate.ErrProviderUnavailable, p.name, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: read response: %w", err)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("jsonrpc: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: %s: rpc error %d: %s",
			solgate.ErrProviderUnavailable, p.name, parsed.Error.Code, parsed.Error.Message)
	}
	if parsed.Result == nil {
		return nil, fmt.Errorf("jsonrpc: %s: no result in response", p.name)
	}
	return parsed.Result, nil
}
