// Package synthetic provides an in-process provider that fabricates
// responses. It serves as the cascade terminal when every real provider
// is exhausted, and doubles as a test stand-in.
package synthetic

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/solgate-dev/solgate"
)

// Provider is a synthetic RPC provider.
type Provider struct {
	name         string
	latency      time.Duration
	failAfter    int
	callCount    atomic.Int64
	staticErr    error
	responseFunc func(solgate.RPCRequest) ([]byte, error)
}

var _ solgate.Provider = (*Provider)(nil)

// Option configures a synthetic Provider.
type Option func(*Provider)

// New creates a synthetic provider with the given options.
func New(opts ...Option) *Provider {
	p := &Provider{
		name: "synthetic",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithName sets the provider name.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithLatency adds simulated latency to each call.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// WithFailAfter makes the provider fail after N successful calls.
func WithFailAfter(n int) Option {
	return func(p *Provider) { p.failAfter = n }
}

// WithError makes the provider always return this error.
func WithError(err error) Option {
	return func(p *Provider) { p.staticErr = err }
}

// WithResponseFunc sets a custom response function.
func WithResponseFunc(fn func(solgate.RPCRequest) ([]byte, error)) Option {
	return func(p *Provider) { p.responseFunc = fn }
}

func (p *Provider) Name() string { return p.name }

// Call fabricates a response. The default payload marks itself degraded
// so downstream consumers can tell it apart from real provider data.
func (p *Provider) Call(ctx context.Context, req solgate.RPCRequest) ([]byte, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	count := p.callCount.Add(1)

	if p.staticErr != nil {
		return nil, p.staticErr
	}

	if p.failAfter > 0 && int(count) > p.failAfter {
		return nil, solgate.ErrProviderUnavailable
	}

	if p.responseFunc != nil {
		return p.responseFunc(req)
	}

	payload, _ := json.Marshal(map[string]any{
		"degraded": true,
		"method":   req.Method,
		"result":   nil,
	})
	return payload, nil
}

// CallCount returns the number of calls made to the provider.
func (p *Provider) CallCount() int64 { return p.callCount.Load() }
