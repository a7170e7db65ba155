// Package dispatch fans extracted signals out to downstream consumers.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/solgate-dev/solgate"
)

// Envelope is the payload delivered to every target for one event.
type Envelope struct {
	EventID   string                  `json:"event_id"`
	Source    string                  `json:"source"`
	Signature string                  `json:"signature"`
	Timestamp time.Time               `json:"timestamp"`
	Signals   []solgate.Signal        `json:"signals,omitempty"`
	Risks     []solgate.RiskIndicator `json:"risks,omitempty"`
}

// Target consumes one envelope. Implementations must honor ctx.
type Target interface {
	Name() string
	Deliver(ctx context.Context, env Envelope) error
}

// Dispatcher delivers envelopes to every registered target concurrently.
// One slow or failing target never blocks the others.
type Dispatcher struct {
	targets        []Target
	defaultTimeout time.Duration
	meter          solgate.Meter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMeter sets the meter receiving per-target dispatch events.
func WithMeter(m solgate.Meter) Option {
	return func(d *Dispatcher) { d.meter = m }
}

// WithDefaultTimeout sets the per-target timeout used when a target has
// no timeout of its own.
func WithDefaultTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.defaultTimeout = t }
}

// New creates a dispatcher over the given targets.
func New(targets []Target, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		targets:        targets,
		defaultTimeout: 5 * time.Second,
		meter:          solgate.NoopMeter{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers the envelope to every target and waits for all of
// them. The returned slice has one entry per target in registration
// order.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) []solgate.DispatchResult {
	results := make([]solgate.DispatchResult, len(d.targets))

	done := make(chan struct{})
	for i, target := range d.targets {
		go func(i int, target Target) {
			defer func() { done <- struct{}{} }()

			tctx, cancel := context.WithTimeout(ctx, d.timeoutFor(target))
			defer cancel()

			start := time.Now()
			err := target.Deliver(tctx, env)
			elapsed := time.Since(start)

			res := solgate.DispatchResult{
				Target:  target.Name(),
				OK:      err == nil,
				Latency: elapsed,
			}
			if err != nil {
				res.Err = err.Error()
			}
			results[i] = res

			d.meter.OnDispatch(solgate.DispatchEvent{
				Target:   target.Name(),
				EventID:  env.EventID,
				Success:  err == nil,
				Duration: elapsed,
				Error:    err,
			})
		}(i, target)
	}
	for range d.targets {
		<-done
	}
	return results
}

func (d *Dispatcher) timeoutFor(t Target) time.Duration {
	if ht, ok := t.(*HTTPTarget); ok && ht.timeout > 0 {
		return ht.timeout
	}
	return d.defaultTimeout
}

// HTTPTarget POSTs envelopes as JSON to a fixed URL.
type HTTPTarget struct {
	name    string
	url     string
	timeout time.Duration
	client  *http.Client
}

var _ Target = (*HTTPTarget)(nil)

// HTTPOption configures an HTTPTarget.
type HTTPOption func(*HTTPTarget)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTarget) { t.client = c }
}

// WithTimeout sets the per-delivery timeout for this target.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTarget) { t.timeout = d }
}

// NewHTTPTarget creates an HTTP delivery target.
func NewHTTPTarget(name, url string, opts ...HTTPOption) *HTTPTarget {
	t := &HTTPTarget{
		name:   name,
		url:    url,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FromConfig builds HTTP targets from config declarations.
func FromConfig(cfgs []solgate.TargetConfig, opts ...HTTPOption) []Target {
	targets := make([]Target, 0, len(cfgs))
	for _, c := range cfgs {
		per := opts
		if c.Timeout > 0 {
			per = append([]HTTPOption{WithTimeout(c.Timeout)}, opts...)
		}
		targets = append(targets, NewHTTPTarget(c.Name, c.URL, per...))
	}
	return targets
}

func (t *HTTPTarget) Name() string { return t.name }

func (t *HTTPTarget) Deliver(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("dispatch: marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("dispatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: %s: %w", t.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("dispatch: %s: status %d", t.name, resp.StatusCode)
	}
	return nil
}

// FuncTarget adapts a function into a Target, mainly for tests and
// in-process consumers.
type FuncTarget struct {
	TargetName string
	Fn         func(ctx context.Context, env Envelope) error
}

var _ Target = (*FuncTarget)(nil)

func (t *FuncTarget) Name() string { return t.TargetName }

func (t *FuncTarget) Deliver(ctx context.Context, env Envelope) error {
	return t.Fn(ctx, env)
}
