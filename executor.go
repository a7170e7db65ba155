package solgate

import (
	"context"
	"time"
)

// execute runs the retry/cascade sequence for one call: the best eligible
// provider with bounded retries, then the next-ranked provider with the
// failed ones excluded, terminating in the synthetic fallback. The only
// errors it returns are fatal ones (bad request, auth) or the caller's
// own context expiring.
func (g *Gateway) execute(ctx context.Context, req RPCRequest) (RPCResult, error) {
	op := Operation{
		RequiresEnhancedData: req.RequiresEnhancedData,
		Preferred:            req.Preferred,
		Exclude:              make(map[string]bool),
	}

	attempts := 0
	for {
		cand, err := g.router.Select(ctx, op)
		if err != nil {
			break
		}

		res, fatal := g.callWithRetry(ctx, cand, req, &attempts)
		if fatal != nil {
			return RPCResult{}, fatal
		}
		if res != nil {
			return *res, nil
		}
		op.Exclude[cand.Name] = true
	}

	// Cascade exhausted: the synthetic responder guarantees a result.
	attempts++
	payload, _ := g.synthetic.Call(ctx, req)
	g.meter.OnResult(ResultEvent{
		Provider: g.synthetic.Name(),
		Method:   req.Method,
		Success:  true,
		Degraded: true,
	})
	return RPCResult{
		Payload:  payload,
		Provider: g.synthetic.Name(),
		Attempts: attempts,
		Degraded: true,
	}, nil
}

// callWithRetry runs up to 1+MaxRetries attempts against one provider.
// It returns (result, nil) on success, (nil, err) on a fatal error and
// (nil, nil) when the provider is exhausted and the cascade should
// advance.
func (g *Gateway) callWithRetry(ctx context.Context, cand Candidate, req RPCRequest, attempts *int) (*RPCResult, error) {
	bo := newBackoff(g.retry)

	for {
		// Reserve quota before the call; losing the reservation race
		// means another goroutine took the last slot and this provider
		// is no longer eligible.
		if err := g.usage.Record(ctx, cand.Name, cand.Cost); err != nil {
			return nil, nil
		}

		*attempts++
		g.meter.OnRoute(RouteEvent{Provider: cand.Name, Method: req.Method, Attempt: *attempts})

		callCtx, cancel := context.WithTimeout(ctx, g.retry.CallTimeout)
		start := time.Now()
		payload, err := cand.State.Adapter.Call(callCtx, req)
		cancel()
		duration := time.Since(start)

		cand.State.recordCall(err == nil, duration)
		g.meter.OnResult(ResultEvent{
			Provider: cand.Name,
			Method:   req.Method,
			Success:  err == nil,
			Duration: duration,
			Cost:     cand.Cost,
			Error:    err,
		})

		if err == nil {
			g.breaker.RecordSuccess(cand.Name)
			return &RPCResult{
				Payload:  payload,
				Provider: cand.Name,
				Attempts: *attempts,
				Latency:  duration,
			}, nil
		}

		g.breaker.RecordFailure(cand.Name)
		if IsFatal(err) {
			return nil, &GatewayError{Err: err, Provider: cand.Name, Method: req.Method, Attempts: *attempts}
		}
		if g.breaker.State(cand.Name) == CircuitOpen {
			return nil, nil
		}
		if !bo.more() {
			return nil, nil
		}
		if err := g.sleep(ctx, bo.next()); err != nil {
			return nil, &GatewayError{Err: err, Provider: cand.Name, Method: req.Method, Attempts: *attempts}
		}
	}
}
