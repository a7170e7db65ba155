package ingest

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/solgate-dev/solgate"
	"github.com/solgate-dev/solgate/dispatch"
)

const maxBodyBytes = 1 << 20

// ingestResponse is the body returned for every accepted POST.
type ingestResponse struct {
	Status     string                   `json:"status"`
	Accepted   int                      `json:"accepted"`
	Duplicates int                      `json:"duplicates"`
	Signals    int                      `json:"signals"`
	Risks      int                      `json:"risks"`
	Dispatch   []solgate.DispatchResult `json:"dispatch,omitempty"`
}

// handleWebhook processes one inbound delivery. Checks run in a fixed
// order: rate limit, then auth, then body validation, then dedup. The
// 200 is written only after dispatch for every fresh event has finished
// or hit the global dispatch timeout.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	source := chi.URLParam(r, "provider")

	if ok, retryAfter := s.limiter.Allow(clientIP(r)); !ok {
		secs := int(retryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		s.emitIngest(source, start, false, false, solgate.ErrRateLimited)
		return
	}

	if !s.authorized(r) {
		s.writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
		s.emitIngest(source, start, false, false, solgate.ErrAuthFailed)
		return
	}

	events, err := decodeEvents(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		s.emitIngest(source, start, false, false, solgate.ErrInvalidPayload)
		return
	}

	resp := ingestResponse{Status: "ok"}
	dctx, cancel := contextWithTimeout(r, s.cfg.DispatchTimeout)
	defer cancel()

	for _, ev := range events {
		if s.dedup.Seen(ev.Signature) {
			resp.Duplicates++
			s.emitIngest(source, start, false, true, nil)
			continue
		}
		resp.Accepted++
		s.emitIngest(source, start, true, false, nil)

		ev.ID = uuid.NewString()
		ev.Source = source

		findings := s.extractor.Extract(ev)
		resp.Signals += len(findings.Signals)
		resp.Risks += len(findings.Risks)

		if s.dispatcher != nil && (len(findings.Signals) > 0 || len(findings.Risks) > 0) {
			results := s.dispatcher.Dispatch(dctx, dispatch.Envelope{
				EventID:   ev.ID,
				Source:    ev.Source,
				Signature: ev.Signature,
				Timestamp: ev.Timestamp,
				Signals:   findings.Signals,
				Risks:     findings.Risks,
			})
			resp.Dispatch = append(resp.Dispatch, results...)
		}
	}

	if resp.Accepted == 0 && resp.Duplicates > 0 {
		resp.Status = "duplicate"
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleMetrics serves the collector snapshot as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		s.writeError(w, http.StatusNotFound, "metrics not enabled")
		return
	}
	s.writeJSON(w, http.StatusOK, s.metrics.SnapshotNow())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.SharedSecret == "" {
		return true
	}
	want := "Bearer " + s.cfg.SharedSecret
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// decodeEvents accepts either a JSON array of events or a single event
// object, matching how providers deliver batched and single webhooks.
func decodeEvents(r *http.Request) ([]solgate.WebhookEvent, error) {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}

	var events []solgate.WebhookEvent
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &events); err != nil {
			return nil, fmt.Errorf("invalid event array")
		}
	} else {
		var ev solgate.WebhookEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("invalid event object")
		}
		events = []solgate.WebhookEvent{ev}
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("empty event batch")
	}
	for i, ev := range events {
		if ev.Signature == "" {
			return nil, fmt.Errorf("events[%d]: transaction signature is required", i)
		}
		if ev.Timestamp.IsZero() {
			return nil, fmt.Errorf("events[%d]: timestamp is required", i)
		}
	}
	return events, nil
}

func (s *Server) emitIngest(source string, start time.Time, accepted, duplicate bool, err error) {
	s.meter.OnIngest(solgate.IngestEvent{
		Source:    source,
		Accepted:  accepted,
		Duplicate: duplicate,
		Duration:  s.now().Sub(start),
		Error:     err,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
