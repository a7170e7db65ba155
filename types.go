package solgate

import (
	"encoding/json"
	"time"
)

// RPCRequest is a provider-agnostic JSON-RPC style call.
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`

	// RequiresEnhancedData restricts routing to providers that expose
	// enriched transaction metadata.
	RequiresEnhancedData bool `json:"-"`

	// Preferred, when set, biases routing toward the named provider if
	// it is eligible.
	Preferred string `json:"-"`

	// Tier classifies how quickly the response goes stale; the gateway
	// uses it to pick a cache TTL.
	Tier VolatilityTier `json:"-"`
}

// CacheKey returns the request fingerprint used by the cache layer.
func (r RPCRequest) CacheKey() string {
	return r.Method + ":" + string(r.Params)
}

// RPCResult is the normalized outcome of a routed call. Degraded results
// come from the synthetic fallback and must be distinguishable from
// genuine provider responses by callers.
type RPCResult struct {
	Payload  json.RawMessage `json:"payload"`
	Provider string          `json:"provider"`
	Attempts int             `json:"attempts"`
	Degraded bool            `json:"degraded"`
	Cached   bool            `json:"cached"`
	Latency  time.Duration   `json:"-"`
}

// WebhookEvent is one validated blockchain event from an inbound webhook.
type WebhookEvent struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Signature string          `json:"signature"`
	Timestamp time.Time       `json:"timestamp"`
	Slot      uint64          `json:"slot,omitempty"`
	Transfers []TokenTransfer `json:"transfers,omitempty"`
	Instrs    []Instruction   `json:"instructions,omitempty"`
	Accounts  []AccountChange `json:"accounts,omitempty"`
}

// TokenTransfer describes one token movement inside an event.
type TokenTransfer struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Mint      string  `json:"mint"`
	AmountUSD float64 `json:"amount_usd"`
	Symbol    string  `json:"symbol,omitempty"`
	Name      string  `json:"name,omitempty"`
}

// Instruction describes one program invocation inside an event.
type Instruction struct {
	ProgramID string   `json:"program_id"`
	Accounts  []string `json:"accounts,omitempty"`
	Data      string   `json:"data,omitempty"`
}

// AccountChange describes a native balance change for one account.
type AccountChange struct {
	Account       string `json:"account"`
	LamportsDelta int64  `json:"lamports_delta"`
}

// Signal is a typed, scored observation extracted from an event.
// Strength and Confidence are both in [0, 1].
type Signal struct {
	Type       string         `json:"type"`
	Strength   float64        `json:"strength"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	EventID    string         `json:"event_id"`
}

// RiskIndicator flags a potential hazard extracted from an event.
// Severity is in [0, 1].
type RiskIndicator struct {
	Type        string  `json:"type"`
	Severity    float64 `json:"severity"`
	Description string  `json:"description"`
	EventID     string  `json:"event_id"`
}

// DispatchResult records the outcome of delivering one event's signals to
// one downstream target.
type DispatchResult struct {
	Target  string        `json:"target"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency"`
	Err     string        `json:"error,omitempty"`
}
