package ingest

import (
	"encoding/json"
	"net/http"

	"github.com/solgate-dev/solgate"
)

// rpcRequest is the inbound shape of the routed RPC surface.
type rpcRequest struct {
	Method    string                 `json:"method"`
	Params    json.RawMessage        `json:"params,omitempty"`
	Tier      solgate.VolatilityTier `json:"tier,omitempty"`
	Enhanced  bool                   `json:"enhanced,omitempty"`
	Preferred string                 `json:"preferred,omitempty"`
}

// handleRPC proxies one call through the gateway. Degraded synthetic
// responses still return 200; the body's degraded flag tells the caller.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(&req); err != nil || req.Method == "" {
		s.writeError(w, http.StatusBadRequest, "method is required")
		return
	}

	result, err := s.gateway.Call(r.Context(), solgate.RPCRequest{
		Method:               req.Method,
		Params:               req.Params,
		Tier:                 req.Tier,
		RequiresEnhancedData: req.Enhanced,
		Preferred:            req.Preferred,
	})
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
