package jsonrpc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgate-dev/solgate"
	"github.com/solgate-dev/solgate/provider/jsonrpc"
)

func TestCall_SendsJSONRPCEnvelope(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"slot":4242}}`))
	}))
	defer srv.Close()

	p := jsonrpc.New("helius", srv.URL, jsonrpc.WithAPIKey("secret-key"))
	require.Equal(t, "helius", p.Name())

	result, err := p.Call(context.Background(), solgate.RPCRequest{
		Method: "getSlot",
		Params: json.RawMessage(`[{"commitment":"finalized"}]`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"slot":4242}`, string(result))

	assert.Equal(t, "/secret-key", gotPath)
	assert.Equal(t, "2.0", gotBody["jsonrpc"])
	assert.Equal(t, "getSlot", gotBody["method"])
}

func TestCall_MapsHTTPStatusToSentinels(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized:        solgate.ErrAuthFailed,
		http.StatusForbidden:           solgate.ErrAuthFailed,
		http.StatusTooManyRequests:     solgate.ErrRateLimited,
		http.StatusInternalServerError: solgate.ErrProviderUnavailable,
		http.StatusBadGateway:          solgate.ErrProviderUnavailable,
	}

	for status, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		p := jsonrpc.New("p", srv.URL)
		_, err := p.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
		assert.ErrorIsf(t, err, want, "status %d", status)
		srv.Close()
	}
}

func TestCall_RPCErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`))
	}))
	defer srv.Close()

	p := jsonrpc.New("p", srv.URL)
	_, err := p.Call(context.Background(), solgate.RPCRequest{Method: "getNope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, solgate.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "Method not found")
}

func TestCall_ConnectionRefused(t *testing.T) {
	p := jsonrpc.New("p", "http://127.0.0.1:1")
	_, err := p.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
	assert.ErrorIs(t, err, solgate.ErrProviderUnavailable)
}

func TestCall_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := jsonrpc.New("p", srv.URL)
	_, err := p.Call(ctx, solgate.RPCRequest{Method: "getSlot"})
	require.Error(t, err)
}
