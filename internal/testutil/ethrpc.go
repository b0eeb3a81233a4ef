package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// JSONRPCRequest represents a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCHandler answers one JSON-RPC method. A non-nil error is returned to
// the client as a JSON-RPC error object.
type RPCHandler func(params json.RawMessage) (any, error)

// MockEthRPC is an httptest JSON-RPC node that dispatches by method name and
// understands batch requests.
type MockEthRPC struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]RPCHandler
	methods  []string
	batches  int
}

// StartMockEthRPC starts a node with the given handlers. The server is
// closed when the test ends.
func StartMockEthRPC(t *testing.T, handlers map[string]RPCHandler) *MockEthRPC {
	t.Helper()

	m := &MockEthRPC{handlers: handlers}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Server.Close)
	return m
}

// Methods returns every method name received, in order.
func (m *MockEthRPC) Methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.methods...)
}

// Batches returns how many batch requests were received.
func (m *MockEthRPC) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

func (m *MockEthRPC) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var reqs []JSONRPCRequest
		if err := json.Unmarshal(body, &reqs); err != nil {
			writeJSON(w, jsonRPCResponse{JSONRPC: "2.0", ID: json.RawMessage(`null`), Error: &jsonRPCError{Code: -32700, Message: "parse error"}})
			return
		}
		m.mu.Lock()
		m.batches++
		m.mu.Unlock()

		resps := make([]jsonRPCResponse, len(reqs))
		for i, req := range reqs {
			resps[i] = m.dispatch(req)
		}
		writeJSON(w, resps)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, jsonRPCResponse{JSONRPC: "2.0", ID: json.RawMessage(`null`), Error: &jsonRPCError{Code: -32700, Message: "parse error"}})
		return
	}
	writeJSON(w, m.dispatch(req))
}

func (m *MockEthRPC) dispatch(req JSONRPCRequest) jsonRPCResponse {
	m.mu.Lock()
	m.methods = append(m.methods, req.Method)
	handler, ok := m.handlers[req.Method]
	m.mu.Unlock()

	resp := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}
	if !ok {
		resp.Error = &jsonRPCError{Code: -32601, Message: "method not found: " + req.Method}
		return resp
	}
	result, err := handler(req.Params)
	if err != nil {
		resp.Error = &jsonRPCError{Code: -32000, Message: err.Error()}
		return resp
	}
	if result == nil {
		result = json.RawMessage(`null`)
	}
	resp.Result = result
	return resp
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

// EthCallParams is the decoded first parameter of eth_call.
type EthCallParams struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Input string `json:"input"`
}

// CallData returns the call input regardless of which field the client used.
func (p EthCallParams) CallData() string {
	if p.Input != "" {
		return p.Input
	}
	return p.Data
}

// ParseEthCall decodes the params of an eth_call request.
func ParseEthCall(params json.RawMessage) (EthCallParams, string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return EthCallParams{}, "", err
	}
	var call EthCallParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw[0], &call); err != nil {
			return EthCallParams{}, "", err
		}
	}
	block := "latest"
	if len(raw) > 1 {
		_ = json.Unmarshal(raw[1], &block)
	}
	return call, block, nil
}
