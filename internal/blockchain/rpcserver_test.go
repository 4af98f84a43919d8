package blockchain

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcResponse struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcHandler answers one JSON-RPC method. A nil result is sent as null.
type rpcHandler func(params []json.RawMessage) (interface{}, error)

// newRPCServer serves JSON-RPC 2.0 over HTTP, single and batch requests alike.
// Handlers run one at a time.
func newRPCServer(t *testing.T, handlers map[string]rpcHandler) *httptest.Server {
	t.Helper()

	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		batch := bytes.HasPrefix(bytes.TrimSpace(body), []byte("["))
		var reqs []rpcRequest
		if batch {
			err = json.Unmarshal(body, &reqs)
		} else {
			var req rpcRequest
			err = json.Unmarshal(body, &req)
			reqs = append(reqs, req)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resps := make([]rpcResponse, 0, len(reqs))
		for _, req := range reqs {
			resp := rpcResponse{Version: "2.0", ID: req.ID}
			handler, ok := handlers[req.Method]
			if !ok {
				resp.Error = &rpcError{Code: -32601, Message: "method not found: " + req.Method}
				resps = append(resps, resp)
				continue
			}

			mu.Lock()
			result, err := handler(req.Params)
			mu.Unlock()
			switch {
			case err != nil:
				resp.Error = &rpcError{Code: -32000, Message: err.Error()}
			case result == nil:
				resp.Result = json.RawMessage("null")
			default:
				resp.Result = result
			}
			resps = append(resps, resp)
		}

		w.Header().Set("Content-Type", "application/json")
		if batch {
			_ = json.NewEncoder(w).Encode(resps)
			return
		}
		_ = json.NewEncoder(w).Encode(resps[0])
	}))
	t.Cleanup(server.Close)
	return server
}
