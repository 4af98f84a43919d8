package wellknown

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/tokensale/pkg/logger"
)

func newWellKnownServer(t *testing.T, listCalls *int32) *httptest.Server {
	t.Helper()

	metadata := map[string]TokenMetadata{
		"cb01": {Network: "xab", Name: "Core Token", Symbol: "CTN", Decimals: 18, Type: "CBC20"},
		"cb02": {Network: "xab", Name: "Example Token", Symbol: "etk", Decimals: 18, Type: "CBC20"},
		"cb03": {Network: "xab", Name: "Some Domain", Symbol: "ETK2", Type: "CNS"},
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/.well-known/tokens/xab/tokens.json":
			atomic.AddInt32(listCalls, 1)
			resp := TokensResponse{Tokens: []string{"cb01", "cb02"}, Pagination: Pagination{Limit: 2, HasNext: true, Cursor: "page2"}}
			if r.URL.Query().Get("cursor") == "page2" {
				resp = TokensResponse{Tokens: []string{"cb03"}}
			}
			_ = json.NewEncoder(w).Encode(resp)
		case strings.HasPrefix(r.URL.Path, "/.well-known/tokens/xab/"):
			addr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/.well-known/tokens/xab/"), ".json")
			md, ok := metadata[addr]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(md)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetchAndUpdateTokens(t *testing.T) {
	var listCalls int32
	server := newWellKnownServer(t, &listCalls)
	defer server.Close()

	w := NewWellKnownService(logger.NewNopLogger(), server.URL+"/", "xab")
	require.NoError(t, w.FetchAndUpdateTokens(context.Background()))

	tokens := w.GetAllTokens()
	assert.Len(t, tokens, 2, "non-token entries are skipped")
	assert.Equal(t, int32(2), atomic.LoadInt32(&listCalls), "both pages are fetched")
}

func TestFindBySymbol(t *testing.T) {
	var listCalls int32
	server := newWellKnownServer(t, &listCalls)
	defer server.Close()

	w := NewWellKnownService(logger.NewNopLogger(), server.URL, "xab")
	ctx := context.Background()

	token, err := w.FindBySymbol(ctx, "ETK")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "cb02", token.Address)

	token, err = w.FindBySymbol(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, token)

	token, err = w.FindBySymbol(ctx, "ETK2")
	require.NoError(t, err)
	assert.Nil(t, token)

	assert.Equal(t, int32(2), atomic.LoadInt32(&listCalls), "the list is fetched once")
}

func TestFindBySymbolServiceDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	w := NewWellKnownService(logger.NewNopLogger(), server.URL, "xab")
	_, err := w.FindBySymbol(context.Background(), "ETK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code 503")
}

func TestFindBySymbolMetadataUnavailable(t *testing.T) {
	var metadataCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/.well-known/tokens/xab/tokens.json":
			_ = json.NewEncoder(w).Encode(TokensResponse{Tokens: []string{"cb01", "cb_etk"}})
		case "/.well-known/tokens/xab/cb01.json":
			_ = json.NewEncoder(w).Encode(TokenMetadata{Name: "Core Token", Symbol: "CTN", Type: "CBC20"})
		case "/.well-known/tokens/xab/cb_etk.json":
			atomic.AddInt32(&metadataCalls, 1)
			http.Error(w, "upstream timeout", http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	w := NewWellKnownService(logger.NewNopLogger(), server.URL, "xab")
	ctx := context.Background()

	token, err := w.FindBySymbol(ctx, "ETK")
	require.Error(t, err)
	assert.Nil(t, token)
	assert.Contains(t, err.Error(), "failed to fetch metadata of 1 of 2 tokens")
	assert.Empty(t, w.GetAllTokens())

	// Nothing was cached, so the next lookup fetches again.
	_, err = w.FindBySymbol(ctx, "CTN")
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&metadataCalls))
}
