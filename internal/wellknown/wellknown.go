package wellknown

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/pkg/logger"
)

const (
	pageLimit     = 1000
	maxConcurrent = 20
)

// TokensResponse represents the response from .well-known/tokens.json
type TokensResponse struct {
	Tokens     []string   `json:"tokens"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents the pagination info in the tokens response
type Pagination struct {
	Limit   int    `json:"limit"`
	HasNext bool   `json:"hasNext"`
	Cursor  string `json:"cursor"`
}

// TokenMetadata represents detailed information about a single token
type TokenMetadata struct {
	Blockchain string `json:"blockchain"`
	Network    string `json:"network"`
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	Decimals   int    `json:"decimals"`
	Symbol     string `json:"symbol"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	CreatedAt  string `json:"createdAt"`
}

// WellKnownService lists the tokens already published on a network.
type WellKnownService struct {
	logger  *logger.Logger
	baseURL string
	network string
	client  *http.Client

	// In-memory cache, filled by the first lookup
	tokenCache []*models.Token
	loaded     bool
	cacheMutex sync.RWMutex
}

// NewWellKnownService creates a new WellKnownService for network ("xcb" or "xab").
func NewWellKnownService(logger *logger.Logger, baseURL, network string) *WellKnownService {
	return &WellKnownService{
		logger:     logger.With("stage", "wellknown", "network", network),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		network:    network,
		tokenCache: make([]*models.Token, 0),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FindBySymbol returns the cached token whose symbol matches symbol case-insensitively,
// or nil when there is none. The token list is fetched on first use.
func (w *WellKnownService) FindBySymbol(ctx context.Context, symbol string) (*models.Token, error) {
	w.cacheMutex.RLock()
	loaded := w.loaded
	w.cacheMutex.RUnlock()

	if !loaded {
		if err := w.FetchAndUpdateTokens(ctx); err != nil {
			return nil, err
		}
	}

	for _, token := range w.GetAllTokens() {
		if strings.EqualFold(token.Symbol, symbol) {
			return token, nil
		}
	}
	return nil, nil
}

// FetchAndUpdateTokens fetches all tokens from the well-known service and updates the in-memory cache
func (w *WellKnownService) FetchAndUpdateTokens(ctx context.Context) error {
	w.logger.Info("Fetching tokens from well-known service")

	tokenAddresses, err := w.fetchAllTokenAddresses(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch token addresses: %w", err)
	}

	w.logger.Info("Found tokens on well-known service", "count", len(tokenAddresses))

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []string
	newCache := make([]*models.Token, 0, len(tokenAddresses))

	for _, address := range tokenAddresses {
		wg.Add(1)
		sem <- struct{}{}

		go func(addr string) {
			defer wg.Done()
			defer func() { <-sem }()

			metadata, err := w.fetchTokenMetadata(ctx, addr)
			if err != nil {
				w.logger.Error("Failed to fetch token metadata", "address", addr, "error", err)
				mu.Lock()
				failed = append(failed, addr)
				mu.Unlock()
				return
			}

			// Only fungible and non-fungible tokens carry a symbol that can clash
			if metadata.Type != "CBC20" && metadata.Type != "CBC721" {
				w.logger.Debug("Skipping non-CBC20/CBC721 token", "address", addr, "type", metadata.Type)
				return
			}

			token := &models.Token{
				Address:   addr,
				Name:      metadata.Name,
				Symbol:    metadata.Symbol,
				Decimals:  metadata.Decimals,
				Type:      metadata.Type,
				Network:   metadata.Network,
				UpdatedAt: time.Now().Unix(),
			}

			mu.Lock()
			newCache = append(newCache, token)
			mu.Unlock()
		}(address)
	}

	wg.Wait()

	// A partial list is never cached
	if len(failed) > 0 {
		return fmt.Errorf("failed to fetch metadata of %d of %d tokens (first: %s)", len(failed), len(tokenAddresses), failed[0])
	}

	w.cacheMutex.Lock()
	w.tokenCache = newCache
	w.loaded = true
	w.cacheMutex.Unlock()

	w.logger.Info("Cached tokens in memory", "count", len(newCache))

	return nil
}

// fetchAllTokenAddresses fetches all token addresses using pagination
func (w *WellKnownService) fetchAllTokenAddresses(ctx context.Context) ([]string, error) {
	var allAddresses []string
	cursor := ""

	for {
		endpoint := fmt.Sprintf("%s/.well-known/tokens/%s/tokens.json?limit=%d", w.baseURL, w.network, pageLimit)
		if cursor != "" {
			endpoint += "&cursor=" + url.QueryEscape(cursor)
		}

		var tokensResp TokensResponse
		if err := w.getJSON(ctx, endpoint, &tokensResp); err != nil {
			return nil, fmt.Errorf("failed to fetch tokens list: %w", err)
		}

		allAddresses = append(allAddresses, tokensResp.Tokens...)

		if !tokensResp.Pagination.HasNext || tokensResp.Pagination.Cursor == "" {
			break
		}
		cursor = tokensResp.Pagination.Cursor
	}

	return allAddresses, nil
}

// fetchTokenMetadata fetches detailed metadata for a specific token
func (w *WellKnownService) fetchTokenMetadata(ctx context.Context, address string) (*TokenMetadata, error) {
	endpoint := fmt.Sprintf("%s/.well-known/tokens/%s/%s.json", w.baseURL, w.network, address)

	var metadata TokenMetadata
	if err := w.getJSON(ctx, endpoint, &metadata); err != nil {
		return nil, fmt.Errorf("failed to fetch token metadata: %w", err)
	}
	return &metadata, nil
}

func (w *WellKnownService) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetAllTokens returns all cached tokens (thread-safe)
func (w *WellKnownService) GetAllTokens() []*models.Token {
	w.cacheMutex.RLock()
	defer w.cacheMutex.RUnlock()

	tokens := make([]*models.Token, len(w.tokenCache))
	copy(tokens, w.tokenCache)
	return tokens
}
