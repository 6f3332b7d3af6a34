package twelvedata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/0xRichardL/narrative-pipeline/internal/numbers"
)

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = errors.New("TWELVEDATA_API_KEY environment variable is not set")

// Client fetches quotes from the Twelve Data REST API. Requests are spaced
// at least minInterval apart to stay within the free tier limit.
type Client struct {
	baseURL     string
	apiKey      string
	minInterval time.Duration
	http        *http.Client
	logger      *log.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

func NewClient(baseURL, apiKey string, minInterval time.Duration, logger *log.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		minInterval: minInterval,
		http:        &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
}

type quotePayload struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Exchange      string `json:"exchange"`
	Open          any    `json:"open"`
	High          any    `json:"high"`
	Low           any    `json:"low"`
	Close         any    `json:"close"`
	Volume        any    `json:"volume"`
	PreviousClose any    `json:"previous_close"`
	Change        any    `json:"change"`
	PercentChange any    `json:"percent_change"`
	Code          any    `json:"code"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// GetQuotes fetches one batch of symbols. Provider and decoding failures are
// logged and yield an empty result; only a missing key or a cancelled
// context is returned as an error.
func (c *Client) GetQuotes(ctx context.Context, symbols []string, assetType domain.AssetType) ([]domain.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := c.fetch(ctx, symbols)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Printf("twelve data quotes fetch failed for %s: %v", strings.Join(symbols, ","), err)
		return nil, nil
	}

	quotes, err := parseQuotes(body, symbols, assetType)
	if err != nil {
		c.logger.Printf("twelve data quote error for %s: %v", strings.Join(symbols, ","), err)
		return nil, nil
	}
	return quotes, nil
}

// GetQuotesBatched fetches symbols in slices of batchSize, concatenating
// whatever each batch returns.
func (c *Client) GetQuotesBatched(ctx context.Context, symbols []string, assetType domain.AssetType, batchSize int) ([]domain.Quote, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", batchSize)
	}
	var all []domain.Quote
	for i := 0; i < len(symbols); i += batchSize {
		end := min(i+batchSize, len(symbols))
		quotes, err := c.GetQuotes(ctx, symbols[i:end], assetType)
		if err != nil {
			return all, err
		}
		all = append(all, quotes...)
	}
	return all, nil
}

func (c *Client) fetch(ctx context.Context, symbols []string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", strings.Join(symbols, ","))
	q.Set("apikey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	// Twelve Data reports most errors in a 200 body; anything else is a transport problem.
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

// wait blocks until minInterval has passed since the previous request.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if delay := c.minInterval - time.Since(c.lastRequest); delay > 0 && !c.lastRequest.IsZero() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func decodePayload(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// parseQuotes handles both response shapes: a single quote object when one
// symbol was requested, and an object keyed by symbol otherwise.
func parseQuotes(body []byte, symbols []string, assetType domain.AssetType) ([]domain.Quote, error) {
	var quotes []domain.Quote

	if len(symbols) == 1 {
		var p quotePayload
		if err := decodePayload(body, &p); err != nil {
			return nil, fmt.Errorf("decode quote: %w", err)
		}
		if p.Status == "error" {
			return nil, fmt.Errorf("provider error: %s", p.Message)
		}
		if q, ok := normalizeQuote(p, assetType); ok {
			quotes = append(quotes, q)
		}
		return quotes, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(body, &keyed); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}
	if raw, ok := keyed["status"]; ok {
		var status string
		if json.Unmarshal(raw, &status) == nil && status == "error" {
			var p quotePayload
			_ = decodePayload(body, &p)
			return nil, fmt.Errorf("provider error: %s", p.Message)
		}
	}
	for _, symbol := range symbols {
		raw, ok := keyed[symbol]
		if !ok {
			continue
		}
		var p quotePayload
		if err := decodePayload(raw, &p); err != nil {
			continue
		}
		if p.Code != nil {
			continue
		}
		if q, ok := normalizeQuote(p, assetType); ok {
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

// normalizeQuote maps a provider quote to the shared shape. Quotes without a
// symbol or close price are dropped; unparsable numbers become zero. The
// quote endpoint carries no market cap.
func normalizeQuote(p quotePayload, assetType domain.AssetType) (domain.Quote, bool) {
	if p.Symbol == "" || isBlank(p.Close) {
		return domain.Quote{}, false
	}
	name := p.Name
	if name == "" {
		name = p.Symbol
	}
	return domain.Quote{
		Symbol:             p.Symbol,
		Name:               name,
		AssetType:          assetType,
		Price:              numbers.DecimalOrZero(p.Close),
		PriceOpen:          numbers.DecimalOrZero(p.Open),
		PriceHigh:          numbers.DecimalOrZero(p.High),
		PriceLow:           numbers.DecimalOrZero(p.Low),
		PricePreviousClose: numbers.DecimalOrZero(p.PreviousClose),
		Change24h:          numbers.DecimalOrZero(p.Change),
		ChangePercent24h:   numbers.DecimalOrZero(p.PercentChange),
		Volume24h:          numbers.DecimalOrZero(p.Volume),
		Exchange:           p.Exchange,
	}, true
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}
