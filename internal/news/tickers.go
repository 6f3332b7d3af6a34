package news

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
)

const tickerCacheTTL = time.Minute

var validQuoteTypes = []string{
	"EQUITY", "ETF", "MUTUALFUND", "CRYPTOCURRENCY", "CURRENCY", "INDEX", "FUTURE",
}

type cachedMatches struct {
	matches  []domain.TickerMatch
	storedAt time.Time
}

// TickerSearch resolves free text to ticker symbols with a short-lived
// in-memory cache. Rate limited lookups fall back to the last cached result,
// however old.
type TickerSearch struct {
	client *YahooClient
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedMatches
}

func NewTickerSearch(client *YahooClient) *TickerSearch {
	return &TickerSearch{
		client: client,
		ttl:    tickerCacheTTL,
		now:    time.Now,
		cache:  make(map[string]cachedMatches),
	}
}

// Search never fails on provider errors; it logs them and returns what the
// cache can offer.
func (s *TickerSearch) Search(ctx context.Context, query string) []domain.TickerMatch {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return nil
	}

	s.mu.Lock()
	cached, hit := s.cache[key]
	s.mu.Unlock()
	if hit && s.now().Sub(cached.storedAt) < s.ttl {
		return cached.matches
	}

	matches, err := s.lookup(ctx, query)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.client.logger.Printf("yahoo finance rate limited for query: %s", query)
			if hit {
				return cached.matches
			}
		} else {
			s.client.logger.Printf("yahoo finance ticker search failed for %s: %v", query, err)
		}
		return nil
	}

	s.mu.Lock()
	s.cache[key] = cachedMatches{matches: matches, storedAt: s.now()}
	s.mu.Unlock()
	return matches
}

func (s *TickerSearch) lookup(ctx context.Context, query string) ([]domain.TickerMatch, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("quotesCount", "10")
	q.Set("newsCount", "0")

	var resp searchResponse
	if err := s.client.getJSON(ctx, q, &resp); err != nil {
		return nil, err
	}

	matches := make([]domain.TickerMatch, 0, len(resp.Quotes))
	for _, quote := range resp.Quotes {
		if quote.Symbol == "" || !slices.Contains(validQuoteTypes, quote.QuoteType) {
			continue
		}
		name := quote.ShortName
		if name == "" {
			name = quote.LongName
		}
		if name == "" {
			name = quote.Symbol
		}
		matches = append(matches, domain.TickerMatch{
			Symbol:   quote.Symbol,
			Name:     name,
			Type:     quote.QuoteType,
			Exchange: quote.Exchange,
		})
	}
	return matches, nil
}
