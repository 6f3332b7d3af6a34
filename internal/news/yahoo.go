package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/0xRichardL/narrative-pipeline/internal/numbers"
	"github.com/mmcdole/gofeed"
)

const userAgent = "Mozilla/5.0 (compatible; narrative-pipeline/1.0)"

var (
	// ErrRateLimited is returned when Yahoo answers 429 Too Many Requests.
	ErrRateLimited = errors.New("too many requests")
	// ErrInvalidResponse is returned when the search payload has no news list.
	ErrInvalidResponse = errors.New("invalid response structure from Yahoo Finance")
)

// YahooClient searches Yahoo Finance for ticker headlines. When the search
// endpoint fails it falls back to the per-symbol RSS headline feed.
type YahooClient struct {
	searchURL string
	rssURL    string
	newsCount int
	http      *http.Client
	logger    *log.Logger
}

func NewYahooClient(searchURL, rssURL string, newsCount int, logger *log.Logger) *YahooClient {
	if newsCount <= 0 {
		newsCount = 5
	}
	return &YahooClient{
		searchURL: searchURL,
		rssURL:    rssURL,
		newsCount: newsCount,
		http:      &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

type searchResponse struct {
	Quotes []searchQuote  `json:"quotes"`
	News   *[]searchStory `json:"news"`
}

type searchQuote struct {
	Symbol    string `json:"symbol"`
	QuoteType string `json:"quoteType"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
	Exchange  string `json:"exchange"`
}

type searchStory struct {
	UUID                string      `json:"uuid"`
	Title               string      `json:"title"`
	Link                string      `json:"link"`
	ProviderPublishTime json.Number `json:"providerPublishTime"`
}

// SearchNews returns up to newsCount recent headlines for ticker.
func (c *YahooClient) SearchNews(ctx context.Context, ticker string) ([]domain.NewsItem, error) {
	items, err := c.searchNews(ctx, ticker)
	if err == nil {
		return items, nil
	}
	if c.rssURL != "" && ctx.Err() == nil {
		c.logger.Printf("yahoo search failed for %s, trying rss: %v", ticker, err)
		rssItems, rssErr := c.rssNews(ctx, ticker)
		if rssErr == nil {
			return rssItems, nil
		}
		c.logger.Printf("yahoo rss failed for %s: %v", ticker, rssErr)
	}
	return nil, fmt.Errorf("yahoo finance search failed for %s: %w", ticker, err)
}

func (c *YahooClient) searchNews(ctx context.Context, ticker string) ([]domain.NewsItem, error) {
	q := url.Values{}
	q.Set("q", ticker)
	q.Set("newsCount", strconv.Itoa(c.newsCount))
	q.Set("quotesCount", "0")

	var resp searchResponse
	if err := c.getJSON(ctx, q, &resp); err != nil {
		return nil, err
	}
	if resp.News == nil {
		return nil, ErrInvalidResponse
	}

	items := make([]domain.NewsItem, 0, len(*resp.News))
	for _, s := range *resp.News {
		if s.Title == "" {
			continue
		}
		item := domain.NewsItem{UUID: s.UUID, Title: s.Title, Link: s.Link}
		if sec, err := numbers.ExtractInt(s.ProviderPublishTime); err == nil {
			item.PublishedAt = time.Unix(sec, 0).UTC()
		}
		items = append(items, item)
		if len(items) == c.newsCount {
			break
		}
	}
	return items, nil
}

func (c *YahooClient) rssNews(ctx context.Context, ticker string) ([]domain.NewsItem, error) {
	q := url.Values{}
	q.Set("s", ticker)
	q.Set("region", "US")
	q.Set("lang", "en-US")

	body, err := c.get(ctx, c.rssURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]domain.NewsItem, 0, c.newsCount)
	for _, it := range feed.Items {
		if strings.TrimSpace(it.Title) == "" {
			continue
		}
		item := domain.NewsItem{UUID: it.GUID, Title: strings.TrimSpace(it.Title), Link: it.Link}
		if it.PublishedParsed != nil {
			item.PublishedAt = it.PublishedParsed.UTC()
		}
		items = append(items, item)
		if len(items) == c.newsCount {
			break
		}
	}
	return items, nil
}

func (c *YahooClient) getJSON(ctx context.Context, q url.Values, v any) error {
	body, err := c.get(ctx, c.searchURL+"?"+q.Encode())
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

func (c *YahooClient) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
