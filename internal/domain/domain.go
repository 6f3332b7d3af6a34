package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a tracked ticker. Symbol is unique and matched case-sensitively.
type Asset struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SentimentRecord is one immutable sentiment assessment for an asset.
type SentimentRecord struct {
	ID        string          `json:"id"`
	AssetID   string          `json:"assetId"`
	Score     decimal.Decimal `json:"score"`
	Summary   string          `json:"summary"`
	CreatedAt time.Time       `json:"createdAt"`
}

// SentimentAnalysis is the scorer output. SentimentScore is within [-1, 1].
type SentimentAnalysis struct {
	SentimentScore float64  `json:"sentimentScore"`
	Reasoning      string   `json:"reasoning"`
	KeyTopics      []string `json:"keyTopics"`
}

// NewsItem is a single headline returned by a news search.
type NewsItem struct {
	UUID        string    `json:"uuid"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"publishedAt"`
}

// TickerMatch is a symbol lookup result.
type TickerMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Exchange string `json:"exchange"`
}

type AssetType string

const (
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeStock  AssetType = "stock"
)

// Quote is a normalized provider quote, identical in shape for stocks and crypto.
type Quote struct {
	Symbol             string           `json:"symbol"`
	Name               string           `json:"name"`
	AssetType          AssetType        `json:"assetType"`
	Price              decimal.Decimal  `json:"price"`
	PriceOpen          decimal.Decimal  `json:"priceOpen"`
	PriceHigh          decimal.Decimal  `json:"priceHigh"`
	PriceLow           decimal.Decimal  `json:"priceLow"`
	PricePreviousClose decimal.Decimal  `json:"pricePreviousClose"`
	Change24h          decimal.Decimal  `json:"change24h"`
	ChangePercent24h   decimal.Decimal  `json:"changePercent24h"`
	Volume24h          decimal.Decimal  `json:"volume24h"`
	MarketCap          *decimal.Decimal `json:"marketCap"`
	Exchange           string           `json:"exchange"`
}

// MarketDataEntry is one cache row per symbol holding its latest quote.
type MarketDataEntry struct {
	ID                 string           `json:"id"`
	Symbol             string           `json:"symbol"`
	Name               string           `json:"name"`
	AssetType          AssetType        `json:"assetType"`
	Price              decimal.Decimal  `json:"price"`
	PriceOpen          decimal.Decimal  `json:"priceOpen"`
	PriceHigh          decimal.Decimal  `json:"priceHigh"`
	PriceLow           decimal.Decimal  `json:"priceLow"`
	PricePreviousClose decimal.Decimal  `json:"pricePreviousClose"`
	Change24h          decimal.Decimal  `json:"change24h"`
	ChangePercent24h   decimal.Decimal  `json:"changePercent24h"`
	Volume24h          decimal.Decimal  `json:"volume24h"`
	MarketCap          *decimal.Decimal `json:"marketCap"`
	Rank               int              `json:"rank"`
	FetchedAt          time.Time        `json:"fetchedAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// EntryFromQuote builds the cache row written for q.
func EntryFromQuote(q Quote, name string, rank int, fetchedAt time.Time) MarketDataEntry {
	return MarketDataEntry{
		Symbol:             q.Symbol,
		Name:               name,
		AssetType:          q.AssetType,
		Price:              q.Price,
		PriceOpen:          q.PriceOpen,
		PriceHigh:          q.PriceHigh,
		PriceLow:           q.PriceLow,
		PricePreviousClose: q.PricePreviousClose,
		Change24h:          q.Change24h,
		ChangePercent24h:   q.ChangePercent24h,
		Volume24h:          q.Volume24h,
		MarketCap:          q.MarketCap,
		Rank:               rank,
		FetchedAt:          fetchedAt,
	}
}

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncLogEntry audits one market data sync run.
type SyncLogEntry struct {
	ID               string     `json:"id"`
	SyncType         string     `json:"syncType"`
	Status           SyncStatus `json:"status"`
	RecordsProcessed int        `json:"recordsProcessed"`
	APIRequestsUsed  int        `json:"apiRequestsUsed"`
	ErrorMessage     *string    `json:"errorMessage"`
	StartedAt        time.Time  `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt"`
}

// MockSettings is the process-wide scorer feature flag.
type MockSettings struct {
	LLMMockEnabled bool `json:"llmMockEnabled"`
}

// MockSettingsUpdate is a partial update; nil fields are left untouched.
type MockSettingsUpdate struct {
	LLMMockEnabled *bool `json:"llmMockEnabled,omitempty"`
}

const (
	EventSentimentScored = "sentiment.scored"
	EventMarketSynced    = "market.synced"
)

// PipelineEvent is a notification emitted after a pipeline step commits.
// Key is used for partitioning; Data must hold JSON-compatible values.
type PipelineEvent struct {
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data"`
}
