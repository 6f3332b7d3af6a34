package services

import (
	"context"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/0xRichardL/narrative-pipeline/internal/sentiment"
	"github.com/0xRichardL/narrative-pipeline/internal/store"
	"github.com/shopspring/decimal"
)

// TickerQueue is the deduplicating work queue shared by seeder and worker.
type TickerQueue interface {
	Add(ctx context.Context, ticker string) (store.AddResult, error)
	Pop(ctx context.Context) (string, bool, error)
	Complete(ctx context.Context, ticker string) error
	Length(ctx context.Context) (int64, error)
}

type NewsSearcher interface {
	SearchNews(ctx context.Context, ticker string) ([]domain.NewsItem, error)
}

type ScorerSelector interface {
	Select(ctx context.Context) (sentiment.Scorer, bool, error)
}

type AssetStore interface {
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	FindAssetBySymbol(ctx context.Context, symbol string) (domain.Asset, error)
	InsertSentiment(ctx context.Context, assetID string, score decimal.Decimal, summary string) (domain.SentimentRecord, error)
}

type QuoteFetcher interface {
	GetQuotesBatched(ctx context.Context, symbols []string, assetType domain.AssetType, batchSize int) ([]domain.Quote, error)
}

type MarketStore interface {
	CreateSyncLog(ctx context.Context, syncType string) (domain.SyncLogEntry, error)
	FinishSyncLog(ctx context.Context, id string, status domain.SyncStatus, recordsProcessed, apiRequestsUsed int, errorMessage *string) error
	UpsertMarketData(ctx context.Context, e domain.MarketDataEntry) error
	ListMarketData(ctx context.Context, assetType domain.AssetType) ([]domain.MarketDataEntry, error)
	LatestFetchedAt(ctx context.Context) (time.Time, bool, error)
	LatestSyncLog(ctx context.Context) (domain.SyncLogEntry, bool, error)
}

// EventPublisher emits pipeline events. Publishing is best effort; callers
// log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.PipelineEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.PipelineEvent) error { return nil }

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// detached returns a context for bookkeeping writes that must land even
// after the run context is cancelled.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}
