package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/config"
	"github.com/0xRichardL/narrative-pipeline/internal/domain"
)

const (
	syncTypeAll           = "all"
	defaultQuoteBatchSize = 8
)

// SyncReport is returned by a successful market data sync.
type SyncReport struct {
	Success          bool  `json:"success"`
	RecordsProcessed int   `json:"recordsProcessed"`
	APIRequestsUsed  int   `json:"apiRequestsUsed"`
	ExecutionTimeMs  int64 `json:"executionTimeMs"`
	CryptoCount      int   `json:"cryptoCount"`
	StockCount       int   `json:"stockCount"`
}

// SyncError carries the partial counts of a failed sync. The sync log row
// has already been marked failed when it is returned.
type SyncError struct {
	RecordsProcessed int
	APIRequestsUsed  int
	Err              error
}

func (e *SyncError) Error() string { return e.Err.Error() }

func (e *SyncError) Unwrap() error { return e.Err }

// MarketSyncService refreshes the market data cache for the configured
// universe and audits each run in the sync log.
type MarketSyncService struct {
	quotes    QuoteFetcher
	store     MarketStore
	universe  config.Universe
	batchSize int
	publisher EventPublisher
	logger    *log.Logger

	now func() time.Time
}

func NewMarketSyncService(quotes QuoteFetcher, store MarketStore, universe config.Universe, batchSize int, publisher EventPublisher, logger *log.Logger) *MarketSyncService {
	if batchSize <= 0 {
		batchSize = defaultQuoteBatchSize
	}
	return &MarketSyncService{
		quotes:    quotes,
		store:     store,
		universe:  universe,
		batchSize: batchSize,
		publisher: publisherOrNop(publisher),
		logger:    logger,
		now:       time.Now,
	}
}

type syncProgress struct {
	records  int
	requests int
	crypto   int
	stocks   int
}

func (s *MarketSyncService) Run(ctx context.Context) (SyncReport, error) {
	start := s.now()
	entry, err := s.store.CreateSyncLog(ctx, syncTypeAll)
	if err != nil {
		return SyncReport{}, fmt.Errorf("create sync log: %w", err)
	}

	var p syncProgress
	if err := s.sync(ctx, &p); err != nil {
		msg := err.Error()
		fctx, cancel := detached(ctx)
		defer cancel()
		if ferr := s.store.FinishSyncLog(fctx, entry.ID, domain.SyncStatusFailed, p.records, p.requests, &msg); ferr != nil {
			s.logger.Printf("market sync: mark sync log %s failed: %v", entry.ID, ferr)
		}
		s.publishSynced(fctx, entry.ID, domain.SyncStatusFailed, p)
		return SyncReport{}, &SyncError{RecordsProcessed: p.records, APIRequestsUsed: p.requests, Err: err}
	}

	fctx, cancel := detached(ctx)
	defer cancel()
	if err := s.store.FinishSyncLog(fctx, entry.ID, domain.SyncStatusCompleted, p.records, p.requests, nil); err != nil {
		return SyncReport{}, &SyncError{RecordsProcessed: p.records, APIRequestsUsed: p.requests, Err: fmt.Errorf("complete sync log: %w", err)}
	}
	s.publishSynced(fctx, entry.ID, domain.SyncStatusCompleted, p)
	s.logger.Printf("market sync: %d crypto, %d stocks, %d requests", p.crypto, p.stocks, p.requests)

	return SyncReport{
		Success:          true,
		RecordsProcessed: p.records,
		APIRequestsUsed:  p.requests,
		ExecutionTimeMs:  s.now().Sub(start).Milliseconds(),
		CryptoCount:      p.crypto,
		StockCount:       p.stocks,
	}, nil
}

func (s *MarketSyncService) sync(ctx context.Context, p *syncProgress) error {
	n, err := s.syncClass(ctx, p, s.universe.Crypto, domain.AssetTypeCrypto, func(q domain.Quote) string {
		return s.universe.CryptoName(q.Symbol, q.Name)
	})
	if err != nil {
		return err
	}
	p.crypto = n

	n, err = s.syncClass(ctx, p, s.universe.Stocks, domain.AssetTypeStock, func(q domain.Quote) string {
		return q.Name
	})
	if err != nil {
		return err
	}
	p.stocks = n
	return nil
}

func (s *MarketSyncService) syncClass(ctx context.Context, p *syncProgress, symbols []string, assetType domain.AssetType, name func(domain.Quote) string) (int, error) {
	if len(symbols) == 0 {
		return 0, nil
	}
	quotes, err := s.quotes.GetQuotesBatched(ctx, symbols, assetType, s.batchSize)
	p.requests += (len(symbols) + s.batchSize - 1) / s.batchSize
	if err != nil {
		return 0, fmt.Errorf("fetch %s quotes: %w", assetType, err)
	}

	for i, q := range quotes {
		entry := domain.EntryFromQuote(q, name(q), i+1, s.now())
		if err := s.store.UpsertMarketData(ctx, entry); err != nil {
			return 0, err
		}
		p.records++
	}
	return len(quotes), nil
}

func (s *MarketSyncService) publishSynced(ctx context.Context, syncID string, status domain.SyncStatus, p syncProgress) {
	evt := domain.PipelineEvent{
		Type:       domain.EventMarketSynced,
		Key:        syncID,
		OccurredAt: s.now(),
		Data: map[string]any{
			"syncId":           syncID,
			"status":           string(status),
			"recordsProcessed": p.records,
			"apiRequestsUsed":  p.requests,
			"cryptoCount":      p.crypto,
			"stockCount":       p.stocks,
		},
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, evt); err != nil {
		s.logger.Printf("market sync: publish %s: %v", evt.Type, err)
	}
}
