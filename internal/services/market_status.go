package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/scmhub/calendar"
	"github.com/shopspring/decimal"
)

const (
	defaultStaleAfter = 25 * time.Hour
	btcSymbol         = "BTC/USD"
)

// MarketStats is the aggregate snapshot over cached crypto rows.
type MarketStats struct {
	TotalMarketCap  decimal.Decimal `json:"totalMarketCap"`
	TotalVolume24h  decimal.Decimal `json:"totalVolume24h"`
	BTCDominance    decimal.Decimal `json:"btcDominance"`
	LastUpdated     *time.Time      `json:"lastUpdated"`
	IsStale         bool            `json:"isStale"`
	StockMarketOpen bool            `json:"stockMarketOpen"`
}

type SyncStatusReport struct {
	LastSync    *domain.SyncLogEntry `json:"lastSync"`
	LastUpdated *time.Time           `json:"lastUpdated"`
	IsStale     bool                 `json:"isStale"`
}

// MarketStatusService serves the read side of the market data cache.
type MarketStatusService struct {
	store      MarketStore
	staleAfter time.Duration
	exchange   *exchangeClock
	now        func() time.Time
}

func NewMarketStatusService(store MarketStore, staleAfter time.Duration, logger *log.Logger) *MarketStatusService {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &MarketStatusService{
		store:      store,
		staleAfter: staleAfter,
		exchange:   newExchangeClock(logger),
		now:        time.Now,
	}
}

// IsStale reports whether the newest cached quote is older than the
// threshold. An empty cache is stale.
func (s *MarketStatusService) IsStale(ctx context.Context) (bool, error) {
	latest, ok, err := s.store.LatestFetchedAt(ctx)
	if err != nil {
		return false, err
	}
	return !ok || s.stale(latest), nil
}

func (s *MarketStatusService) stale(fetchedAt time.Time) bool {
	return s.now().Sub(fetchedAt) > s.staleAfter
}

func (s *MarketStatusService) Stats(ctx context.Context) (MarketStats, error) {
	now := s.now()
	stats := MarketStats{
		TotalMarketCap:  decimal.Zero,
		TotalVolume24h:  decimal.Zero,
		BTCDominance:    decimal.Zero,
		IsStale:         true,
		StockMarketOpen: s.exchange.IsOpen(now),
	}

	rows, err := s.store.ListMarketData(ctx, domain.AssetTypeCrypto)
	if err != nil {
		return MarketStats{}, fmt.Errorf("list crypto market data: %w", err)
	}
	if len(rows) == 0 {
		return stats, nil
	}

	btcCap := decimal.Zero
	var lastUpdated time.Time
	for _, r := range rows {
		mc := decimal.Zero
		if r.MarketCap != nil {
			mc = *r.MarketCap
		}
		stats.TotalMarketCap = stats.TotalMarketCap.Add(mc)
		stats.TotalVolume24h = stats.TotalVolume24h.Add(r.Volume24h)
		if r.Symbol == btcSymbol {
			btcCap = mc
		}
		if r.FetchedAt.After(lastUpdated) {
			lastUpdated = r.FetchedAt
		}
	}
	if !stats.TotalMarketCap.IsZero() {
		stats.BTCDominance = btcCap.Div(stats.TotalMarketCap).Mul(decimal.NewFromInt(100)).Round(2)
	}
	stats.LastUpdated = &lastUpdated
	stats.IsStale = s.stale(lastUpdated)
	return stats, nil
}

func (s *MarketStatusService) SyncStatus(ctx context.Context) (SyncStatusReport, error) {
	var report SyncStatusReport
	entry, ok, err := s.store.LatestSyncLog(ctx)
	if err != nil {
		return SyncStatusReport{}, err
	}
	if ok {
		report.LastSync = &entry
	}

	latest, ok, err := s.store.LatestFetchedAt(ctx)
	if err != nil {
		return SyncStatusReport{}, err
	}
	report.IsStale = true
	if ok {
		report.LastUpdated = &latest
		report.IsStale = s.stale(latest)
	}
	return report, nil
}

// Quotes lists cached rows, optionally restricted to one asset type.
func (s *MarketStatusService) Quotes(ctx context.Context, assetType domain.AssetType) ([]domain.MarketDataEntry, error) {
	rows, err := s.store.ListMarketData(ctx, assetType)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.MarketDataEntry{}
	}
	return rows, nil
}

// exchangeClock answers whether the NYSE is trading. Without calendar data
// it assumes regular weekday hours in New York.
type exchangeClock struct {
	cal *calendar.Calendar
	loc *time.Location
}

func newExchangeClock(logger *log.Logger) *exchangeClock {
	if cal := calendar.GetCalendar("xnys"); cal != nil {
		return &exchangeClock{cal: cal, loc: cal.Loc}
	}
	if logger != nil {
		logger.Printf("market status: xnys calendar unavailable, using weekday 09:30-16:00 fallback")
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &exchangeClock{loc: loc}
}

func (c *exchangeClock) IsOpen(t time.Time) bool {
	t = t.In(c.loc)
	if c.cal != nil {
		return c.cal.IsOpen(t)
	}
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
