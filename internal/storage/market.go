package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const marketColumns = `id, symbol, name, asset_type, price, price_open, price_high, price_low,
	price_previous_close, change_24h, change_percent_24h, volume_24h, market_cap, rank, fetched_at, updated_at`

// UpsertMarketData writes the latest quote for a symbol, inserting the row
// the first time the symbol is seen and overwriting it in place afterwards.
func (s *SQLStore) UpsertMarketData(ctx context.Context, e domain.MarketDataEntry) error {
	var marketCap any
	if e.MarketCap != nil {
		marketCap = e.MarketCap.String()
	}
	_, err := s.exec(ctx, `
		INSERT INTO market_data_cache (`+marketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			name = excluded.name,
			asset_type = excluded.asset_type,
			price = excluded.price,
			price_open = excluded.price_open,
			price_high = excluded.price_high,
			price_low = excluded.price_low,
			price_previous_close = excluded.price_previous_close,
			change_24h = excluded.change_24h,
			change_percent_24h = excluded.change_percent_24h,
			volume_24h = excluded.volume_24h,
			market_cap = excluded.market_cap,
			rank = excluded.rank,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at`,
		uuid.NewString(), e.Symbol, e.Name, string(e.AssetType),
		e.Price.String(), e.PriceOpen.String(), e.PriceHigh.String(), e.PriceLow.String(),
		e.PricePreviousClose.String(), e.Change24h.String(), e.ChangePercent24h.String(), e.Volume24h.String(),
		marketCap, e.Rank, e.FetchedAt.UTC(), s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("upsert market data %s: %w", e.Symbol, err)
	}
	return nil
}

// ListMarketData returns cached rows of one asset type ordered by rank.
// An empty assetType lists every row.
func (s *SQLStore) ListMarketData(ctx context.Context, assetType domain.AssetType) ([]domain.MarketDataEntry, error) {
	q := `SELECT ` + marketColumns + ` FROM market_data_cache`
	var args []any
	if assetType != "" {
		q += ` WHERE asset_type = ?`
		args = append(args, string(assetType))
	}
	q += ` ORDER BY asset_type, rank`

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list market data: %w", err)
	}
	defer rows.Close()

	var entries []domain.MarketDataEntry
	for rows.Next() {
		var (
			e         domain.MarketDataEntry
			assetType string
			marketCap decimal.NullDecimal
		)
		if err := rows.Scan(
			&e.ID, &e.Symbol, &e.Name, &assetType, &e.Price, &e.PriceOpen, &e.PriceHigh, &e.PriceLow,
			&e.PricePreviousClose, &e.Change24h, &e.ChangePercent24h, &e.Volume24h, &marketCap,
			&e.Rank, &e.FetchedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan market data: %w", err)
		}
		e.AssetType = domain.AssetType(assetType)
		if marketCap.Valid {
			mc := marketCap.Decimal
			e.MarketCap = &mc
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list market data: %w", err)
	}
	return entries, nil
}

// LatestFetchedAt returns the newest fetched_at across the cache. ok is
// false when the cache is empty.
func (s *SQLStore) LatestFetchedAt(ctx context.Context) (latest time.Time, ok bool, err error) {
	err = s.queryRow(ctx, `SELECT fetched_at FROM market_data_cache ORDER BY fetched_at DESC LIMIT 1`).Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest fetched_at: %w", err)
	}
	return latest, true, nil
}
