package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListAssets returns every tracked asset ordered by symbol.
func (s *SQLStore) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	rows, err := s.query(ctx, `SELECT id, symbol, name, created_at, updated_at FROM asset ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// FindAssetBySymbol looks an asset up by exact symbol. It returns
// ErrAssetNotFound when no row matches.
func (s *SQLStore) FindAssetBySymbol(ctx context.Context, symbol string) (domain.Asset, error) {
	var a domain.Asset
	err := s.queryRow(ctx,
		`SELECT id, symbol, name, created_at, updated_at FROM asset WHERE symbol = ?`, symbol,
	).Scan(&a.ID, &a.Symbol, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, symbol)
	}
	if err != nil {
		return domain.Asset{}, fmt.Errorf("find asset %s: %w", symbol, err)
	}
	return a, nil
}

// UpsertAsset inserts a tracked asset or renames the existing one.
func (s *SQLStore) UpsertAsset(ctx context.Context, symbol, name string) (domain.Asset, error) {
	now := s.timestamp()
	_, err := s.exec(ctx, `
		INSERT INTO asset (id, symbol, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at`,
		uuid.NewString(), symbol, name, now, now,
	)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("upsert asset %s: %w", symbol, err)
	}
	return s.FindAssetBySymbol(ctx, symbol)
}

// InsertSentiment appends a sentiment record. The score is stored with two
// decimal places.
func (s *SQLStore) InsertSentiment(ctx context.Context, assetID string, score decimal.Decimal, summary string) (domain.SentimentRecord, error) {
	rec := domain.SentimentRecord{
		ID:        uuid.NewString(),
		AssetID:   assetID,
		Score:     score.Round(2),
		Summary:   summary,
		CreatedAt: s.timestamp(),
	}
	_, err := s.exec(ctx,
		`INSERT INTO sentiment_log (id, asset_id, score, summary, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.AssetID, score.StringFixed(2), rec.Summary, rec.CreatedAt,
	)
	if err != nil {
		return domain.SentimentRecord{}, fmt.Errorf("insert sentiment for asset %s: %w", assetID, err)
	}
	return rec, nil
}

// ListSentiment returns the newest sentiment records for an asset first.
func (s *SQLStore) ListSentiment(ctx context.Context, assetID string, limit int) ([]domain.SentimentRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.query(ctx, `
		SELECT id, asset_id, score, summary, created_at
		FROM sentiment_log
		WHERE asset_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, assetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sentiment for asset %s: %w", assetID, err)
	}
	defer rows.Close()

	var records []domain.SentimentRecord
	for rows.Next() {
		var r domain.SentimentRecord
		if err := rows.Scan(&r.ID, &r.AssetID, &r.Score, &r.Summary, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sentiment: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sentiment for asset %s: %w", assetID, err)
	}
	return records, nil
}
