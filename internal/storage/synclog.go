package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/google/uuid"
)

// CreateSyncLog records the start of a sync run with status running.
func (s *SQLStore) CreateSyncLog(ctx context.Context, syncType string) (domain.SyncLogEntry, error) {
	entry := domain.SyncLogEntry{
		ID:        uuid.NewString(),
		SyncType:  syncType,
		Status:    domain.SyncStatusRunning,
		StartedAt: s.timestamp(),
	}
	_, err := s.exec(ctx, `
		INSERT INTO market_data_sync_log (id, sync_type, status, records_processed, api_requests_used, started_at)
		VALUES (?, ?, ?, 0, 0, ?)`,
		entry.ID, entry.SyncType, string(entry.Status), entry.StartedAt,
	)
	if err != nil {
		return domain.SyncLogEntry{}, fmt.Errorf("create sync log: %w", err)
	}
	return entry, nil
}

// FinishSyncLog moves a sync run to its terminal status with final counts.
func (s *SQLStore) FinishSyncLog(ctx context.Context, id string, status domain.SyncStatus, recordsProcessed, apiRequestsUsed int, errorMessage *string) error {
	var msg sql.NullString
	if errorMessage != nil {
		msg = sql.NullString{String: *errorMessage, Valid: true}
	}
	res, err := s.exec(ctx, `
		UPDATE market_data_sync_log
		SET status = ?, records_processed = ?, api_requests_used = ?, error_message = ?, completed_at = ?
		WHERE id = ?`,
		string(status), recordsProcessed, apiRequestsUsed, msg, s.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("finish sync log %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish sync log %s: no such entry", id)
	}
	return nil
}

// LatestSyncLog returns the most recently started sync run. ok is false
// when no run has been recorded.
func (s *SQLStore) LatestSyncLog(ctx context.Context) (entry domain.SyncLogEntry, ok bool, err error) {
	var (
		status      string
		msg         sql.NullString
		completedAt sql.NullTime
	)
	err = s.queryRow(ctx, `
		SELECT id, sync_type, status, records_processed, api_requests_used, error_message, started_at, completed_at
		FROM market_data_sync_log
		ORDER BY started_at DESC
		LIMIT 1`,
	).Scan(&entry.ID, &entry.SyncType, &status, &entry.RecordsProcessed, &entry.APIRequestsUsed, &msg, &entry.StartedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SyncLogEntry{}, false, nil
	}
	if err != nil {
		return domain.SyncLogEntry{}, false, fmt.Errorf("latest sync log: %w", err)
	}
	entry.Status = domain.SyncStatus(status)
	if msg.Valid {
		entry.ErrorMessage = &msg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		entry.CompletedAt = &t
	}
	return entry, true, nil
}
