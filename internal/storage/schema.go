package storage

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS asset (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sentiment_log (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL REFERENCES asset(id) ON DELETE CASCADE,
		score NUMERIC(5,2) NOT NULL,
		summary TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sentiment_log_asset_created_idx ON sentiment_log (asset_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS market_data_cache (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		price NUMERIC NOT NULL,
		price_open NUMERIC NOT NULL,
		price_high NUMERIC NOT NULL,
		price_low NUMERIC NOT NULL,
		price_previous_close NUMERIC NOT NULL,
		change_24h NUMERIC NOT NULL,
		change_percent_24h NUMERIC NOT NULL,
		volume_24h NUMERIC NOT NULL,
		market_cap NUMERIC,
		rank INTEGER NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS market_data_sync_log (
		id TEXT PRIMARY KEY,
		sync_type TEXT NOT NULL,
		status TEXT NOT NULL,
		records_processed INTEGER NOT NULL DEFAULT 0,
		api_requests_used INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
}

// SQLite keeps decimals as TEXT so values round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS asset (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sentiment_log (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL REFERENCES asset(id) ON DELETE CASCADE,
		score TEXT NOT NULL,
		summary TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sentiment_log_asset_created_idx ON sentiment_log (asset_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS market_data_cache (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		price TEXT NOT NULL,
		price_open TEXT NOT NULL,
		price_high TEXT NOT NULL,
		price_low TEXT NOT NULL,
		price_previous_close TEXT NOT NULL,
		change_24h TEXT NOT NULL,
		change_percent_24h TEXT NOT NULL,
		volume_24h TEXT NOT NULL,
		market_cap TEXT,
		rank INTEGER NOT NULL,
		fetched_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS market_data_sync_log (
		id TEXT PRIMARY KEY,
		sync_type TEXT NOT NULL,
		status TEXT NOT NULL,
		records_processed INTEGER NOT NULL DEFAULT 0,
		api_requests_used INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	)`,
}
