package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.QueueKey != "narrative:queue" {
		t.Errorf("QueueKey = %q, want narrative:queue", cfg.QueueKey)
	}
	if cfg.ProcessingKey != "narrative:processing" {
		t.Errorf("ProcessingKey = %q, want narrative:processing", cfg.ProcessingKey)
	}
	if cfg.WorkerTimeBudget != 50*time.Second {
		t.Errorf("WorkerTimeBudget = %v, want 50s", cfg.WorkerTimeBudget)
	}
	if cfg.StaleAfter != 25*time.Hour {
		t.Errorf("StaleAfter = %v, want 25h", cfg.StaleAfter)
	}
	if cfg.QuoteBatchSize != 8 {
		t.Errorf("QuoteBatchSize = %d, want 8", cfg.QuoteBatchSize)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("KafkaBrokers = %v, want none", cfg.KafkaBrokers)
	}
	if got := len(cfg.Universe.Crypto); got != 20 {
		t.Errorf("len(Universe.Crypto) = %d, want 20", got)
	}
	if got := len(cfg.Universe.Stocks); got != 20 {
		t.Errorf("len(Universe.Stocks) = %d, want 20", got)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("WORKER_TIME_BUDGET", "5s")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("SCHEDULER_ENABLED", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.WorkerTimeBudget != 5*time.Second {
		t.Errorf("WorkerTimeBudget = %v, want 5s", cfg.WorkerTimeBudget)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Errorf("KafkaBrokers = %v, want [a:9092 b:9092]", cfg.KafkaBrokers)
	}
	if !cfg.SchedulerEnabled {
		t.Error("SchedulerEnabled = false, want true")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"REDIS_DB", "zero"},
		{"WORKER_TIME_BUDGET", "fifty"},
		{"SCHEDULER_ENABLED", "maybe"},
		{"QUOTE_BATCH_SIZE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig() with %s=%q succeeded, want error", tt.key, tt.value)
			}
		})
	}
}

func TestLoadUniverse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	content := `
crypto: ["BTC/USD", "ETH/USD"]
crypto_names:
  BTC/USD: Bitcoin
stocks: [AAPL]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	u, err := LoadUniverse(path)
	if err != nil {
		t.Fatalf("LoadUniverse() error = %v", err)
	}
	if len(u.Crypto) != 2 || len(u.Stocks) != 1 {
		t.Fatalf("universe = %+v", u)
	}
	if got := u.CryptoName("BTC/USD", "BTC"); got != "Bitcoin" {
		t.Errorf("CryptoName(BTC/USD) = %q, want Bitcoin", got)
	}
	if got := u.CryptoName("ETH/USD", "Ethereum (provider)"); got != "Ethereum (provider)" {
		t.Errorf("CryptoName(ETH/USD) = %q, want provider name", got)
	}
}

func TestUniverseValidate(t *testing.T) {
	if err := (Universe{}).Validate(); err == nil {
		t.Error("empty universe validated")
	}
	big := make([]string, maxUniverseClassSize+1)
	if err := (Universe{Stocks: big}).Validate(); err == nil {
		t.Error("oversized stock list validated")
	}
	if err := DefaultUniverse().Validate(); err != nil {
		t.Errorf("default universe invalid: %v", err)
	}
}
