package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	redis "github.com/redis/go-redis/v9"
)

// MockSettingsStore keeps the scorer feature flag as a JSON document in
// Redis with no expiry.
type MockSettingsStore struct {
	client *redis.Client
	key    string
}

func NewMockSettingsStore(client *redis.Client, key string) *MockSettingsStore {
	return &MockSettingsStore{client: client, key: key}
}

// Get reads the current settings. A missing key yields the defaults.
func (s *MockSettingsStore) Get(ctx context.Context) (domain.MockSettings, error) {
	if s.key == "" {
		return domain.MockSettings{}, fmt.Errorf("mock settings key is not configured")
	}
	raw, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return domain.MockSettings{}, nil
	}
	if err != nil {
		return domain.MockSettings{}, fmt.Errorf("redis GET %s: %w", s.key, err)
	}
	var settings domain.MockSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return domain.MockSettings{}, fmt.Errorf("unmarshal mock settings: %w", err)
	}
	return settings, nil
}

// Set merges update into the stored settings and returns the result.
func (s *MockSettingsStore) Set(ctx context.Context, update domain.MockSettingsUpdate) (domain.MockSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return domain.MockSettings{}, err
	}
	if update.LLMMockEnabled != nil {
		current.LLMMockEnabled = *update.LLMMockEnabled
	}
	data, err := json.Marshal(current)
	if err != nil {
		return domain.MockSettings{}, fmt.Errorf("marshal mock settings: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return domain.MockSettings{}, fmt.Errorf("redis SET %s: %w", s.key, err)
	}
	return current, nil
}

// ToggleLLMMock switches the mock scorer on or off.
func (s *MockSettingsStore) ToggleLLMMock(ctx context.Context, enabled bool) (domain.MockSettings, error) {
	return s.Set(ctx, domain.MockSettingsUpdate{LLMMockEnabled: &enabled})
}

// LLMMockEnabled reports whether scoring is currently mocked.
func (s *MockSettingsStore) LLMMockEnabled(ctx context.Context) (bool, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return settings.LLMMockEnabled, nil
}
