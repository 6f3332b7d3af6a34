package services

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/0xRichardL/narrative-pipeline/internal/sentiment"
	"github.com/0xRichardL/narrative-pipeline/internal/storage"
	"github.com/0xRichardL/narrative-pipeline/internal/store"
	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

var testLogger = log.New(io.Discard, "", 0)

const (
	testQueueKey      = "narrative:queue"
	testProcessingKey = "narrative:processing"
)

func newTestQueue(t *testing.T) (*store.IngestionQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.NewIngestionQueue(client, testQueueKey, testProcessingKey), mr
}

func newTestStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	ctx := context.Background()
	s, err := storage.Open(ctx, storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func seedAssets(t *testing.T, s *storage.SQLStore, symbols ...string) map[string]domain.Asset {
	t.Helper()
	out := make(map[string]domain.Asset, len(symbols))
	for _, sym := range symbols {
		a, err := s.UpsertAsset(context.Background(), sym, sym+" Inc")
		if err != nil {
			t.Fatalf("UpsertAsset(%s) error = %v", sym, err)
		}
		out[sym] = a
	}
	return out
}

func enqueue(t *testing.T, q *store.IngestionQueue, tickers ...string) {
	t.Helper()
	for _, tk := range tickers {
		if _, err := q.Add(context.Background(), tk); err != nil {
			t.Fatalf("Add(%s) error = %v", tk, err)
		}
	}
}

// fakeNews returns one headline per ticker unless the ticker is listed in
// failing.
type fakeNews struct {
	failing map[string]error
}

func (f fakeNews) SearchNews(_ context.Context, ticker string) ([]domain.NewsItem, error) {
	if err, ok := f.failing[ticker]; ok {
		return nil, err
	}
	return []domain.NewsItem{
		{UUID: ticker + "-1", Title: ticker + " rallies"},
		{UUID: ticker + "-2", Title: ticker + " guidance cut"},
	}, nil
}

// recordingScorer returns a fixed analysis and remembers the contexts it saw.
type recordingScorer struct {
	mu       sync.Mutex
	score    float64
	contexts []string
	err      error
}

func (r *recordingScorer) Score(_ context.Context, assetName, newsContext string) (domain.SentimentAnalysis, error) {
	r.mu.Lock()
	r.contexts = append(r.contexts, newsContext)
	r.mu.Unlock()
	if r.err != nil {
		return domain.SentimentAnalysis{}, r.err
	}
	return domain.SentimentAnalysis{
		SentimentScore: r.score,
		Reasoning:      "reasoning for " + assetName,
		KeyTopics:      []string{"topic"},
	}, nil
}

type fixedSelector struct {
	scorer sentiment.Scorer
	mocked bool
	err    error
}

func (f fixedSelector) Select(context.Context) (sentiment.Scorer, bool, error) {
	return f.scorer, f.mocked, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PipelineEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.PipelineEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) Events() []domain.PipelineEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PipelineEvent(nil), p.events...)
}

// stepClock advances by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

var errNewsDown = errors.New("yahoo finance search failed for B: unexpected status 503")
