package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/0xRichardL/narrative-pipeline/internal/config"
	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/0xRichardL/narrative-pipeline/internal/services"
	"github.com/0xRichardL/narrative-pipeline/internal/storage"
	"github.com/0xRichardL/narrative-pipeline/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const testSecret = "s3cret"

var testLogger = log.New(io.Discard, "", 0)

type seedFunc func(context.Context) (services.SeedReport, error)

func (f seedFunc) Run(ctx context.Context) (services.SeedReport, error) { return f(ctx) }

type workFunc func(context.Context) (services.WorkerReport, error)

func (f workFunc) Run(ctx context.Context) (services.WorkerReport, error) { return f(ctx) }

type syncFunc func(context.Context) (services.SyncReport, error)

func (f syncFunc) Run(ctx context.Context) (services.SyncReport, error) { return f(ctx) }

type fakeMarket struct {
	stats  services.MarketStats
	quotes []domain.MarketDataEntry
	gotTyp domain.AssetType
}

func (f *fakeMarket) Stats(context.Context) (services.MarketStats, error) { return f.stats, nil }

func (f *fakeMarket) SyncStatus(context.Context) (services.SyncStatusReport, error) {
	return services.SyncStatusReport{IsStale: true}, nil
}

func (f *fakeMarket) Quotes(_ context.Context, t domain.AssetType) ([]domain.MarketDataEntry, error) {
	f.gotTyp = t
	return f.quotes, nil
}

type fakeSentiment struct {
	records []domain.SentimentRecord
	gotLim  int
}

func (f *fakeSentiment) FindAssetBySymbol(_ context.Context, symbol string) (domain.Asset, error) {
	if symbol != "AAPL" {
		return domain.Asset{}, fmt.Errorf("%w: %s", storage.ErrAssetNotFound, symbol)
	}
	return domain.Asset{ID: "a1", Symbol: "AAPL", Name: "Apple"}, nil
}

func (f *fakeSentiment) ListSentiment(_ context.Context, _ string, limit int) ([]domain.SentimentRecord, error) {
	f.gotLim = limit
	return f.records, nil
}

type fakeTickers struct{}

func (fakeTickers) Search(_ context.Context, q string) []domain.TickerMatch {
	if q == "apple" {
		return []domain.TickerMatch{{Symbol: "AAPL", Name: "Apple Inc.", Type: "EQUITY"}}
	}
	return nil
}

type fakeAssets struct{}

func (fakeAssets) UpsertAsset(_ context.Context, symbol, name string) (domain.Asset, error) {
	return domain.Asset{ID: "new", Symbol: symbol, Name: name}, nil
}

type testEnv struct {
	router    *gin.Engine
	redis     *miniredis.Miniredis
	queue     *store.IngestionQueue
	market    *fakeMarket
	sentiment *fakeSentiment
}

type runners struct {
	seed SeedRunner
	work WorkRunner
	sync SyncRunner
}

func newTestEnv(t *testing.T, secret string, rn runners) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	queue := store.NewIngestionQueue(client, "narrative:queue", "narrative:processing")
	settings := store.NewMockSettingsStore(client, "narrative:mock_settings")
	market := &fakeMarket{}
	sent := &fakeSentiment{}

	if rn.seed == nil {
		rn.seed = seedFunc(func(context.Context) (services.SeedReport, error) { return services.SeedReport{Success: true}, nil })
	}
	if rn.work == nil {
		rn.work = workFunc(func(context.Context) (services.WorkerReport, error) { return services.WorkerReport{Success: true}, nil })
	}
	if rn.sync == nil {
		rn.sync = syncFunc(func(context.Context) (services.SyncReport, error) { return services.SyncReport{Success: true}, nil })
	}

	r, _ := NewServer(config.Config{HTTPAddr: ":0"}, map[string]Pinger{"redis": redisPinger{client}})
	Mount(r, secret,
		NewCronController(rn.seed, rn.work, rn.sync, testLogger),
		NewAdminController(settings, queue, fakeAssets{}),
		NewMarketController(market, sent, fakeTickers{}),
	)
	return &testEnv{router: r, redis: mr, queue: queue, market: market, sentiment: sent}
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

func (e *testEnv) do(method, path, auth, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestCronAuth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		auth   string
		want   int
	}{
		{name: "missing header", secret: testSecret, auth: "", want: http.StatusUnauthorized},
		{name: "wrong secret", secret: testSecret, auth: "Bearer nope", want: http.StatusUnauthorized},
		{name: "no bearer prefix", secret: testSecret, auth: testSecret, want: http.StatusUnauthorized},
		{name: "unset secret", secret: "", auth: "Bearer ", want: http.StatusUnauthorized},
		{name: "valid", secret: testSecret, auth: "Bearer " + testSecret, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			env := newTestEnv(t, tt.secret, runners{seed: seedFunc(func(context.Context) (services.SeedReport, error) {
				called = true
				return services.SeedReport{Success: true}, nil
			})})
			w := env.do(http.MethodPost, "/api/cron/seed", tt.auth, "")
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				if called {
					t.Error("seeder ran on rejected request")
				}
				if got := decode(t, w)["error"]; got != "Unauthorized" {
					t.Errorf("error = %v", got)
				}
			}
		})
	}
}

func TestCronReports(t *testing.T) {
	env := newTestEnv(t, testSecret, runners{
		seed: seedFunc(func(context.Context) (services.SeedReport, error) {
			return services.SeedReport{Success: true, TotalAssets: 2, Queued: 2}, nil
		}),
		work: workFunc(func(context.Context) (services.WorkerReport, error) {
			return services.WorkerReport{Success: true, Processed: 2, Errors: 1,
				ErrorDetails: []services.TickerError{{Ticker: "B", Error: "boom"}}}, nil
		}),
	})
	auth := "Bearer " + testSecret

	seed := decode(t, env.do(http.MethodGet, "/api/cron/seed", auth, ""))
	if seed["totalAssets"] != float64(2) || seed["queued"] != float64(2) || seed["skipped"] != float64(0) {
		t.Errorf("seed body = %v", seed)
	}

	work := decode(t, env.do(http.MethodPost, "/api/cron/work", auth, ""))
	details, _ := work["errorDetails"].([]any)
	if work["processed"] != float64(2) || len(details) != 1 {
		t.Errorf("work body = %v", work)
	}
	for _, key := range []string{"success", "errors", "remainingInQueue", "executionTimeMs"} {
		if _, ok := work[key]; !ok {
			t.Errorf("work body missing %q", key)
		}
	}
}

func TestCronHardFailures(t *testing.T) {
	env := newTestEnv(t, testSecret, runners{
		work: workFunc(func(context.Context) (services.WorkerReport, error) {
			return services.WorkerReport{}, errors.New("redis down")
		}),
		sync: syncFunc(func(context.Context) (services.SyncReport, error) {
			return services.SyncReport{}, &services.SyncError{Err: errors.New("fetch stock quotes: boom")}
		}),
	})
	auth := "Bearer " + testSecret

	w := env.do(http.MethodPost, "/api/cron/work", auth, "")
	if w.Code != http.StatusInternalServerError || decode(t, w)["error"] != "Internal server error" {
		t.Errorf("work failure = %d %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodPost, "/api/cron/sync", auth, "")
	body := decode(t, w)
	if w.Code != http.StatusInternalServerError || body["error"] != "Market data sync failed" || body["message"] != "fetch stock quotes: boom" {
		t.Errorf("sync failure = %d %v", w.Code, body)
	}
}

func TestAdminMockToggle(t *testing.T) {
	env := newTestEnv(t, testSecret, runners{})
	auth := "Bearer " + testSecret

	if got := decode(t, env.do(http.MethodGet, "/api/admin/mock", auth, "")); got["llmMockEnabled"] != false {
		t.Errorf("default mock settings = %v", got)
	}
	w := env.do(http.MethodPut, "/api/admin/mock", auth, `{"enabled":true}`)
	if w.Code != http.StatusOK || decode(t, w)["llmMockEnabled"] != true {
		t.Fatalf("PUT = %d %s", w.Code, w.Body.String())
	}
	if got := decode(t, env.do(http.MethodGet, "/api/admin/mock", auth, "")); got["llmMockEnabled"] != true {
		t.Errorf("after toggle = %v", got)
	}
	if ttl := env.redis.TTL("narrative:mock_settings"); ttl != 0 {
		t.Errorf("mock settings TTL = %v, want none", ttl)
	}

	if w := env.do(http.MethodPut, "/api/admin/mock", auth, `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("PUT without enabled = %d", w.Code)
	}
	if w := env.do(http.MethodPut, "/api/admin/mock", "", `{"enabled":false}`); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated PUT = %d", w.Code)
	}
}

func TestAdminQueueInspectAndRelease(t *testing.T) {
	env := newTestEnv(t, testSecret, runners{})
	auth := "Bearer " + testSecret
	ctx := context.Background()

	for _, tk := range []string{"AAPL", "MSFT"} {
		if _, err := env.queue.Add(ctx, tk); err != nil {
			t.Fatal(err)
		}
	}
	// Simulate a worker that popped AAPL and died.
	if _, _, err := env.queue.Pop(ctx); err != nil {
		t.Fatal(err)
	}

	body := decode(t, env.do(http.MethodGet, "/api/admin/queue", auth, ""))
	inFlight, _ := body["inFlight"].([]any)
	if body["length"] != float64(1) || len(inFlight) != 2 {
		t.Errorf("queue status = %v", body)
	}

	if w := env.do(http.MethodDelete, "/api/admin/queue/AAPL", auth, ""); w.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d", w.Code)
	}
	res, err := env.queue.Add(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != store.AddStatusQueued {
		t.Errorf("Add after release = %+v, want queued", res)
	}
}

func TestAdminUpsertAsset(t *testing.T) {
	env := newTestEnv(t, testSecret, runners{})
	auth := "Bearer " + testSecret

	w := env.do(http.MethodPost, "/api/admin/assets", auth, `{"symbol":" NVDA ","name":"NVIDIA"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST = %d %s", w.Code, w.Body.String())
	}
	if got := decode(t, w); got["symbol"] != "NVDA" || got["name"] != "NVIDIA" {
		t.Errorf("asset = %v", got)
	}
	if w := env.do(http.MethodPost, "/api/admin/assets", auth, `{"name":"x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("POST without symbol = %d", w.Code)
	}
}

func TestMarketReads(t *testing.T) {
	env := newTestEnv(t, testSecret, runners{})
	env.market.stats = services.MarketStats{TotalMarketCap: decimal.NewFromInt(1000), BTCDominance: decimal.NewFromInt(60), IsStale: false}
	env.market.quotes = []domain.MarketDataEntry{{Symbol: "AAPL", Rank: 1}}

	stats := decode(t, env.do(http.MethodGet, "/api/market/stats", "", ""))
	if stats["btcDominance"] != "60" || stats["isStale"] != false {
		t.Errorf("stats = %v", stats)
	}
	if _, ok := stats["stockMarketOpen"]; !ok {
		t.Error("stats missing stockMarketOpen")
	}

	if got := decode(t, env.do(http.MethodGet, "/api/market/sync-status", "", "")); got["isStale"] != true {
		t.Errorf("sync-status = %v", got)
	}

	if w := env.do(http.MethodGet, "/api/market/quotes?type=stock", "", ""); w.Code != http.StatusOK || env.market.gotTyp != domain.AssetTypeStock {
		t.Errorf("quotes = %d type=%q", w.Code, env.market.gotTyp)
	}
	if w := env.do(http.MethodGet, "/api/market/quotes?type=bond", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("quotes with bad type = %d", w.Code)
	}
}

func TestSentimentHistory(t *testing.T) {
	env := newTestEnv(t, testSecret, runners{})
	env.sentiment.records = []domain.SentimentRecord{{ID: "r1", AssetID: "a1", Score: decimal.RequireFromString("0.35"), Summary: "ok"}}

	w := env.do(http.MethodGet, "/api/assets/AAPL/sentiment?limit=500", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	records, _ := body["sentiment"].([]any)
	if len(records) != 1 || env.sentiment.gotLim != maxSentimentLimit {
		t.Errorf("body = %v limit = %d", body, env.sentiment.gotLim)
	}

	if w := env.do(http.MethodGet, "/api/assets/NOPE/sentiment", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown asset = %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/assets/AAPL/sentiment?limit=x", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", w.Code)
	}
}

func TestTickerSearch(t *testing.T) {
	env := newTestEnv(t, testSecret, runners{})

	w := env.do(http.MethodGet, "/api/tickers/search?q=apple", "", "")
	var matches []domain.TickerMatch
	if err := json.Unmarshal(w.Body.Bytes(), &matches); err != nil || len(matches) != 1 {
		t.Errorf("matches = %s", w.Body.String())
	}
	if w := env.do(http.MethodGet, "/api/tickers/search?q=zzz", "", ""); strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("no matches body = %s", w.Body.String())
	}
	if w := env.do(http.MethodGet, "/api/tickers/search", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testSecret, runners{})
	if w := env.do(http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("healthy = %d %s", w.Code, w.Body.String())
	}
	env.redis.Close()
	w := env.do(http.MethodGet, "/health", "", "")
	if w.Code != http.StatusServiceUnavailable || decode(t, w)["status"] != "degraded" {
		t.Errorf("degraded = %d %s", w.Code, w.Body.String())
	}
}
