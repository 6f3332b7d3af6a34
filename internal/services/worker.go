package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/0xRichardL/narrative-pipeline/internal/sentiment"
	"github.com/0xRichardL/narrative-pipeline/internal/storage"
	"github.com/shopspring/decimal"
)

const (
	defaultTimeBudget = 50 * time.Second
	publishTimeout    = 5 * time.Second
	cleanupTimeout    = 5 * time.Second
)

type TickerError struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// WorkerReport summarizes one worker run.
type WorkerReport struct {
	Success          bool          `json:"success"`
	Processed        int           `json:"processed"`
	Errors           int           `json:"errors"`
	ErrorDetails     []TickerError `json:"errorDetails"`
	RemainingInQueue int64         `json:"remainingInQueue"`
	ExecutionTimeMs  int64         `json:"executionTimeMs"`
}

// WorkerService drains the ticker queue one item at a time until the queue
// is empty or the time budget is spent. The budget is only checked before
// popping, so a run can overshoot by one ticker.
type WorkerService struct {
	queue     TickerQueue
	news      NewsSearcher
	scorers   ScorerSelector
	assets    AssetStore
	publisher EventPublisher
	logger    *log.Logger

	budget time.Duration
	now    func() time.Time
}

func NewWorkerService(queue TickerQueue, news NewsSearcher, scorers ScorerSelector, assets AssetStore, publisher EventPublisher, budget time.Duration, logger *log.Logger) *WorkerService {
	if budget <= 0 {
		budget = defaultTimeBudget
	}
	return &WorkerService{
		queue:     queue,
		news:      news,
		scorers:   scorers,
		assets:    assets,
		publisher: publisherOrNop(publisher),
		logger:    logger,
		budget:    budget,
		now:       time.Now,
	}
}

// Run processes queued tickers. Per-ticker failures are collected in the
// report; only queue or flag store failures abort the run.
func (s *WorkerService) Run(ctx context.Context) (WorkerReport, error) {
	start := s.now()
	report := WorkerReport{ErrorDetails: []TickerError{}}

	scorer, mocked, err := s.scorers.Select(ctx)
	if err != nil {
		return WorkerReport{}, err
	}
	if mocked {
		s.logger.Printf("worker: scoring is mocked for this run")
	}

	for s.now().Sub(start) < s.budget {
		if err := ctx.Err(); err != nil {
			return WorkerReport{}, err
		}
		ticker, ok, err := s.queue.Pop(ctx)
		if err != nil {
			return WorkerReport{}, fmt.Errorf("pop ticker: %w", err)
		}
		if !ok {
			break
		}

		if err := s.processTicker(ctx, scorer, ticker); err != nil {
			s.logger.Printf("worker: error processing %s: %v", ticker, err)
			report.Errors++
			report.ErrorDetails = append(report.ErrorDetails, TickerError{Ticker: ticker, Error: err.Error()})
		} else {
			report.Processed++
		}

		if err := s.complete(ctx, ticker); err != nil {
			return WorkerReport{}, fmt.Errorf("complete %s: %w", ticker, err)
		}
	}

	remaining, err := s.queue.Length(ctx)
	if err != nil {
		return WorkerReport{}, fmt.Errorf("queue length: %w", err)
	}
	report.Success = true
	report.RemainingInQueue = remaining
	report.ExecutionTimeMs = s.now().Sub(start).Milliseconds()
	return report, nil
}

// complete releases the in-flight marker even when ctx is already cancelled,
// otherwise the ticker could never be queued again.
func (s *WorkerService) complete(ctx context.Context, ticker string) error {
	cctx, cancel := detached(ctx)
	defer cancel()
	return s.queue.Complete(cctx, ticker)
}

func (s *WorkerService) processTicker(ctx context.Context, scorer sentiment.Scorer, ticker string) error {
	items, err := s.news.SearchNews(ctx, ticker)
	if err != nil {
		return err
	}

	analysis, err := scorer.Score(ctx, ticker, newsContext(ticker, items))
	if err != nil {
		return err
	}

	// Looked up after scoring, so an untracked ticker still costs one scorer call.
	asset, err := s.assets.FindAssetBySymbol(ctx, ticker)
	if errors.Is(err, storage.ErrAssetNotFound) {
		s.logger.Printf("worker: no asset for %s, score %.2f discarded", ticker, analysis.SentimentScore)
		return nil
	}
	if err != nil {
		return err
	}

	score := decimal.NewFromFloat(analysis.SentimentScore).Round(2)
	record, err := s.assets.InsertSentiment(ctx, asset.ID, score, analysis.Reasoning)
	if err != nil {
		return err
	}
	s.publishScored(ctx, asset, record, analysis)
	return nil
}

func (s *WorkerService) publishScored(ctx context.Context, asset domain.Asset, record domain.SentimentRecord, analysis domain.SentimentAnalysis) {
	topics := make([]any, 0, len(analysis.KeyTopics))
	for _, t := range analysis.KeyTopics {
		topics = append(topics, t)
	}
	evt := domain.PipelineEvent{
		Type:       domain.EventSentimentScored,
		Key:        asset.Symbol,
		OccurredAt: record.CreatedAt,
		Data: map[string]any{
			"assetId":   asset.ID,
			"symbol":    asset.Symbol,
			"recordId":  record.ID,
			"score":     record.Score.StringFixed(2),
			"summary":   record.Summary,
			"keyTopics": topics,
		},
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, evt); err != nil {
		s.logger.Printf("worker: publish %s for %s: %v", evt.Type, asset.Symbol, err)
	}
}

func newsContext(ticker string, items []domain.NewsItem) string {
	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	return fmt.Sprintf("Recent news for %s:\n- %s", ticker, strings.Join(titles, "\n- "))
}
