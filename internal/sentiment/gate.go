package sentiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
)

// ErrScorerUnavailable is returned by the model scorer slot when no model
// credentials are configured and mocking is off.
var ErrScorerUnavailable = errors.New("sentiment model is not configured")

type Scorer interface {
	Score(ctx context.Context, assetName, newsContext string) (domain.SentimentAnalysis, error)
}

type FlagReader interface {
	LLMMockEnabled(ctx context.Context) (bool, error)
}

// Gate chooses between the model backed scorer and the mock one. The flag
// is read once per run so a toggle never splits a batch.
type Gate struct {
	flags FlagReader
	model Scorer
	mock  Scorer
}

// NewGate builds a gate. A nil model scorer means every unmocked call fails
// with ErrScorerUnavailable.
func NewGate(flags FlagReader, model, mock Scorer) *Gate {
	if model == nil {
		model = unavailableScorer{}
	}
	if mock == nil {
		mock = NewMockScorer()
	}
	return &Gate{flags: flags, model: model, mock: mock}
}

// Select returns the scorer for this run and whether it is the mock.
func (g *Gate) Select(ctx context.Context) (Scorer, bool, error) {
	mocked, err := g.flags.LLMMockEnabled(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("read mock flag: %w", err)
	}
	if mocked {
		return g.mock, true, nil
	}
	return g.model, false, nil
}

type unavailableScorer struct{}

func (unavailableScorer) Score(context.Context, string, string) (domain.SentimentAnalysis, error) {
	return domain.SentimentAnalysis{}, ErrScorerUnavailable
}
