package services

import (
	"context"
	"fmt"
	"log"

	"github.com/0xRichardL/narrative-pipeline/internal/store"
)

type SeedReport struct {
	Success     bool `json:"success"`
	TotalAssets int  `json:"totalAssets"`
	Queued      int  `json:"queued"`
	Skipped     int  `json:"skipped"`
}

// SeederService offers every tracked asset to the queue. Assets already in
// flight are skipped by the queue, so repeated runs are cheap.
type SeederService struct {
	assets AssetStore
	queue  TickerQueue
	logger *log.Logger
}

func NewSeederService(assets AssetStore, queue TickerQueue, logger *log.Logger) *SeederService {
	return &SeederService{assets: assets, queue: queue, logger: logger}
}

func (s *SeederService) Run(ctx context.Context) (SeedReport, error) {
	assets, err := s.assets.ListAssets(ctx)
	if err != nil {
		return SeedReport{}, fmt.Errorf("list assets: %w", err)
	}

	report := SeedReport{TotalAssets: len(assets)}
	for _, a := range assets {
		res, err := s.queue.Add(ctx, a.Symbol)
		if err != nil {
			return SeedReport{}, fmt.Errorf("queue %s: %w", a.Symbol, err)
		}
		if res.Status == store.AddStatusQueued {
			report.Queued++
		} else {
			report.Skipped++
		}
	}
	s.logger.Printf("seeder: %d assets, %d queued, %d skipped", report.TotalAssets, report.Queued, report.Skipped)
	report.Success = true
	return report, nil
}
