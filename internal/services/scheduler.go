package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/routine"
)

// Job is one schedulable pipeline step.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs pipeline jobs periodically inside the process. It takes no
// locks of its own; overlapping external triggers are safe because the jobs
// themselves are.
type Scheduler struct {
	jobs   []Job
	logger *log.Logger
}

func NewScheduler(logger *log.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, logger: logger}
}

// PipelineJobs wraps the three pipeline services as scheduler jobs.
func PipelineJobs(seeder *SeederService, worker *WorkerService, sync *MarketSyncService, seedEvery, workEvery, syncEvery time.Duration) []Job {
	return []Job{
		{Name: "seed", Interval: seedEvery, Run: func(ctx context.Context) error {
			_, err := seeder.Run(ctx)
			return err
		}},
		{Name: "work", Interval: workEvery, Run: func(ctx context.Context) error {
			_, err := worker.Run(ctx)
			return err
		}},
		{Name: "sync", Interval: syncEvery, Run: func(ctx context.Context) error {
			_, err := sync.Run(ctx)
			return err
		}},
	}
}

// Start launches every job with a positive interval and blocks until ctx
// is done.
func (s *Scheduler) Start(ctx context.Context) error {
	manager := routine.NewManager(ctx)
	defer manager.ShutdownAll()

	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.logger.Printf("scheduler: %s disabled", job.Name)
			continue
		}
		err := manager.RunTask(&routine.Task{
			ID: job.Name,
			Handler: routine.Every(job.Interval, job.Run, func(err error) {
				s.logger.Printf("scheduler: %s failed: %v", job.Name, err)
			}),
			OnStart: func(id string) {
				s.logger.Printf("scheduler: %s every %s", id, job.Interval)
			},
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name, err)
		}
	}

	<-ctx.Done()
	return nil
}
