package cli

import (
	"context"
	"flag"

	service "github.com/0xRichardL/narrative-pipeline/internal"
	"github.com/google/subcommands"
)

type seedCmd struct{}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "offer every tracked asset to the work queue once" }
func (*seedCmd) Usage() string {
	return `seed

  Prints {success, totalAssets, queued, skipped}. Tickers already in flight
  are skipped.
`
}
func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (*seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env Env, app *service.App) error {
		report, err := app.Seeder.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(env.Out, report)
	})
}

type workCmd struct{}

func (*workCmd) Name() string     { return "work" }
func (*workCmd) Synopsis() string { return "drain the work queue within the worker time budget" }
func (*workCmd) Usage() string {
	return `work

  Scores queued tickers until the queue is empty or WORKER_TIME_BUDGET is
  spent, then prints the run report.
`
}
func (*workCmd) SetFlags(*flag.FlagSet) {}

func (*workCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env Env, app *service.App) error {
		report, err := app.Worker.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(env.Out, report)
	})
}

type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "refresh the market data cache for the symbol universe" }
func (*syncCmd) Usage() string {
	return `sync

  Fetches quotes for the crypto and stock universe, upserts them and
  records the run in the sync log.
`
}
func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (*syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env Env, app *service.App) error {
		report, err := app.Sync.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(env.Out, report)
	})
}
