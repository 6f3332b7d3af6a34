package cli

import (
	"context"
	"errors"
	"flag"

	service "github.com/0xRichardL/narrative-pipeline/internal"
	"github.com/google/subcommands"
)

type serveCmd struct {
	migrate bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP trigger surface and the optional scheduler" }
func (*serveCmd) Usage() string {
	return `serve [-migrate=false]

  Serves /api/cron/{seed,work,sync}, the admin endpoints and the market
  read endpoints. With SCHEDULER_ENABLED=true the pipeline jobs also run
  on their configured intervals.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.migrate, "migrate", true, "Apply the SQL schema before serving.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env Env, app *service.App) error {
		if c.migrate {
			if err := app.Migrate(ctx); err != nil {
				return err
			}
		}
		if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		env.Logger.Printf("service stopped")
		return nil
	})
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the SQL schema if missing" }
func (*migrateCmd) Usage() string    { return "migrate\n" }

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env Env, app *service.App) error {
		if err := app.Migrate(ctx); err != nil {
			return err
		}
		env.Logger.Printf("schema up to date")
		return nil
	})
}
