package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	service "github.com/0xRichardL/narrative-pipeline/internal"
	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/0xRichardL/narrative-pipeline/internal/store"
	"github.com/google/subcommands"
)

type mockCmd struct {
	enable  bool
	disable bool
}

func (*mockCmd) Name() string     { return "mock" }
func (*mockCmd) Synopsis() string { return "show or toggle the mocked sentiment scorer" }
func (*mockCmd) Usage() string {
	return `mock [-enable | -disable]

  Without flags prints the current settings. The flag is shared with every
  running worker through Redis.
`
}

func (c *mockCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.enable, "enable", false, "Switch scoring to the deterministic mock.")
	f.BoolVar(&c.disable, "disable", false, "Switch scoring back to the language model.")
}

func (c *mockCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env, err := envFrom(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if c.enable && c.disable {
		fmt.Fprintln(os.Stderr, "-enable and -disable are mutually exclusive")
		return subcommands.ExitUsageError
	}

	client := service.NewRedisClient(env.Config)
	defer func() {
		if err := client.Close(); err != nil {
			env.Logger.Printf("error closing Redis client: %v", err)
		}
	}()
	settings := store.NewMockSettingsStore(client, env.Config.MockSettingsKey)

	var current domain.MockSettings
	switch {
	case c.enable:
		current, err = settings.ToggleLLMMock(ctx, true)
	case c.disable:
		current, err = settings.ToggleLLMMock(ctx, false)
	default:
		current, err = settings.Get(ctx)
	}
	if err != nil {
		env.Logger.Printf("mock settings: %v", err)
		return subcommands.ExitFailure
	}
	if err := printJSON(env.Out, current); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
