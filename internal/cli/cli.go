package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	service "github.com/0xRichardL/narrative-pipeline/internal"
	"github.com/0xRichardL/narrative-pipeline/internal/config"
	"github.com/google/subcommands"
)

// Env is passed as the first Execute argument to every command.
type Env struct {
	Config config.Config
	Logger *log.Logger
	Out    io.Writer
}

// Commands lists every subcommand of the binary.
var Commands = []subcommands.Command{
	&serveCmd{},
	&seedCmd{},
	&workCmd{},
	&syncCmd{},
	&mockCmd{},
	&migrateCmd{},
	&eventsCmd{},
}

func envFrom(args []interface{}) (Env, error) {
	if len(args) == 0 {
		return Env{}, fmt.Errorf("missing command environment")
	}
	env, ok := args[0].(Env)
	if !ok {
		return Env{}, fmt.Errorf("unexpected command environment %T", args[0])
	}
	if env.Out == nil {
		env.Out = os.Stdout
	}
	return env, nil
}

// withApp builds the App, runs fn and closes the App afterwards.
func withApp(ctx context.Context, args []interface{}, fn func(Env, *service.App) error) subcommands.ExitStatus {
	env, err := envFrom(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	app, err := service.NewApp(ctx, env.Config, env.Logger)
	if err != nil {
		env.Logger.Printf("failed to build app: %v", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if err := fn(env, app); err != nil {
		env.Logger.Printf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeEventLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
