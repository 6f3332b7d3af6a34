package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/0xRichardL/narrative-pipeline/internal/cli"
	"github.com/0xRichardL/narrative-pipeline/internal/config"
	"github.com/google/subcommands"
)

func main() {
	logger := log.New(os.Stdout, "narrative ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, cmd := range cli.Commands {
		commander.Register(cmd, "")
	}
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	status := commander.Execute(ctx, cli.Env{Config: cfg, Logger: logger, Out: os.Stdout})
	cancel()
	os.Exit(int(status))
}
