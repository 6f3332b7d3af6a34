package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/0xRichardL/narrative-pipeline/internal/kafka"
	"github.com/google/subcommands"
)

var errLimitReached = errors.New("event limit reached")

type eventsCmd struct {
	limit int
}

func (*eventsCmd) Name() string     { return "events" }
func (*eventsCmd) Synopsis() string { return "tail pipeline events from Kafka" }
func (*eventsCmd) Usage() string {
	return `events [-n count]

  Prints sentiment.scored and market.synced events as JSON lines until
  interrupted, or until count events have been read.
`
}

func (c *eventsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 0, "Stop after this many events. 0 means no limit.")
}

func (c *eventsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env, err := envFrom(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if len(env.Config.KafkaBrokers) == 0 {
		fmt.Fprintln(os.Stderr, "KAFKA_BROKERS is not set")
		return subcommands.ExitFailure
	}

	consumer := kafka.NewEventConsumer(env.Config)
	defer func() {
		if err := consumer.Close(); err != nil {
			env.Logger.Printf("error closing Kafka consumer: %v", err)
		}
	}()

	err = consumer.Consume(ctx, eventPrinter(env.Out, c.limit))
	switch {
	case err == nil, errors.Is(err, errLimitReached), errors.Is(err, context.Canceled):
		return subcommands.ExitSuccess
	default:
		env.Logger.Printf("consume events: %v", err)
		return subcommands.ExitFailure
	}
}

// eventPrinter writes each event as one JSON line and stops with
// errLimitReached after limit events when limit is positive.
func eventPrinter(w io.Writer, limit int) func(context.Context, domain.PipelineEvent) error {
	seen := 0
	return func(_ context.Context, evt domain.PipelineEvent) error {
		if err := writeEventLine(w, evt); err != nil {
			return err
		}
		seen++
		if limit > 0 && seen >= limit {
			return errLimitReached
		}
		return nil
	}
}
