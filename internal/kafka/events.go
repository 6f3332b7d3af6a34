package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/config"
	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventPublisher publishes pipeline events to Kafka as protobuf Structs.
type EventPublisher struct {
	writer *kafka.Writer
	Topic  string
}

func NewEventPublisher(cfg config.Config) *EventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaEventsTopic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &EventPublisher{writer: writer, Topic: cfg.KafkaEventsTopic}
}

func (p *EventPublisher) Publish(ctx context.Context, evt domain.PipelineEvent) error {
	value, err := EncodeEvent(evt)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(evt.Key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}

// EventConsumer reads pipeline events back from Kafka.
type EventConsumer struct {
	reader *kafka.Reader
}

func NewEventConsumer(cfg config.Config) *EventConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaGroupID,
		Topic:   cfg.KafkaEventsTopic,
	})
	return &EventConsumer{reader: reader}
}

// Consume passes every event to handler until ctx is done or handler fails.
func (c *EventConsumer) Consume(ctx context.Context, handler func(context.Context, domain.PipelineEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("kafka read: %w", err)
		}

		evt, err := DecodeEvent(msg.Value)
		if err != nil {
			return err
		}
		if err := handler(ctx, evt); err != nil {
			return err
		}
	}
}

func (c *EventConsumer) Close() error {
	return c.reader.Close()
}

// EncodeEvent marshals evt as a google.protobuf.Struct.
func EncodeEvent(evt domain.PipelineEvent) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"type":       evt.Type,
		"key":        evt.Key,
		"occurredAt": evt.OccurredAt.UTC().Format(time.RFC3339Nano),
		"data":       structValue(evt.Data),
	})
	if err != nil {
		return nil, fmt.Errorf("build event struct: %w", err)
	}
	value, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal event proto: %w", err)
	}
	return value, nil
}

func DecodeEvent(raw []byte) (domain.PipelineEvent, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(raw, &s); err != nil {
		return domain.PipelineEvent{}, fmt.Errorf("unmarshal event proto: %w", err)
	}
	fields := s.AsMap()

	evt := domain.PipelineEvent{}
	evt.Type, _ = fields["type"].(string)
	evt.Key, _ = fields["key"].(string)
	if ts, ok := fields["occurredAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			evt.OccurredAt = t
		}
	}
	evt.Data, _ = fields["data"].(map[string]any)
	if evt.Type == "" {
		return domain.PipelineEvent{}, fmt.Errorf("unmarshal event proto: missing type")
	}
	return evt, nil
}

// structValue rewrites values structpb cannot hold directly.
func structValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = structValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = structValue(val)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = val
		}
		return out
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}
