package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/motortribe/motortribe/internal/platform/logger"
	"github.com/motortribe/motortribe/internal/shared/events"
)

// EventHandler processes a single consumed event
type EventHandler func(ctx context.Context, event *events.Event) error

// EventConsumer consumes events from Kafka via a consumer group
type EventConsumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler EventHandler
	logger  logger.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// NewEventConsumer creates a new Kafka event consumer
func NewEventConsumer(cfg ConsumerConfig, handler EventHandler, log logger.Logger) (*EventConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Version = sarama.V3_3_1_0

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &EventConsumer{
		group:   group,
		topics:  cfg.Topics,
		handler: handler,
		logger:  log,
		done:    make(chan struct{}),
	}, nil
}

// Start begins consuming in a background goroutine
func (c *EventConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("consumer group error", "error", err)
		}
	}()

	go func() {
		defer close(c.done)
		for {
			if err := c.group.Consume(ctx, c.topics, c); err != nil {
				c.logger.Error("consume loop error", "error", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

// Close stops consuming and releases the consumer group
func (c *EventConsumer) Close() error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	return c.group.Close()
}

// Setup implements sarama.ConsumerGroupHandler
func (c *EventConsumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler
func (c *EventConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim implements sarama.ConsumerGroupHandler
func (c *EventConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event events.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			c.logger.Warn("skipping malformed event",
				"topic", message.Topic,
				"offset", message.Offset,
				"error", err,
			)
			session.MarkMessage(message, "")
			continue
		}

		if err := c.handler(session.Context(), &event); err != nil {
			c.logger.Error("event handler failed",
				"event_type", event.EventType,
				"aggregate_id", event.AggregateID,
				"error", err,
			)
			// Mark anyway: the periodic rebuild is the recovery path
		}

		session.MarkMessage(message, "")
	}
	return nil
}
