package app

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/covertext/smsflow/internal/platform/messagebroker"
)

// SubjectInboundReceived carries events for inbound messages that the webhook
// boundary has persisted and de-duplicated.
const SubjectInboundReceived = "sms.inbound.received"

// QueueGroupConversation spreads the subscription across service instances.
const QueueGroupConversation = "conversation_workers"

// InboundEvent is the payload published per accepted inbound message.
type InboundEvent struct {
	MessageLogID uuid.UUID `json:"message_log_id"`
	AgencyID     uuid.UUID `json:"agency_id"`
	FromPhone    string    `json:"from_phone"`
}

// InboundProcessor is the conversation entry point the consumer drives.
type InboundProcessor interface {
	ProcessInbound(ctx context.Context, messageLogID uuid.UUID) error
}

// Consumer subscribes to inbound events and fans them out to a fixed set of
// ordered shards. Events for one (agency, phone) always land on the same
// shard and are processed serially there, so state transitions from one
// sender never interleave; different senders proceed concurrently.
type Consumer struct {
	broker    *messagebroker.NATSClient
	processor InboundProcessor
	logger    *slog.Logger
	shards    []chan InboundEvent
}

func NewConsumer(broker *messagebroker.NATSClient, processor InboundProcessor, logger *slog.Logger, shardCount, shardBuffer int) *Consumer {
	if shardCount < 1 {
		shardCount = 1
	}
	shards := make([]chan InboundEvent, shardCount)
	for i := range shards {
		shards[i] = make(chan InboundEvent, shardBuffer)
	}
	return &Consumer{
		broker:    broker,
		processor: processor,
		logger:    logger.With("component", "inbound_consumer"),
		shards:    shards,
	}
}

// Run subscribes and processes events until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := range c.shards {
		shard := c.shards[i]
		shardIdx := i
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case event := <-shard:
					if err := c.processor.ProcessInbound(ctx, event.MessageLogID); err != nil {
						// No retry: requeueing would reorder the sender's
						// stream.
						c.logger.ErrorContext(ctx, "Failed to process inbound message",
							"error", err,
							"shard", shardIdx,
							"message_log_id", event.MessageLogID,
						)
					}
				}
			}
		})
	}

	sub, err := c.broker.QueueSubscribe(SubjectInboundReceived, QueueGroupConversation, func(msg *nats.Msg) {
		var event InboundEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.Error("Failed to unmarshal inbound event", "error", err, "data", string(msg.Data))
			return
		}
		shard := c.shardFor(event)
		select {
		case c.shards[shard] <- event:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectInboundReceived, err)
	}

	g.Go(func() error {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn("Failed to unsubscribe", "error", err)
		}
		return ctx.Err()
	})

	c.logger.Info("Inbound consumer started", "subject", SubjectInboundReceived, "shards", len(c.shards))
	return g.Wait()
}

// shardFor maps a sender to its ordered shard.
func (c *Consumer) shardFor(event InboundEvent) int {
	h := fnv.New32a()
	h.Write([]byte(event.AgencyID.String()))
	h.Write([]byte{'|'})
	h.Write([]byte(event.FromPhone))
	return int(h.Sum32() % uint32(len(c.shards)))
}
