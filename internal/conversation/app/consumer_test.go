package app

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestShardFor_DeterministicPerSender(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewConsumer(nil, nil, logger, 8, 16)

	event := InboundEvent{
		MessageLogID: uuid.New(),
		AgencyID:     uuid.New(),
		FromPhone:    "+15559992222",
	}

	first := c.shardFor(event)
	for i := 0; i < 50; i++ {
		event.MessageLogID = uuid.New() // the message id must not affect placement
		assert.Equal(t, first, c.shardFor(event))
	}
}

func TestShardFor_SpreadsSenders(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewConsumer(nil, nil, logger, 8, 16)

	seen := make(map[int]bool)
	agencyID := uuid.New()
	for i := 0; i < 200; i++ {
		shard := c.shardFor(InboundEvent{
			AgencyID:  agencyID,
			FromPhone: uuid.NewString(),
		})
		assert.GreaterOrEqual(t, shard, 0)
		assert.Less(t, shard, 8)
		seen[shard] = true
	}
	// With 200 random senders every shard should get traffic.
	assert.Len(t, seen, 8)
}

func TestNewConsumer_ClampsShardCount(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewConsumer(nil, nil, logger, 0, 16)
	assert.Len(t, c.shards, 1)
}
