package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/infra/inbox"
	infraoutbox "staybook/internal/infra/outbox"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler, logger: c.logger}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handler.Handle(sess.Context(), message); err != nil {
			// left unmarked; redelivered after the next rebalance
			h.logger.WarnContext(sess.Context(), "event handling failed",
				"topic", message.Topic, "partition", message.Partition, "offset", message.Offset, "error", err)
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

// EventHandler unwraps relayed envelopes and hands them to in-process
// subscribers, skipping events the inbox has already seen.
type EventHandler struct {
	Dispatcher *appoutbox.Dispatcher
	Inbox      inbox.Store
	Logger     *slog.Logger
}

func (h *EventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec, err := infraoutbox.Unwrap(msg.Value, headerMap(msg.Headers))
	if err != nil {
		logger.WarnContext(ctx, "dropping malformed event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if !h.Dispatcher.Handles(rec.Name) {
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, rec.ID)
		if err != nil {
			return err
		}
		if seen {
			logger.DebugContext(ctx, "duplicate event skipped", "event", rec.Name, "event_id", rec.ID)
			return nil
		}
	}
	if err := h.Dispatcher.Dispatch(ctx, rec); err != nil {
		if h.Inbox != nil {
			if forgetErr := h.Inbox.Forget(ctx, rec.ID); forgetErr != nil {
				return errors.Join(err, forgetErr)
			}
		}
		return err
	}
	return nil
}

var _ MessageHandler = (*EventHandler)(nil)
