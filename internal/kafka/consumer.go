package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Consumer struct {
	reader *kafka.Reader
	log    logrus.FieldLogger
}

func NewConsumer(brokers []string, groupID, topic string, log logrus.FieldLogger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		log: log,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads messages until ctx is done or handler fails.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
}

// BookingEvents adapts handler to raw messages. Undecodable messages are
// logged and skipped so a single bad payload cannot stall the group.
func (c *Consumer) BookingEvents(handler func(context.Context, BookingEvent) error) func(context.Context, kafka.Message) error {
	return DecodeBookingEvents(c.log, handler)
}

func DecodeBookingEvents(log logrus.FieldLogger, handler func(context.Context, BookingEvent) error) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		var event BookingEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.WithFields(logrus.Fields{"offset": msg.Offset, "error": err}).Warn("skipping undecodable event")
			return nil
		}
		return handler(ctx, event)
	}
}
