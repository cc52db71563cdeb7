package kafka

import (
	"context"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// MessageReader is the part of kafka.Reader the consumer uses
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader MessageReader
	logger *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(reader, logger)
}

func NewConsumerWithReader(reader MessageReader, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, logger: logger.Named("kafka")}
}

// Consume hands each message to handler until ctx is done or the reader is
// closed. Handler errors are logged and the message is not redelivered.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if errors.Is(err, io.EOF) {
					return err
				}
				c.logger.Warn("error reading message", zap.Error(err))
				continue
			}

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				c.logger.Error("error handling message",
					zap.ByteString("key", msg.Key),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
