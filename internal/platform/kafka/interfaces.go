package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer publishes StockChecked results. The otel-kafka-konsumer writer
// satisfies it and injects the trace context into message headers.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Consumer reads CheckoutRequested messages. ReadMessage blocks until a
// message arrives or ctx is done.
type Consumer interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Close() error
}
