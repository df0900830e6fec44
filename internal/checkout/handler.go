package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stockguard/internal/platform/kafka"
	"stockguard/internal/platform/observability"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// MessageHandler processes CheckoutRequested messages.
type MessageHandler interface {
	HandleCheckoutRequested(ctx context.Context, msg kafkago.Message) error
}

// KafkaMessageHandler checks the order carried by each message and publishes
// a StockChecked event with the outcome.
type KafkaMessageHandler struct {
	service  *Service
	producer kafka.Producer
	logger   observability.Logger
}

func NewMessageHandler(service *Service, producer kafka.Producer, logger observability.Logger) MessageHandler {
	return &KafkaMessageHandler{
		service:  service,
		producer: producer,
		logger:   logger,
	}
}

func (h *KafkaMessageHandler) HandleCheckoutRequested(ctx context.Context, msg kafkago.Message) error {
	msgCtx := extractTraceContext(ctx, msg.Headers)

	h.logger.Debug("📨 Raw Kafka message received",
		zap.ByteString("key", msg.Key),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	var req CheckoutRequestedEvent
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		h.logger.Error("❌ Invalid JSON in CheckoutRequested event",
			zap.Error(err),
			zap.ByteString("raw_value", msg.Value),
		)
		err = fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		return h.reject(msgCtx, recoverOrderID(msg), err)
	}

	event, err := h.service.Check(msgCtx, req)
	if err != nil {
		h.logger.Error("❌ Failed to check order", zap.Error(err), zap.String("order_id", req.OrderID))
		if errors.Is(err, ErrInvalidRequest) {
			return h.reject(msgCtx, req, err)
		}
		return err
	}

	return h.publishStockChecked(msgCtx, event)
}

// reject answers an unusable request with ok=false so the host waiting on the
// reply topic is not left hanging. Requests without an order id get no reply.
func (h *KafkaMessageHandler) reject(ctx context.Context, req CheckoutRequestedEvent, err error) error {
	if req.OrderID == "" {
		return err
	}
	return errors.Join(err, h.publishStockChecked(ctx, h.service.Rejected(req, err)))
}

// recoverOrderID salvages the order id from a payload that failed to decode,
// first from the order_id field alone, then from the message key.
func recoverOrderID(msg kafkago.Message) CheckoutRequestedEvent {
	var partial struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(msg.Value, &partial); err == nil && partial.OrderID != "" {
		return CheckoutRequestedEvent{OrderID: partial.OrderID}
	}
	return CheckoutRequestedEvent{OrderID: string(msg.Key)}
}

func extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[string(header.Key)] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func (h *KafkaMessageHandler) publishStockChecked(ctx context.Context, event *StockCheckedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal StockChecked event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
	}
	if err := h.producer.WriteMessage(ctx, msg); err != nil {
		h.logger.Error("❌ Failed to publish StockChecked event",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
		)
		return fmt.Errorf("publish StockChecked event: %w", err)
	}

	h.logger.Info("📤 Sent StockChecked event",
		zap.String("order_id", event.OrderID),
		zap.String("check_id", event.CheckID),
		zap.Bool("ok", event.OK),
	)
	return nil
}
