package app

import (
	"context"
	"fmt"
	"os"

	"stockguard/internal/config"
	"stockguard/internal/inventory"
	"stockguard/internal/platform/kafka"
	"stockguard/internal/platform/observability"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Container holds expensive-to-create singleton resources and dependencies
type Container struct {
	config             *config.Config
	logger             *zap.Logger
	tracer             observability.Tracer
	meter              metric.Meter
	messageConsumer    kafka.Consumer
	messageProducer    kafka.Producer
	inventoryClient    *inventory.Client
	otelLogShutdown    func(context.Context) error
	otelTraceShutdown  func(context.Context) error
	otelMetricShutdown func(context.Context) error
}

// NewContainer creates and initializes all infrastructure components
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	container := &Container{
		config: cfg,
	}

	if err := container.setupLogger(); err != nil {
		return nil, err
	}

	if err := container.setup(ctx, container.setupObservability, container.setupInventoryClient); err != nil {
		return nil, err
	}

	return container, nil
}

// setup runs the steps in order. When one fails, everything started by the
// earlier steps is shut down before the error is returned.
func (c *Container) setup(ctx context.Context, steps ...func(context.Context) error) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer cancel()
			c.Shutdown(shutdownCtx)
			return err
		}
	}
	return nil
}

func (c *Container) setupInventoryClient(context.Context) error {
	c.inventoryClient = inventory.NewClient(inventory.Config{
		URL:      c.config.InventoryURL,
		Database: c.config.InventoryDB,
		UID:      c.config.InventoryUID,
		Password: c.config.InventoryPassword,
	}, c.logger)
	return nil
}

// setupLogger builds the console logger used until the OTel bridge is ready
func (c *Container) setupLogger() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	c.logger = logger
	return nil
}

// setupObservability configures OpenTelemetry logging, tracing and metrics.
// Exporter failures are logged and the service keeps running without them.
func (c *Container) setupObservability(ctx context.Context) error {
	otelLogShutdown, err := observability.SetupLoggingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
	}
	c.otelLogShutdown = otelLogShutdown

	tp, otelTraceShutdown, err := observability.SetupTracingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	c.otelTraceShutdown = otelTraceShutdown

	otelMetricShutdown, err := observability.SetupMetricsSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry metrics", zap.Error(err))
	}
	c.otelMetricShutdown = otelMetricShutdown

	c.reinitializeLoggerWithOTel()

	c.tracer = otel.Tracer(config.ServiceName)
	c.meter = otel.Meter(config.ServiceName)

	var provider trace.TracerProvider = otel.GetTracerProvider()
	if tp != nil {
		provider = tp
	}
	return c.setupKafkaWithTracer(provider)
}

// reinitializeLoggerWithOTel tees console output into the OTel log pipeline
func (c *Container) reinitializeLoggerWithOTel() {
	otelZapCore := otelzap.NewCore(config.ServiceName+".manual",
		otelzap.WithLoggerProvider(global.GetLoggerProvider()),
	)

	consoleEncoderConfig := zap.NewProductionEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(consoleEncoderConfig),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)

	c.logger = zap.New(zapcore.NewTee(otelZapCore, consoleCore),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", config.ServiceName)),
	)
	c.logger.Info("Logger re-initialized with OpenTelemetry bridge")
}

// setupKafkaWithTracer creates the CheckoutRequested reader and StockChecked writer
func (c *Container) setupKafkaWithTracer(tp trace.TracerProvider) error {
	baseReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{c.config.KafkaBroker},
		Topic:   config.CheckoutRequestedTopic,
		GroupID: config.GroupID,
	})
	reader, err := otelkafka.NewReader(baseReader,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(config.CheckoutRequestedTopic),
				attribute.String("messaging.kafka.consumer.group", config.GroupID),
			},
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create Kafka reader: %w", err)
	}
	c.messageConsumer = reader

	baseWriter := &kafkago.Writer{
		Addr:         kafkago.TCP(c.config.KafkaBroker),
		Topic:        config.StockCheckedTopic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: config.BatchTimeout,
		BatchSize:    config.BatchSize,
	}
	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(config.StockCheckedTopic),
				attribute.String("messaging.kafka.client_id", config.ServiceName),
			},
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create Kafka writer: %w", err)
	}
	c.messageProducer = writer

	return nil
}

// Shutdown closes Kafka, flushes the OTel providers and syncs the logger
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down infrastructure...")

	if c.messageConsumer != nil {
		if err := c.messageConsumer.Close(); err != nil {
			c.logger.Error("Failed to close message consumer", zap.Error(err))
		}
	}
	if c.messageProducer != nil {
		if err := c.messageProducer.Close(); err != nil {
			c.logger.Error("Failed to close message producer", zap.Error(err))
		}
	}

	// Logging flushes last so the other shutdown errors still reach the collector.
	for _, p := range []struct {
		name     string
		shutdown func(context.Context) error
	}{
		{"metrics", c.otelMetricShutdown},
		{"tracing", c.otelTraceShutdown},
		{"logging", c.otelLogShutdown},
	} {
		if p.shutdown == nil {
			continue
		}
		if err := p.shutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel "+p.name, zap.Error(err))
		}
	}

	c.logger.Info("Infrastructure shutdown complete")

	// stdout sync fails on some terminals; nothing useful can be logged about it.
	_ = c.logger.Sync()
}

func (c *Container) Config() *config.Config             { return c.config }
func (c *Container) Logger() observability.Logger       { return c.logger }
func (c *Container) Tracer() observability.Tracer       { return c.tracer }
func (c *Container) Meter() metric.Meter                { return c.meter }
func (c *Container) MessageConsumer() kafka.Consumer    { return c.messageConsumer }
func (c *Container) MessageProducer() kafka.Producer    { return c.messageProducer }
func (c *Container) InventoryClient() *inventory.Client { return c.inventoryClient }
