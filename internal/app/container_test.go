package app

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type closeRecorder struct {
	closed int
}

func (c *closeRecorder) ReadMessage(context.Context) (*kafkago.Message, error) { return nil, nil }

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestContainerSetup_FailureShutsDownStartedProviders(t *testing.T) {
	var order []string
	recordShutdown := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	consumer := &closeRecorder{}
	c := &Container{logger: zap.NewNop()}
	kafkaDown := errors.New("failed to create Kafka writer: broker unreachable")

	err := c.setup(context.Background(),
		func(context.Context) error {
			c.otelLogShutdown = recordShutdown("logging")
			c.otelTraceShutdown = recordShutdown("tracing")
			c.otelMetricShutdown = recordShutdown("metrics")
			c.messageConsumer = consumer
			return kafkaDown
		},
		func(context.Context) error {
			t.Fatal("setup continued after a failed step")
			return nil
		},
	)

	require.ErrorIs(t, err, kafkaDown)
	assert.Equal(t, []string{"metrics", "tracing", "logging"}, order)
	assert.Equal(t, 1, consumer.closed)
}

func TestContainerSetup_RunsAllStepsOnSuccess(t *testing.T) {
	c := &Container{logger: zap.NewNop()}
	shutdownCalled := false
	c.otelLogShutdown = func(context.Context) error { shutdownCalled = true; return nil }
	steps := 0

	err := c.setup(context.Background(),
		func(context.Context) error { steps++; return nil },
		func(context.Context) error { steps++; return nil },
	)

	require.NoError(t, err)
	assert.Equal(t, 2, steps)
	assert.False(t, shutdownCalled)
}
