package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockguard/internal/config"
	"stockguard/internal/platform/observability"
	"stockguard/internal/stock"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrInvalidRequest is returned for requests that cannot be checked at all.
var ErrInvalidRequest = errors.New("invalid stock check request")

const (
	outcomeOK       = "ok"
	outcomeShort    = "short"
	outcomeDisabled = "disabled"
)

// Service runs stock checks for checkout requests arriving over any transport.
type Service struct {
	checker *stock.Checker
	cfg     *config.Config
	logger  observability.Logger
	checks  metric.Int64Counter
	now     func() time.Time
}

func NewService(checker *stock.Checker, cfg *config.Config, logger observability.Logger, meter metric.Meter) (*Service, error) {
	checks, err := meter.Int64Counter("stock.checks",
		metric.WithDescription("Order stock checks by channel and outcome"),
		metric.WithUnit("{check}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create stock.checks counter: %w", err)
	}
	return &Service{
		checker: checker,
		cfg:     cfg,
		logger:  logger,
		checks:  checks,
		now:     time.Now,
	}, nil
}

// Check runs one order-level check. The returned error is either
// ErrInvalidRequest or the context error of a cancelled check.
func (s *Service) Check(ctx context.Context, req CheckoutRequestedEvent) (*StockCheckedEvent, error) {
	if err := validateChannel(req.Channel); err != nil {
		return nil, err
	}
	if req.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrInvalidRequest)
	}

	settings := settingsFor(s.cfg, req.Channel, req.PickingTypeLocationID)
	result, err := s.checker.CheckOrder(ctx, req.order(), settings, stock.CheckOptions{ForceRemote: req.ForceRemote})
	if err != nil {
		return nil, fmt.Errorf("check order %s: %w", req.OrderID, err)
	}

	outcome := outcomeOK
	switch {
	case !settings.Enabled:
		outcome = outcomeDisabled
	case !result.OK():
		outcome = outcomeShort
	}
	s.checks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", string(req.Channel)),
		attribute.String("outcome", outcome),
	))

	s.logger.Info("🔍 Stock check completed",
		zap.String("order_id", req.OrderID),
		zap.String("channel", string(req.Channel)),
		zap.String("stage", string(req.Stage)),
		zap.String("outcome", outcome),
		zap.Int("shortages", len(result.Shortages)),
	)

	return &StockCheckedEvent{
		CheckID:   uuid.NewString(),
		OrderID:   req.OrderID,
		Channel:   req.Channel,
		Stage:     req.Stage,
		OK:        result.OK(),
		Skipped:   !settings.Enabled,
		Shortages: result.Shortages,
		Message:   result.Message(),
		CheckedAt: s.now().UTC(),
	}, nil
}

// Rejected builds the reply for a request that failed validation. The host
// must not proceed with the order.
func (s *Service) Rejected(req CheckoutRequestedEvent, err error) *StockCheckedEvent {
	return &StockCheckedEvent{
		CheckID:   uuid.NewString(),
		OrderID:   req.OrderID,
		Channel:   req.Channel,
		Stage:     req.Stage,
		Message:   err.Error(),
		Error:     err.Error(),
		CheckedAt: s.now().UTC(),
	}
}

// Guard evaluates a pending quantity edit against cached stock only.
func (s *Service) Guard(req GuardRequest) (GuardResponse, error) {
	if err := validateChannel(req.Channel); err != nil {
		return GuardResponse{}, err
	}
	settings := settingsFor(s.cfg, req.Channel, "")
	res := s.checker.GuardQuantityChange(settings, req.Line, req.Quantity)
	if res.Accepted {
		return GuardResponse{Accepted: true}, nil
	}
	return GuardResponse{
		Title:    stock.InsufficientStockTitle,
		Message:  res.Shortage.Message(),
		Shortage: res.Shortage,
	}, nil
}

// settingsFor builds the per-call check settings for a channel. A picking
// type location carried by the request overrides the configured default; an
// explicit STOCK_LOCATION_ID overrides both.
func settingsFor(cfg *config.Config, channel config.Channel, pickingType stock.LocationID) stock.Settings {
	if pickingType == "" {
		pickingType = stock.LocationID(cfg.PickingTypeLocationID)
	}
	return stock.Settings{
		Enabled:  cfg.Enabled(channel),
		Location: stock.ResolveLocation(stock.LocationID(cfg.StockLocationID), pickingType),
	}
}

func validateChannel(ch config.Channel) error {
	switch ch {
	case config.ChannelPOS, config.ChannelSales:
		return nil
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidRequest, ch)
	}
}
