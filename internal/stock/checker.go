package stock

import (
	"context"

	"stockguard/internal/platform/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type CheckOptions struct {
	// ForceRemote ignores cached quantities and always queries the inventory service.
	ForceRemote bool
}

// Checker decides whether an order can be completed with the stock at hand.
type Checker struct {
	resolver       *Resolver
	logger         observability.Logger
	tracer         observability.Tracer
	maxConcurrency int
}

// NewChecker creates a checker. maxConcurrency limits the number of lines
// resolved at once; zero or less means no limit.
func NewChecker(resolver *Resolver, logger observability.Logger, tracer observability.Tracer, maxConcurrency int) *Checker {
	return &Checker{
		resolver:       resolver,
		logger:         logger,
		tracer:         tracer,
		maxConcurrency: maxConcurrency,
	}
}

// CheckOrder resolves the availability of every qualifying line concurrently
// and aggregates the shortages in line order. Inventory failures never surface
// as errors; they count as zero available. The only error returned is the
// context error when ctx is cancelled before all lines settle.
func (c *Checker) CheckOrder(ctx context.Context, order LineSource, settings Settings, opts CheckOptions) (CheckResult, error) {
	if !settings.Enabled {
		return CheckResult{}, nil
	}

	lines := order.OrderLines()

	ctx, span := c.tracer.Start(ctx, "stock.check_order",
		trace.WithAttributes(
			attribute.Int("order.line_count", len(lines)),
			attribute.String("stock.location_id", string(settings.Location)),
			attribute.Bool("stock.force_remote", opts.ForceRemote),
		))
	defer span.End()

	available := make([]decimal.Decimal, len(lines))
	var g errgroup.Group
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}
	for i, line := range lines {
		if !line.Qualifies() {
			continue
		}
		g.Go(func() error {
			available[i] = c.resolver.Resolve(ctx, line.Product, settings.Location, opts.ForceRemote).Quantity
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "check cancelled")
		c.logger.Info("Stock check cancelled before completion", zap.Error(err))
		return CheckResult{}, err
	}

	var result CheckResult
	for i, line := range lines {
		if record, short := Evaluate(line, available[i]); short {
			result.Shortages = append(result.Shortages, record)
		}
	}

	span.SetAttributes(
		attribute.Bool("stock.sufficient", result.OK()),
		attribute.Int("stock.shortage_count", len(result.Shortages)),
	)
	if result.OK() {
		span.SetStatus(codes.Ok, "stock sufficient")
	} else {
		for _, s := range result.Shortages {
			c.logger.Info("Insufficient stock",
				zap.String("product_id", string(s.ProductID)),
				zap.String("product_name", s.ProductName),
				zap.String("requested", s.Requested.String()),
				zap.String("available", s.Available.String()),
				zap.String("uom", s.UoM),
			)
		}
	}
	return result, nil
}
