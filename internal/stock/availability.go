package stock

import (
	"context"
	"time"

	"stockguard/internal/platform/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultLookupTimeout bounds a single call to the inventory service.
const DefaultLookupTimeout = 5 * time.Second

// InventoryQuerier is the remote inventory service. An invalid NullDecimal
// means the service returned no quantity for the product.
type InventoryQuerier interface {
	AvailableQuantity(ctx context.Context, productID ProductID, location LocationID) (decimal.NullDecimal, error)
	OnHandQuantity(ctx context.Context, productID ProductID) (decimal.NullDecimal, error)
}

// Source records where a resolved quantity came from.
type Source string

const (
	SourceCache       Source = "cache"
	SourceRemote      Source = "remote"
	SourceFallback    Source = "fallback"
	SourceUnavailable Source = "unavailable"
	// SourceCancelled marks a lookup abandoned because the caller went away.
	SourceCancelled Source = "cancelled"
)

type Resolution struct {
	Quantity decimal.Decimal
	Source   Source
}

// Resolver produces a best-effort available quantity for a product. It never
// returns an error: when both the location query and the on-hand fallback
// fail, the quantity is zero and the source is SourceUnavailable.
type Resolver struct {
	querier     InventoryQuerier
	timeout     time.Duration
	logger      observability.Logger
	tracer      observability.Tracer
	resolutions metric.Int64Counter
}

func NewResolver(querier InventoryQuerier, timeout time.Duration, logger observability.Logger, tracer observability.Tracer, meter metric.Meter) (*Resolver, error) {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	resolutions, err := meter.Int64Counter("stock.resolutions",
		metric.WithDescription("Availability resolutions by source"),
		metric.WithUnit("{resolution}"))
	if err != nil {
		return nil, err
	}
	return &Resolver{
		querier:     querier,
		timeout:     timeout,
		logger:      logger,
		tracer:      tracer,
		resolutions: resolutions,
	}, nil
}

// Resolve returns the cached quantity when allowed, otherwise queries the
// inventory service for the location and falls back to the on-hand quantity.
func (r *Resolver) Resolve(ctx context.Context, product Product, location LocationID, forceRemote bool) Resolution {
	if !forceRemote && product.Available.Valid {
		return r.done(ctx, Resolution{Quantity: product.Available.Decimal, Source: SourceCache})
	}

	ctx, span := r.tracer.Start(ctx, "stock.resolve_availability",
		trace.WithAttributes(
			attribute.String("product.id", string(product.ID)),
			attribute.String("stock.location_id", string(location)),
		))
	defer span.End()

	qty, err := r.call(ctx, func(ctx context.Context) (decimal.NullDecimal, error) {
		return r.querier.AvailableQuantity(ctx, product.ID, location)
	})
	if err == nil {
		span.SetAttributes(attribute.String("stock.source", string(SourceRemote)))
		return r.done(ctx, Resolution{Quantity: qty, Source: SourceRemote})
	}

	if ctx.Err() != nil {
		return r.cancelled(ctx, span, product)
	}
	span.RecordError(err)
	r.logger.Warn("Inventory query failed, trying on-hand fallback",
		zap.Error(err),
		zap.String("product_id", string(product.ID)),
		zap.String("location_id", string(location)),
	)

	qty, err = r.call(ctx, func(ctx context.Context) (decimal.NullDecimal, error) {
		return r.querier.OnHandQuantity(ctx, product.ID)
	})
	if err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx, span, product)
		}
		return r.unavailable(ctx, span, product, err)
	}
	span.SetAttributes(attribute.String("stock.source", string(SourceFallback)))
	return r.done(ctx, Resolution{Quantity: qty, Source: SourceFallback})
}

func (r *Resolver) call(ctx context.Context, fn func(context.Context) (decimal.NullDecimal, error)) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	qty, err := fn(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if !qty.Valid {
		return decimal.Zero, nil
	}
	return qty.Decimal, nil
}

func (r *Resolver) unavailable(ctx context.Context, span trace.Span, product Product, err error) Resolution {
	span.RecordError(err)
	span.SetStatus(codes.Error, "inventory service unreachable")
	span.SetAttributes(attribute.String("stock.source", string(SourceUnavailable)))
	r.logger.Error("Inventory service unreachable, treating product as out of stock",
		zap.Error(err),
		zap.String("product_id", string(product.ID)),
		zap.String("product_name", product.Name),
	)
	return r.done(ctx, Resolution{Quantity: decimal.Zero, Source: SourceUnavailable})
}

func (r *Resolver) cancelled(ctx context.Context, span trace.Span, product Product) Resolution {
	span.SetAttributes(attribute.String("stock.source", string(SourceCancelled)))
	r.logger.Debug("Availability lookup cancelled",
		zap.Error(ctx.Err()),
		zap.String("product_id", string(product.ID)),
	)
	return r.done(ctx, Resolution{Quantity: decimal.Zero, Source: SourceCancelled})
}

func (r *Resolver) done(ctx context.Context, res Resolution) Resolution {
	r.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(res.Source))))
	return res
}
