package stock

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrQuantityRejected is returned when a quantity edit exceeds the cached stock.
var ErrQuantityRejected = errors.New("quantity exceeds available stock")

type GuardResult struct {
	Accepted bool
	// Shortage is set when the edit was rejected.
	Shortage *ShortageRecord
}

// QuantityGuard decides whether a line may take a new quantity.
type QuantityGuard func(line OrderLine, qty decimal.Decimal) GuardResult

// GuardQuantityChange checks a pending quantity edit against the product's
// cached available quantity only. It never calls the inventory service; the
// authoritative check runs in CheckOrder. An absent cache counts as zero.
func GuardQuantityChange(settings Settings, line OrderLine, qty decimal.Decimal) GuardResult {
	if !settings.Enabled {
		return GuardResult{Accepted: true}
	}
	line.Quantity = qty
	cached := decimal.Zero
	if line.Product.Available.Valid {
		cached = line.Product.Available.Decimal
	}
	record, short := Evaluate(line, cached)
	if !short {
		return GuardResult{Accepted: true}
	}
	return GuardResult{Shortage: &record}
}

// GuardQuantityChange is the logging variant of the package-level guard.
func (c *Checker) GuardQuantityChange(settings Settings, line OrderLine, qty decimal.Decimal) GuardResult {
	res := GuardQuantityChange(settings, line, qty)
	if !res.Accepted {
		c.logger.Info("Quantity change rejected by cached stock",
			zap.String("product_id", string(line.Product.ID)),
			zap.String("requested", qty.String()),
			zap.String("cached_available", res.Shortage.Available.String()),
		)
	}
	return res
}

// Guard binds settings to the checker's guard for use with Order.SetQuantity.
func (c *Checker) Guard(settings Settings) QuantityGuard {
	return func(line OrderLine, qty decimal.Decimal) GuardResult {
		return c.GuardQuantityChange(settings, line, qty)
	}
}

// SetQuantity applies qty to the line at index when guard accepts it. On
// rejection the line is left unchanged and the returned error wraps
// ErrQuantityRejected.
func (o *Order) SetQuantity(index int, qty decimal.Decimal, guard QuantityGuard) (GuardResult, error) {
	if index < 0 || index >= len(o.Lines) {
		return GuardResult{}, fmt.Errorf("order line %d out of range", index)
	}
	res := guard(o.Lines[index], qty)
	if !res.Accepted {
		return res, fmt.Errorf("%s: %w", o.Lines[index].Product.Name, ErrQuantityRejected)
	}
	o.Lines[index].Quantity = qty
	return res, nil
}
