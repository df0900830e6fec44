package stock

import "github.com/shopspring/decimal"

// Evaluate compares one line against the available quantity. It returns the
// shortage record and true when the line cannot be satisfied. Non-qualifying
// lines are always satisfied. A request equal to the available quantity is
// allowed.
func Evaluate(line OrderLine, available decimal.Decimal) (ShortageRecord, bool) {
	if !line.Qualifies() {
		return ShortageRecord{}, false
	}
	if !line.Quantity.GreaterThan(available) {
		return ShortageRecord{}, false
	}
	return ShortageRecord{
		ProductID:   line.Product.ID,
		ProductName: line.Product.Name,
		Requested:   line.Quantity,
		Available:   available,
		UoM:         line.uom(),
	}, true
}
