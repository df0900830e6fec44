package stock

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultUoM is used when neither the line nor the product names a unit of measure.
const DefaultUoM = "Units"

type ProductID string

// LocationID identifies the stock location a check pass queries. Empty means no location.
type LocationID string

// Kind classifies a product for stock purposes.
type Kind string

const (
	KindTrackable  Kind = "trackable"
	KindConsumable Kind = "consumable"
	KindService    Kind = "service"
	KindOther      Kind = "other"
)

// ParseKind maps both the canonical names and the host's native product
// type names onto a Kind. Unknown values become KindOther.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trackable", "product", "storable":
		return KindTrackable
	case "consumable", "consu":
		return KindConsumable
	case "service":
		return KindService
	default:
		return KindOther
	}
}

func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// Stockable reports whether lines of this kind take part in stock checks.
func (k Kind) Stockable() bool {
	return k == KindTrackable || k == KindConsumable
}

type Product struct {
	ID   ProductID `json:"id"`
	Name string    `json:"name"`
	Kind Kind      `json:"kind"`
	UoM  string    `json:"uom,omitempty"`
	// Available is the host's cached quantity; it may be stale or absent.
	Available decimal.NullDecimal `json:"available_qty"`
}

type OrderLine struct {
	Product  Product         `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
	UoM      string          `json:"uom,omitempty"`
}

// Qualifies reports whether the line participates in a stock check.
func (l OrderLine) Qualifies() bool {
	return l.Product.Kind.Stockable() && l.Quantity.IsPositive()
}

func (l OrderLine) uom() string {
	if l.UoM != "" {
		return l.UoM
	}
	if l.Product.UoM != "" {
		return l.Product.UoM
	}
	return DefaultUoM
}

// LineSource is the read-only view of an order the checker needs.
type LineSource interface {
	OrderLines() []OrderLine
}

type Order struct {
	ID    string      `json:"id"`
	Lines []OrderLine `json:"lines"`
}

func (o *Order) OrderLines() []OrderLine {
	return o.Lines
}

// ShortageRecord describes one line whose requested quantity exceeds what is available.
type ShortageRecord struct {
	ProductID   ProductID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Requested   decimal.Decimal `json:"requested_qty"`
	Available   decimal.Decimal `json:"available_qty"`
	UoM         string          `json:"uom"`
}

// CheckResult is Success when Shortages is empty and Failure otherwise.
type CheckResult struct {
	Shortages []ShortageRecord `json:"shortages,omitempty"`
}

func (r CheckResult) OK() bool {
	return len(r.Shortages) == 0
}

// Message renders the human-readable report for the result.
func (r CheckResult) Message() string {
	if r.OK() {
		return SufficientStockMessage
	}
	return renderShortageReport(r.Shortages)
}

// Settings is the per-call configuration of a check.
type Settings struct {
	Enabled  bool
	Location LocationID
}

// ResolveLocation returns the first non-empty candidate: the explicitly
// configured stock location, then the picking-type source location.
func ResolveLocation(explicit, pickingType LocationID) LocationID {
	if explicit != "" {
		return explicit
	}
	return pickingType
}
