package checkout

import (
	"time"

	"stockguard/internal/config"
	"stockguard/internal/stock"

	"github.com/shopspring/decimal"
)

// Stage names the point of the checkout flow that asked for a check.
type Stage string

const (
	StagePayment Stage = "payment"
	StageConfirm Stage = "confirm"
	StageManual  Stage = "manual"
)

// CheckoutRequestedEvent is published by the host when an order is about to
// be paid (POS) or confirmed (sales).
type CheckoutRequestedEvent struct {
	OrderID               string            `json:"order_id"`
	Channel               config.Channel    `json:"channel"`
	Stage                 Stage             `json:"stage"`
	ForceRemote           bool              `json:"force_remote,omitempty"`
	PickingTypeLocationID stock.LocationID  `json:"picking_type_location_id,omitempty"`
	Lines                 []stock.OrderLine `json:"lines"`
}

func (e CheckoutRequestedEvent) order() *stock.Order {
	return &stock.Order{ID: e.OrderID, Lines: e.Lines}
}

// StockCheckedEvent carries the outcome of one check pass back to the host.
type StockCheckedEvent struct {
	CheckID   string                 `json:"check_id"`
	OrderID   string                 `json:"order_id"`
	Channel   config.Channel         `json:"channel"`
	Stage     Stage                  `json:"stage"`
	OK        bool                   `json:"ok"`
	Skipped   bool                   `json:"skipped,omitempty"`
	Shortages []stock.ShortageRecord `json:"shortages,omitempty"`
	Message   string                 `json:"message"`
	// Error is set when the request could not be checked at all.
	Error     string                 `json:"error,omitempty"`
	CheckedAt time.Time              `json:"checked_at"`
}

// Notification is the payload the host shows after a manual availability check.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Sticky  bool   `json:"sticky"`
}

const (
	NotificationSuccess = "success"
	NotificationWarning = "warning"
)

func notificationFor(ev *StockCheckedEvent) Notification {
	if ev.OK {
		return Notification{Title: stock.StockCheckTitle, Message: ev.Message, Type: NotificationSuccess}
	}
	return Notification{Title: stock.InsufficientStockTitle, Message: ev.Message, Type: NotificationWarning, Sticky: true}
}

// GuardRequest asks whether a line may take a new quantity.
type GuardRequest struct {
	Channel  config.Channel  `json:"channel"`
	Line     stock.OrderLine `json:"line"`
	Quantity decimal.Decimal `json:"quantity"`
}

type GuardResponse struct {
	Accepted bool                  `json:"accepted"`
	Title    string                `json:"title,omitempty"`
	Message  string                `json:"message,omitempty"`
	Shortage *stock.ShortageRecord `json:"shortage,omitempty"`
}
