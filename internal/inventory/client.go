package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"stockguard/internal/platform/observability"
	"stockguard/internal/stock"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	productModel     = "product.product"
	quantityField    = "qty_available"
	opAvailable      = "available_quantity"
	opOnHand         = "on_hand_quantity"
	jsonRPCVersion   = "2.0"
	contentTypeJSON  = "application/json"
	maxErrorBodySize = 4 << 10
)

// Config holds the JSON-RPC endpoint and credentials of the inventory service.
type Config struct {
	URL      string
	Database string
	UID      int64
	Password string
}

// Client queries product quantities over the host ERP's JSON-RPC API.
// It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger observability.Logger
	nextID atomic.Int64
}

var _ stock.InventoryQuerier = (*Client)(nil)

func NewClient(cfg Config, logger observability.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger: logger,
	}
}

// AvailableQuantity reads qty_available for the product, scoped to location
// when one is given.
func (c *Client) AvailableQuantity(ctx context.Context, productID stock.ProductID, location stock.LocationID) (decimal.NullDecimal, error) {
	kwargs := map[string]any{}
	if location != "" {
		kwargs["context"] = map[string]any{"location": locationArg(location)}
	}
	return c.readQuantity(ctx, opAvailable, productID, kwargs)
}

// OnHandQuantity reads the company-wide qty_available, ignoring locations.
func (c *Client) OnHandQuantity(ctx context.Context, productID stock.ProductID) (decimal.NullDecimal, error) {
	return c.readQuantity(ctx, opOnHand, productID, map[string]any{})
}

type quantityRecord struct {
	ID           int64               `json:"id"`
	QtyAvailable decimal.NullDecimal `json:"qty_available"`
}

func (c *Client) readQuantity(ctx context.Context, op string, productID stock.ProductID, kwargs map[string]any) (decimal.NullDecimal, error) {
	id, err := strconv.ParseInt(string(productID), 10, 64)
	if err != nil {
		return decimal.NullDecimal{}, &RemoteError{Op: op, Err: fmt.Errorf("invalid product id %q: %w", productID, err)}
	}

	args := []any{
		c.cfg.Database, c.cfg.UID, c.cfg.Password,
		productModel, "read",
		[]any{[]int64{id}, []string{quantityField}},
		kwargs,
	}
	var records []quantityRecord
	if err := c.call(ctx, op, args, &records); err != nil {
		return decimal.NullDecimal{}, err
	}
	if len(records) == 0 {
		c.logger.Debug("Inventory service returned no record", zap.String("op", op), zap.Int64("product_id", id))
		return decimal.NullDecimal{}, nil
	}
	return records[0].QtyAvailable, nil
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	ID      int64     `json:"id"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (c *Client) call(ctx context.Context, op string, args []any, result any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: jsonRPCVersion,
		Method:  "call",
		ID:      c.nextID.Add(1),
		Params:  rpcParams{Service: "object", Method: "execute_kw", Args: args},
	})
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body bytes.Buffer
		_, _ = body.ReadFrom(io.LimitReader(resp.Body, maxErrorBodySize))
		return &RemoteError{Op: op, Code: resp.StatusCode, Message: body.String()}
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != nil {
		msg := out.Error.Message
		if out.Error.Data.Message != "" {
			msg = out.Error.Data.Message
		}
		return &RemoteError{Op: op, Code: out.Error.Code, Message: msg}
	}
	if len(out.Result) == 0 || string(out.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(out.Result, result); err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// locationArg sends numeric ids as numbers; the service also resolves
// locations by name.
func locationArg(location stock.LocationID) any {
	if id, err := strconv.ParseInt(string(location), 10, 64); err == nil {
		return id
	}
	return string(location)
}
