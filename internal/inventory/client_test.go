package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedCall struct {
	Method string `json:"method"`
	Params struct {
		Service string            `json:"service"`
		Method  string            `json:"method"`
		Args    []json.RawMessage `json:"args"`
	} `json:"params"`
}

type callLog struct {
	mu    sync.Mutex
	calls []capturedCall
}

func (l *callLog) all() []capturedCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]capturedCall(nil), l.calls...)
}

func newTestServer(t *testing.T, handler func(call capturedCall) (int, string)) (*Client, *callLog) {
	t.Helper()
	calls := &callLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call capturedCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		calls.mu.Lock()
		calls.calls = append(calls.calls, call)
		calls.mu.Unlock()
		status, body := handler(call)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{URL: srv.URL, Database: "shop", UID: 2, Password: "secret"}, zap.NewNop())
	return c, calls
}

func TestClient_AvailableQuantitySendsLocationContext(t *testing.T) {
	c, calls := newTestServer(t, func(capturedCall) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":[{"id":7,"qty_available":12.5}]}`
	})

	qty, err := c.AvailableQuantity(context.Background(), "7", "8")

	require.NoError(t, err)
	require.True(t, qty.Valid)
	assert.True(t, decimal.RequireFromString("12.5").Equal(qty.Decimal))

	recorded := calls.all()
	require.Len(t, recorded, 1)
	call := recorded[0]
	assert.Equal(t, "call", call.Method)
	assert.Equal(t, "execute_kw", call.Params.Method)
	require.Len(t, call.Params.Args, 7)
	assert.JSONEq(t, `"shop"`, string(call.Params.Args[0]))
	assert.JSONEq(t, `"product.product"`, string(call.Params.Args[3]))
	assert.JSONEq(t, `"read"`, string(call.Params.Args[4]))
	assert.JSONEq(t, `[[7],["qty_available"]]`, string(call.Params.Args[5]))
	assert.JSONEq(t, `{"context":{"location":8}}`, string(call.Params.Args[6]))
}

func TestClient_OnHandQuantityIgnoresLocation(t *testing.T) {
	c, calls := newTestServer(t, func(capturedCall) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":[{"id":7,"qty_available":3}]}`
	})

	qty, err := c.OnHandQuantity(context.Background(), "7")

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(qty.Decimal))
	assert.JSONEq(t, `{}`, string(calls.all()[0].Params.Args[6]))
}

func TestClient_MissingRecordIsAbsent(t *testing.T) {
	c, _ := newTestServer(t, func(capturedCall) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":[]}`
	})

	qty, err := c.AvailableQuantity(context.Background(), "7", "")

	require.NoError(t, err)
	assert.False(t, qty.Valid)
}

func TestClient_RPCErrorIsRemoteError(t *testing.T) {
	c, _ := newTestServer(t, func(capturedCall) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":200,"message":"Odoo Server Error","data":{"name":"odoo.exceptions.AccessError","message":"access denied"}}}`
	})

	_, err := c.AvailableQuantity(context.Background(), "7", "8")

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, opAvailable, remote.Op)
	assert.Equal(t, 200, remote.Code)
	assert.Equal(t, "access denied", remote.Message)
}

func TestClient_HTTPFailureIsRemoteError(t *testing.T) {
	c, _ := newTestServer(t, func(capturedCall) (int, string) {
		return http.StatusBadGateway, "upstream down"
	})

	_, err := c.OnHandQuantity(context.Background(), "7")

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusBadGateway, remote.Code)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestClient_UnreachableServiceIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewClient(Config{URL: url}, zap.NewNop())

	_, err := c.AvailableQuantity(context.Background(), "7", "8")

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.NotNil(t, errors.Unwrap(err))
}

func TestClient_RejectsNonNumericProductID(t *testing.T) {
	c, calls := newTestServer(t, func(capturedCall) (int, string) {
		return http.StatusOK, `{"result":[]}`
	})

	_, err := c.AvailableQuantity(context.Background(), "widget", "8")

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Empty(t, calls.all())
}
