package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stockguard/internal/stock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type HTTPHandlerTestSuite struct {
	suite.Suite
	querier *fakeQuerier
	routes  http.Handler
}

func (s *HTTPHandlerTestSuite) SetupTest() {
	s.querier = &fakeQuerier{available: map[stock.ProductID]decimal.Decimal{
		"1": decimal.NewFromInt(3),
		"3": decimal.NewFromInt(50),
	}}
	svc, _ := newTestService(s.T(), s.querier)
	s.routes = NewHTTPHandler(svc, zap.NewNop(), []string{"https://pos.example.com"}).Routes()
}

func (s *HTTPHandlerTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.routes.ServeHTTP(rec, req)
	return rec
}

func (s *HTTPHandlerTestSuite) TestHealthz() {
	rec := s.do(http.MethodGet, "/healthz", "")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())
}

func (s *HTTPHandlerTestSuite) TestPreflightFromPOSOrigin() {
	req := httptest.NewRequest(http.MethodOptions, "/v1/stock/guard", nil)
	req.Header.Set("Origin", "https://pos.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.routes.ServeHTTP(rec, req)

	s.Equal("https://pos.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func (s *HTTPHandlerTestSuite) TestManualCheckSucceeds() {
	rec := s.do(http.MethodPost, "/v1/stock/check", `{
		"order_id": "POS/0003",
		"channel": "pos",
		"lines": [{"product": {"id": "3", "name": "Gadget", "kind": "consu"}, "quantity": "2.5"}]
	}`)

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp checkResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(Notification{
		Title:   stock.StockCheckTitle,
		Message: stock.SufficientStockMessage,
		Type:    NotificationSuccess,
	}, resp.Notification)
	s.True(resp.Result.OK)
	s.Equal(StageManual, resp.Result.Stage)
}

func (s *HTTPHandlerTestSuite) TestManualCheckWarnsOnShortage() {
	rec := s.do(http.MethodPost, "/v1/stock/check", `{
		"order_id": "POS/0001",
		"channel": "pos",
		"force_remote": true,
		"lines": [{"product": {"id": "1", "name": "Widget", "kind": "product", "available_qty": 100}, "quantity": 5}]
	}`)

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp checkResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(stock.InsufficientStockTitle, resp.Notification.Title)
	s.Equal(NotificationWarning, resp.Notification.Type)
	s.True(resp.Notification.Sticky)
	s.Equal(widgetShortageReport, resp.Notification.Message)
	s.Equal(1, s.querier.callCount())
}

func (s *HTTPHandlerTestSuite) TestGuardRejectsQuantityAboveCache() {
	rec := s.do(http.MethodPost, "/v1/stock/guard", `{
		"channel": "pos",
		"line": {"product": {"id": "1", "name": "Widget", "kind": "product", "available_qty": 10}, "quantity": 10},
		"quantity": 12
	}`)

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp GuardResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.False(resp.Accepted)
	s.Require().NotNil(resp.Shortage)
	s.True(decimal.NewFromInt(12).Equal(resp.Shortage.Requested))
	s.True(decimal.NewFromInt(10).Equal(resp.Shortage.Available))
	s.Contains(resp.Message, "Requested quantity: 12 Units")
	s.Zero(s.querier.callCount())
}

func (s *HTTPHandlerTestSuite) TestCancelledCheckIsServiceUnavailable() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/stock/check", strings.NewReader(`{
		"order_id": "POS/0004",
		"channel": "pos",
		"lines": [{"product": {"id": "1", "name": "Widget", "kind": "product"}, "quantity": 1}]
	}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.routes.ServeHTTP(rec, req)

	s.Equal(http.StatusServiceUnavailable, rec.Code)
	var resp errorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Contains(resp.Error, context.Canceled.Error())
}

func (s *HTTPHandlerTestSuite) TestBadRequests() {
	cases := map[string]struct {
		path string
		body string
	}{
		"malformed json":  {"/v1/stock/check", `{"order_id":`},
		"unknown channel": {"/v1/stock/check", `{"order_id":"X","channel":"web"}`},
		"missing order":   {"/v1/stock/check", `{"channel":"pos"}`},
		"guard channel":   {"/v1/stock/guard", `{"channel":"","quantity":1}`},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			rec := s.do(http.MethodPost, tc.path, tc.body)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Contains(rec.Body.String(), ErrInvalidRequest.Error())
		})
	}
}

func TestHTTPHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPHandlerTestSuite))
}
