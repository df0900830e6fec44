package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"stockguard/internal/platform/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

// HTTPHandler exposes the manual availability check and the quantity guard
// to hosts that call the service synchronously.
type HTTPHandler struct {
	service        *Service
	logger         observability.Logger
	allowedOrigins []string
}

// NewHTTPHandler creates the handler. allowedOrigins lists the browser
// origins (the POS frontend) allowed to call the API; empty disables CORS.
func NewHTTPHandler(service *Service, logger observability.Logger, allowedOrigins []string) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger, allowedOrigins: allowedOrigins}
}

type checkResponse struct {
	Notification Notification       `json:"notification"`
	Result       *StockCheckedEvent `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(h.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "traceparent", "tracestate"},
			MaxAge:         600,
		}))
	}
	r.Get("/healthz", h.healthz)
	r.Route("/v1/stock", func(r chi.Router) {
		r.Post("/check", h.check)
		r.Post("/guard", h.guard)
	})
	return otelhttp.NewHandler(r, "stockguard.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (h *HTTPHandler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) check(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequestedEvent
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Stage == "" {
		req.Stage = StageManual
	}

	event, err := h.service.Check(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{Notification: notificationFor(event), Result: event})
}

func (h *HTTPHandler) guard(w http.ResponseWriter, r *http.Request) {
	var req GuardRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.service.Guard(req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrInvalidRequest, err)
	}
	return nil
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if !errors.Is(err, ErrInvalidRequest) {
		// Cancelled checks end up here; the client has usually gone away.
		h.logger.Warn("Stock check request failed", zap.Error(err))
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
