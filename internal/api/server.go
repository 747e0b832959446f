// Package api exposes the operational HTTP interface for the store service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
	"github.com/blinovmaxim/TgBotStore/internal/ledger"
	"github.com/blinovmaxim/TgBotStore/internal/metrics"
)

// Server wires HTTP handlers to the catalog cache and price ledger.
type Server struct {
	router    chi.Router
	cache     *catalog.Cache
	tracker   *ledger.Tracker
	orderSink catalog.OrderSink
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes. orderSink may be
// nil when order forwarding is disabled.
func NewServer(cache *catalog.Cache, tracker *ledger.Tracker, orderSink catalog.OrderSink, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cache:     cache,
		tracker:   tracker,
		orderSink: orderSink,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog/stats", s.catalogStats)
		r.Post("/orders", s.submitOrder)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports ready once the catalog cache can serve a snapshot.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.cache.Get(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// catalogStatsResponse summarizes the current catalog and price history.
type catalogStatsResponse struct {
	Products        int             `json:"products"`
	InStock         int             `json:"in_stock"`
	PricesIncreased int             `json:"prices_increased"`
	PricesDecreased int             `json:"prices_decreased"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	AverageDiscount decimal.Decimal `json:"average_discount"`
}

func (s *Server) catalogStats(w http.ResponseWriter, r *http.Request) {
	products, err := s.cache.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	inStock := 0
	for _, p := range products {
		if p.InStock() {
			inStock++
		}
	}
	stats := s.tracker.Statistics(products)
	writeJSON(w, http.StatusOK, catalogStatsResponse{
		Products:        len(products),
		InStock:         inStock,
		PricesIncreased: stats.Increased,
		PricesDecreased: stats.Decreased,
		TotalDiscount:   stats.TotalDiscount,
		AverageDiscount: stats.AverageDiscount,
	})
}

type orderRequest struct {
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	ClientName   string          `json:"client_name"`
	Phone        string          `json:"phone"`
	PickupPoint  string          `json:"nova_poshta_office"`
}

func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	if s.orderSink == nil {
		writeError(w, http.StatusServiceUnavailable, "order forwarding disabled")
		return
	}
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ProductName == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "product_name and phone are required")
		return
	}
	order := catalog.Order{
		ProductName:  req.ProductName,
		ProductPrice: req.ProductPrice,
		ClientName:   req.ClientName,
		Phone:        req.Phone,
		PickupPoint:  req.PickupPoint,
	}
	if err := s.orderSink.Submit(r.Context(), order); err != nil {
		s.logger.Error("order submit failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "order submit failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

type requestIDKey struct{}

// requestIDFrom returns the request ID set by requestIDMiddleware, or an
// empty string when the middleware did not run.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
