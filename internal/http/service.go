package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/config"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/http/apierr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/http/metric"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/http/middleware"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/http/swagger"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/service"
)

var tracer = otel.Tracer("internal/http")

const (
	apiPrefix    = "/api/v1"
	maxBodyBytes = 1 << 20
)

// Service represents the HTTP service.
type Service struct {
	cfg      config.HTTP
	logger   *slog.Logger
	metrics  *metric.Metrics
	gatherer prometheus.Gatherer

	inventorySvc service.InventoryService
}

type CleanupFunc func(ctx context.Context) error

// New builds the HTTP service. Metrics are registered with reg and served from gatherer.
func New(
	cfg config.HTTP,
	log *slog.Logger,
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
	inventorySvc service.InventoryService,
) *Service {
	return &Service{
		cfg:          cfg,
		logger:       log.With(slog.String("service", "http")),
		metrics:      metric.New(reg),
		gatherer:     gatherer,
		inventorySvc: inventorySvc,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	return s.RunWithServer(ctx, s.Router())
}

// Router returns the complete handler tree.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	s.RegisterHandlers(r)

	return r
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "http server stopped unexpectedly", slog.Any("error", err))
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.AllowedOrigins),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	h := s.newHandler()

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(middleware.StoreID())

		r.Get("/products", s.handle(h.ListProducts))
		r.Post("/products", s.handle(h.CreateProduct))
		r.Get("/products/{id}", s.handle(h.GetProduct))
		r.Put("/products/{id}", s.handle(h.UpdateProduct))
		r.Delete("/products/{id}", s.handle(h.DeleteProduct))

		r.Post("/stock/check", s.handle(h.CheckStock))
		r.Post("/stock/decrement", s.handle(h.DecrementStock))
		r.Post("/stock/batch-decrement", s.handle(h.BatchDecrementStock))
		r.Post("/stock/restore", s.handle(h.RestoreStock))

		r.Get("/license/usage", s.handle(h.GetLicenseUsage))
	})

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

// handlerFunc writes its own success response and returns any failure for handle to render.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Service) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := fn(w, r); err != nil {
			s.handleResponseError(w, r, err)
		}
	}
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}

type handler struct {
	*productHandler
	*stockHandler
	*licenseHandler
}

func (s *Service) newHandler() *handler {
	return &handler{
		productHandler: newProductHandler(s.inventorySvc),
		stockHandler:   newStockHandler(s.inventorySvc),
		licenseHandler: newLicenseHandler(s.inventorySvc),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	w.Write(body)
	return nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &apierr.RequestError{Err: err}
	}
	return nil
}
