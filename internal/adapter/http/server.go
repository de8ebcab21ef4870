package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/ports"
	"github.com/certigo/certigo/internal/usecase"
)

// Server hosts the HTTP surface of the service.
type Server struct {
	addr   string
	server *http.Server
	log    *logrus.Logger
}

// ServerConfig carries the listener settings.
type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
}

// NewServer wires handlers, middleware and routes.
func NewServer(
	cfg ServerConfig,
	lifecycle *usecase.Lifecycle,
	auth *usecase.Auth,
	jurisdictions ports.JurisdictionRepository,
	gateway ports.PaymentGateway,
	authMw *AuthMiddleware,
	citizenMw *CitizenMiddleware,
	log *logrus.Logger,
) *Server {
	if log == nil {
		log = logrus.New()
	}

	router := mux.NewRouter()

	NewPublicHandler(lifecycle, citizenMw, log).RegisterRoutes(router)
	NewWebhookHandler(lifecycle, gateway, log).RegisterRoutes(router)
	NewAuthHandler(auth).RegisterRoutes(router)
	NewInternalHandler(lifecycle, auth, authMw, cfg.MaxUploadBytes).RegisterRoutes(router)

	router.HandleFunc("/api/v1/jurisdicciones", func(w http.ResponseWriter, r *http.Request) {
		list, err := jurisdictions.List(r.Context())
		if err != nil {
			InternalServerError(w, "failed to list jurisdictions")
			return
		}
		Success(w, http.StatusOK, "jurisdictions", list)
	}).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware)
	router.Use(recoveryMiddleware(log))

	addr := cfg.Host + ":" + cfg.Port
	return &Server{
		addr: addr,
		log:  log,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.addr).Info("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
