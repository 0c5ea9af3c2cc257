// Package rest exposes the upload session operations over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/uploadbroker/internal/common"
	"github.com/dmitrijs2005/uploadbroker/internal/logging"
	"github.com/dmitrijs2005/uploadbroker/internal/server/config"
	"github.com/dmitrijs2005/uploadbroker/internal/server/metrics"
	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
	"github.com/dmitrijs2005/uploadbroker/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/uploadbroker/internal/server/services"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

var errMalformedAuthorization = common.Unauthorized(nil, "authorization header must be a bearer token")

// Sessions is the part of services.SessionService the HTTP layer uses.
type Sessions interface {
	InitiateSimple(ctx context.Context, req services.InitiateRequest) (*models.UploadSession, error)
	InitiateMultipart(ctx context.Context, req services.InitiateRequest) (*models.UploadSession, error)
	Confirm(ctx context.Context, id string, withDownloadURL bool) (*models.UploadSession, error)
	CompleteMultipart(ctx context.Context, id string, parts []models.CompletedPart) (*models.UploadSession, error)
	AbortMultipart(ctx context.Context, id string) (*models.UploadSession, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.UploadSession, error)
	List(ctx context.Context, f sessions.Filter) ([]*models.UploadSession, error)
	DownloadURL(ctx context.Context, id string) (string, time.Time, error)
	StorageConfigured() bool
}

type Server struct {
	address        string
	config         *config.Config
	sessions       Sessions
	logger         logging.Logger
	metrics        metrics.Recorder
	metricsHandler http.Handler
	validate       *validator.Validate
	router         chi.Router
}

// NewServer builds the router. metricsHandler may be nil, in which case
// /metrics is not served.
func NewServer(c *config.Config, svc Sessions, l logging.Logger, m metrics.Recorder, metricsHandler http.Handler) *Server {
	if m == nil {
		m = metrics.Nop{}
	}
	s := &Server{
		address:        c.EndpointAddrHTTP,
		config:         c,
		sessions:       svc,
		logger:         l.With("module", "rest_server"),
		metrics:        m,
		metricsHandler: metricsHandler,
		validate:       newValidator(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(s.corsHandler())
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.resolveOwner)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, common.NotFound("route %s not found", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, Envelope{Error: &ErrorBody{
			Code:    "METHOD_NOT_ALLOWED",
			Status:  http.StatusMethodNotAllowed,
			Message: "method " + r.Method + " not allowed",
		}})
	})

	r.Get("/health", s.handleHealth)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	r.Post("/api/uploads", s.handleInitiateSimple)
	r.Get("/api/uploads", s.handleList)
	r.Post("/api/uploads/multipart", s.handleInitiateMultipart)
	r.Get("/api/uploads/{id}", s.handleGet)
	r.Delete("/api/uploads/{id}", s.handleDelete)
	r.Post("/api/uploads/{id}/confirm", s.handleConfirm)
	r.Get("/api/uploads/{id}/download-url", s.handleDownloadURL)
	r.Post("/api/uploads/{id}/multipart/complete", s.handleCompleteMultipart)
	r.Post("/api/uploads/{id}/multipart/abort", s.handleAbortMultipart)

	return r
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if common.HTTPStatus(err) >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
	}
	respondError(w, r, err, s.config.IsDevelopment())
}
