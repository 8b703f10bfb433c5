package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/chatforge/chatforge/pkg/application"
	"github.com/chatforge/chatforge/pkg/configuration"
	"github.com/chatforge/chatforge/pkg/constants"
	"github.com/chatforge/chatforge/pkg/httpapi"
	"github.com/chatforge/chatforge/pkg/middleware"
	"github.com/chatforge/chatforge/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	app.RegisterMiddleware(
		middleware.WithLogger(options.Logger),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),
		middleware.Cors(conf.Origin),
		middleware.RequestParams(),
		middleware.RequireTenantFor("/api/"),
	)
	app.RegisterControllers(
		NewHealthController(),
		NewUploadsController(conf.UploadsPath),
	)

	serverInstance := server.NewHTTPServer(
		app,
		notFoundHandler(),
		methodNotAllowedHandler(),
	)
	return serverInstance, nil
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "no such endpoint", nil)
	})
}

func methodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed for this endpoint", nil)
	})
}

// HealthController answers liveness probes.
type HealthController struct {
}

func NewHealthController() *HealthController {
	return &HealthController{}
}

func (c *HealthController) Key() string {
	return "HealthController"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
}

// UploadsController serves stored attachments from the uploads directory.
type UploadsController struct {
	uploadsPath string
}

func NewUploadsController(uploadsPath string) *UploadsController {
	return &UploadsController{uploadsPath: uploadsPath}
}

func (c *UploadsController) Key() string {
	return "UploadsController"
}

func (c *UploadsController) Register(r *mux.Router) {
	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(c.uploadsPath)))
	r.PathPrefix("/uploads/").Handler(fs).Methods(http.MethodGet)
}
