package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/Domenick1991/tourbooking/internal/auth"
	"github.com/Domenick1991/tourbooking/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

const openAPIFile = "openapi.json"

type RouterConfig struct {
	AllowedOrigins []string
	SwaggerDir     string
	Metrics        *metrics.Metrics
	Log            logrus.FieldLogger
}

type Handlers struct {
	Departures *DepartureHandler
	Bookings   *BookingHandler
	Admin      *AdminHandler
}

// NewRouter wires the public routes, the admin routes behind the session
// gate and the operational endpoints.
func NewRouter(cfg RouterConfig, authenticator *auth.Authenticator, h Handlers) *gin.Engine {
	engine := gin.New()
	engine.Use(RequestID(), RequestLogger(cfg.Log), gin.Recovery(), CORS(cfg.AllowedOrigins))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	if cfg.SwaggerDir != "" {
		docPath := filepath.Join(cfg.SwaggerDir, openAPIFile)
		if _, err := os.Stat(docPath); err == nil {
			engine.StaticFile("/docs/"+openAPIFile, docPath)
			engine.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/docs/"+openAPIFile))))
		} else {
			cfg.Log.WithError(err).Warn("openapi document not found, swagger ui disabled")
		}
	}

	public := engine.Group("/")
	h.Departures.Register(public)
	h.Bookings.Register(public)
	h.Admin.Register(public)

	admin := engine.Group("/", auth.RequireAdmin(authenticator))
	h.Bookings.RegisterAdmin(admin)
	h.Admin.RegisterAdmin(admin)

	return engine
}
