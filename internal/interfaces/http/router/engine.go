package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qbdsync/backend/internal/infrastructure/logger"
	"github.com/qbdsync/backend/internal/interfaces/http/dto"
	"github.com/qbdsync/backend/internal/interfaces/http/handler"
	"github.com/qbdsync/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Paths of the Web Connector endpoints
const (
	QBWCPath = "/qbwc"
	QWCPath  = "/qbwc/realms/:id/qwc"
)

// Handlers are the endpoints mounted on the engine
type Handlers struct {
	QBWC   *handler.QBWCHandler
	QWC    *handler.QWCHandler
	Tasks  *handler.TaskHandler
	System *handler.SystemHandler
}

// Options configure the middleware chain
type Options struct {
	Logger         *zap.Logger
	Tracing        middleware.TracingConfig
	Meter          metric.Meter // nil disables HTTP metrics
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	MaxBodySize    int64
	TrustedProxies []string
	// SOAPLimiter throttles the Web Connector endpoint; nil disables it
	SOAPLimiter *middleware.RateLimiter
	// Auth guards the task API and descriptor downloads
	Auth gin.HandlerFunc
}

// NewEngine builds the gin engine serving the Web Connector endpoint, the
// descriptor download and the versioned task API.
func NewEngine(h Handlers, opts Options) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	engine.Use(
		logger.GinMiddleware(opts.Logger),
		logger.Recovery(opts.Logger),
		middleware.SecureWithConfig(opts.Security),
		middleware.CORSWithConfig(opts.CORS),
	)
	if opts.Tracing.Enabled {
		engine.Use(middleware.Tracing(opts.Tracing), middleware.SpanAttributes())
	}
	if opts.Meter != nil {
		metrics, err := middleware.HTTPMetrics(opts.Meter)
		if err != nil {
			return nil, fmt.Errorf("http metrics: %w", err)
		}
		engine.Use(metrics)
	}
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", c.GetString("request_id")))
	})

	auth := opts.Auth
	if auth == nil {
		auth = func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", c.GetString("request_id")))
		}
	}

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	soap := []gin.HandlerFunc{}
	if opts.SOAPLimiter != nil {
		soap = append(soap, middleware.RateLimit(opts.SOAPLimiter))
	}
	engine.POST(QBWCPath, append(soap, h.QBWC.Serve)...)
	engine.GET(QWCPath, auth, h.QWC.Download)

	r := NewRouter(engine, WithAPIVersion("v1"))
	if h.System != nil {
		r.Register(NewDomainGroup("system", "/system").
			GET("/info", h.System.GetSystemInfo))
	}
	r.Register(NewDomainGroup("qbd", "/qbd").
		Use(auth).
		POST("/tasks", h.Tasks.Enqueue).
		GET("/tasks", h.Tasks.List).
		GET("/tasks/:id", h.Tasks.Get).
		GET("/queue", h.Tasks.Stats))
	r.Setup()

	return engine, nil
}
