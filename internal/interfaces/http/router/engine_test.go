package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/application/qbwc"
	appqueue "github.com/qbdsync/backend/internal/application/queue"
	"github.com/qbdsync/backend/internal/domain/realm"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/config"
	"github.com/qbdsync/backend/internal/interfaces/http/handler"
	"github.com/qbdsync/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type stubConnector struct{}

func (stubConnector) ServerVersion() string       { return "1.0.0" }
func (stubConnector) ClientVersion(string) string { return "" }
func (stubConnector) Authenticate(context.Context, string, string) (qbwc.AuthResult, error) {
	return qbwc.AuthResult{Status: qbwc.StatusInvalidUser}, nil
}
func (stubConnector) SendRequestXML(context.Context, string) (string, error) { return "", nil }
func (stubConnector) ReceiveResponseXML(context.Context, qbwc.ResponseInput) (int, error) {
	return 100, nil
}
func (stubConnector) GetLastError(context.Context, string) (string, error) { return "", nil }
func (stubConnector) ConnectionError(context.Context, string, string, string) (string, error) {
	return qbwc.ConnectionErrorDone, nil
}
func (stubConnector) CloseConnection(context.Context, string) (string, error) {
	return qbwc.CloseConnectionOK, nil
}

type stubQueue struct{}

func (stubQueue) Enqueue(context.Context, uuid.UUID, appqueue.EnqueueTaskInput) (*appqueue.TaskResponse, error) {
	return nil, shared.ErrInvalidInput
}
func (stubQueue) Get(context.Context, uuid.UUID, uuid.UUID) (*appqueue.TaskResponse, error) {
	return nil, shared.ErrNotFound
}
func (stubQueue) List(_ context.Context, _ uuid.UUID, _ appqueue.TaskListFilter) (shared.Paginated[appqueue.TaskResponse], error) {
	return shared.Paginated[appqueue.TaskResponse]{Items: []appqueue.TaskResponse{}, Page: 1, PageSize: 20}, nil
}
func (stubQueue) CountPending(context.Context, uuid.UUID) (int64, error) { return 3, nil }

type stubRealms struct{ realm *realm.Realm }

func (s stubRealms) Lookup(_ context.Context, id string) (*realm.Realm, error) {
	if s.realm != nil && s.realm.ID.String() == id {
		return s.realm, nil
	}
	return nil, shared.ErrNotFound
}

// fakeAuth admits requests carrying "Bearer ok" for the given realm
func fakeAuth(realmID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer ok" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(middleware.JWTRealmIDKey, realmID.String())
		c.Next()
	}
}

func newTestEngine(t *testing.T, opts Options) (*gin.Engine, *realm.Realm) {
	t.Helper()
	acme := &realm.Realm{SchemaName: "acme", Name: "Acme", IsActive: true}
	acme.ID = uuid.New()

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Auth == nil {
		opts.Auth = fakeAuth(acme.ID)
	}
	opts.CORS = middleware.DefaultCORSConfig()
	opts.Security = middleware.DefaultSecurityConfig()

	engine, err := NewEngine(Handlers{
		QBWC:   handler.NewQBWCHandler(stubConnector{}, zap.NewNop()),
		QWC:    handler.NewQWCHandler(stubRealms{realm: acme}, config.QBWCConfig{AppName: "qbd-sync", QBType: "QBFS"}),
		Tasks:  handler.NewTaskHandler(stubQueue{}),
		System: handler.NewSystemHandler("qbd-sync", "1.0.0", nil),
	}, opts)
	require.NoError(t, err)
	return engine, acme
}

func serve(engine *gin.Engine, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

const serverVersionCall = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><serverVersion xmlns="http://developer.intuit.com/" /></soap:Body></soap:Envelope>`

func TestNewEngine_Routes(t *testing.T) {
	engine, acme := newTestEngine(t, Options{})
	authorized := map[string]string{"Authorization": "Bearer ok"}

	t.Run("soap endpoint needs no token", func(t *testing.T) {
		w := serve(engine, http.MethodPost, "/qbwc", serverVersionCall, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<serverVersionResult>1.0.0</serverVersionResult>")
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("descriptor requires a token", func(t *testing.T) {
		target := "/qbwc/realms/" + acme.ID.String() + "/qwc"

		assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, target, "", nil).Code)

		w := serve(engine, http.MethodGet, target, "", authorized)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<QBWCXML>")
	})

	t.Run("task api", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/qbd/tasks", "", nil).Code)
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/qbd/tasks", "", authorized).Code)
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/qbd/queue", "", authorized).Code)
		assert.Equal(t, http.StatusNotFound,
			serve(engine, http.MethodGet, "/api/v1/qbd/tasks/"+uuid.NewString(), "", authorized).Code)
	})

	t.Run("health and info", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health", "", nil).Code)
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/system/info", "", nil).Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/admin", "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
	})

	t.Run("security headers", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/health", "", nil)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})
}

func TestNewEngine_SOAPRateLimit(t *testing.T) {
	engine, _ := newTestEngine(t, Options{SOAPLimiter: middleware.NewRateLimiter(2, time.Minute)})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/qbwc", serverVersionCall, nil).Code)
	}
	w := serve(engine, http.MethodPost, "/qbwc", serverVersionCall, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// the JSON API is not throttled by the SOAP limiter
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health", "", nil).Code)
}

func TestNewEngine_BodyLimit(t *testing.T) {
	engine, _ := newTestEngine(t, Options{MaxBodySize: 64})

	w := serve(engine, http.MethodPost, "/qbwc", serverVersionCall, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNewEngine_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	engine, _ := newTestEngine(t, Options{Meter: provider.Meter("test")})

	serve(engine, http.MethodPost, "/qbwc", serverVersionCall, nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)
	names := make([]string, 0)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "http_server_request_total")
}

func TestNewEngine_DefaultAuthDenies(t *testing.T) {
	acme := &realm.Realm{SchemaName: "acme", Name: "Acme", IsActive: true}
	acme.ID = uuid.New()

	engine, err := NewEngine(Handlers{
		QBWC:  handler.NewQBWCHandler(stubConnector{}, zap.NewNop()),
		QWC:   handler.NewQWCHandler(stubRealms{realm: acme}, config.QBWCConfig{}),
		Tasks: handler.NewTaskHandler(stubQueue{}),
	}, Options{Logger: zap.NewNop()})
	require.NoError(t, err)

	w := serve(engine, http.MethodGet, "/api/v1/qbd/tasks", "", map[string]string{"Authorization": "Bearer ok"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
