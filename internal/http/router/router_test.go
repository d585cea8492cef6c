package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "vehicle_inspection_backend/internal/http"
	"vehicle_inspection_backend/platform/httpkit"
	"vehicle_inspection_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type staticConfig struct{}

func (staticConfig) GetHTTPAddr() string { return ":0" }
func (staticConfig) GetCORSAllowAll() bool { return false }
func (staticConfig) GetCORSOrigins() []string { return []string{"https://inspections.example"} }
func (staticConfig) GetCORSAllowCreds() bool { return true }

type tokenTable map[string]httpkit.Principal

func (t tokenTable) VerifyToken(raw string) (httpkit.Principal, error) {
	p, ok := t[raw]
	if !ok {
		return httpkit.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type stubModule struct{}

func (stubModule) Name() string { return "stub" }

func (stubModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ok := func(c *gin.Context) { httpkit.OK(c, gin.H{"status": "ok"}) }
	ctx.V1.GET("/ping/public", ok)
	ctx.Protected.GET("/ping/private", ok)
	ctx.Admin.GET("/ping", ok)
}

func newTestRouter(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:   staticConfig{},
		Logger:   logger.New("test"),
		Health:   health,
		Verifier: tokenTable{
			"customer": {UserID: uuid.New(), Role: "customer"},
			"admin":    {UserID: uuid.New(), Role: "admin"},
		},
		Modules: []apphttp.Module{stubModule{}},
	})
}

func serve(engine *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestReadyReflectsDatabaseHealth(t *testing.T) {
	if rec := serve(newTestRouter(pinger{}), http.MethodGet, "/api/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d", rec.Code)
	}
	rec := serve(newTestRouter(pinger{err: errors.New("down")}), http.MethodGet, "/api/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the database is down, got %d", rec.Code)
	}
}

func TestRouteGroupsEnforceAuthentication(t *testing.T) {
	engine := newTestRouter(nil)

	cases := []struct {
		path  string
		token string
		want  int
	}{
		{"/api/v1/ping/public", "", http.StatusOK},
		{"/api/v1/ping/private", "", http.StatusUnauthorized},
		{"/api/v1/ping/private", "forged", http.StatusUnauthorized},
		{"/api/v1/ping/private", "customer", http.StatusOK},
		{"/api/v1/admin/ping", "customer", http.StatusForbidden},
		{"/api/v1/admin/ping", "admin", http.StatusOK},
	}
	for _, tc := range cases {
		if rec := serve(engine, http.MethodGet, tc.path, tc.token); rec.Code != tc.want {
			t.Fatalf("%s with token %q: expected %d, got %d", tc.path, tc.token, tc.want, rec.Code)
		}
	}
}

func TestEveryResponseCarriesRequestID(t *testing.T) {
	engine := newTestRouter(nil)

	rec := serve(engine, http.MethodGet, "/api/health", "")
	if rec.Header().Get(httpkit.HeaderRequestID) == "" {
		t.Fatalf("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(httpkit.HeaderRequestID, "req-42")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if got := rec.Header().Get(httpkit.HeaderRequestID); got != "req-42" {
		t.Fatalf("expected the caller's request id to be echoed, got %q", got)
	}
}
