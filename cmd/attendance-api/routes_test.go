package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/handler"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	"github.com/noah-isme/sma-attendance-api/pkg/config"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := t[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

func testRouter(checks map[string]handler.Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	metrics := service.NewMetricsService()
	tokens := tokenTable{
		"student-token": {UserID: "user-stu-10", Role: models.RoleStudent, StudentID: "stu-10"},
	}
	return newRouter(cfg, zap.NewNop(), routeDeps{
		auth:          tokens,
		metrics:       metrics,
		attendance:    handler.NewAttendanceHandler(nil, nil),
		excuses:       handler.NewExcuseHandler(nil),
		notifications: handler.NewNotificationHandler(nil),
		observability: handler.NewMetricsHandler(metrics, checks),
	})
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterRequiresBearerToken(t *testing.T) {
	r := testRouter(nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/attendance/mark"},
		{http.MethodGet, "/api/v1/attendance/summary"},
		{http.MethodPost, "/api/v1/excuses/approve"},
		{http.MethodGet, "/api/v1/notifications"},
	} {
		rec := serve(r, tc.method, tc.path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/notifications", "forged").Code)
}

func TestRouterKeepsStudentsOffStaffRoutes(t *testing.T) {
	r := testRouter(nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/attendance/mark"},
		{http.MethodGet, "/api/v1/excuses/pending"},
		{http.MethodPost, "/api/v1/excuses/approve"},
		{http.MethodPost, "/api/v1/excuses/reject"},
	} {
		rec := serve(r, tc.method, tc.path, "student-token")
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}
}

func TestRouterOperationalEndpoints(t *testing.T) {
	checks := map[string]handler.Pinger{
		"postgres": handler.PingFunc(func(ctx context.Context) error { return nil }),
		"redis":    handler.PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	}
	r := testRouter(checks)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)

	ready := serve(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
	assert.Contains(t, ready.Body.String(), "connection refused")

	metrics := serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "http_requests_total")

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/docs/index.html", "").Code)
}
