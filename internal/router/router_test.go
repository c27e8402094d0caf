package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/country-cache/internal/config"
	"github.com/iliyamo/country-cache/internal/database"
	"github.com/iliyamo/country-cache/internal/handler"
	"github.com/iliyamo/country-cache/internal/middleware"
	"github.com/iliyamo/country-cache/internal/repository"
	"github.com/iliyamo/country-cache/internal/service"
)

// newTestServer builds a fully wired Echo instance against a fresh
// database, with cache and rate limiting disabled (nil Redis client).
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	countryRepo := repository.NewCountryRepo(db)
	images := service.NewImageService(filepath.Join(dir, "summary.png"))
	refresher := service.NewRefreshService(countryRepo, images, config.Config{
		ExternalTimeout: time.Second,
		CountriesAPIURL: "http://127.0.0.1:0", // unreachable, refresh not exercised here
		RatesAPIURL:     "http://127.0.0.1:0",
	}, nil)

	e := echo.New()
	e.HTTPErrorHandler = JSONErrorHandler
	RegisterRoutes(e,
		handler.NewCountryHandler(countryRepo, repository.NewStatusRepo(db)),
		handler.NewRefreshHandler(refresher, images),
		middleware.NewRedisCache(config.CacheConfig{}, nil),
		middleware.NewRateLimiter(config.RateLimitConfig{}, nil))
	return e
}

func TestRegisteredRoutesRespond(t *testing.T) {
	e := newTestServer(t)

	for _, tc := range []struct {
		method, target string
		wantCode       int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/countries", http.StatusOK},
		{http.MethodGet, "/status", http.StatusOK},
		{http.MethodGet, "/countries/image", http.StatusNotFound},
		{http.MethodGet, "/countries/Wakanda", http.StatusNotFound},
		{http.MethodDelete, "/countries/Wakanda", http.StatusNotFound},
	} {
		req := httptest.NewRequest(tc.method, tc.target, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tc.wantCode, rec.Code, "%s %s", tc.method, tc.target)
	}
}

func TestUnknownRouteReturnsJSONNotFound(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Not found", body["error"])
}

func TestStaticImageRouteWinsOverNameParam(t *testing.T) {
	// /countries/image must hit the image handler, not get-by-name, so it
	// returns the image-specific not-found body before any sync ran.
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/countries/image", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Summary image not found", body["error"])
}

func TestRefreshRouteMapsSourceFailureTo503(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/countries/refresh", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "External data source unavailable", body["error"])
}
