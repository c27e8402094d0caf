// Package router registers the HTTP routes of the service on an Echo
// instance.
package router

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/country-cache/internal/handler"
)

// RegisterRoutes wires every endpoint. The cache middleware applies to the
// country listing (the only hot read path with stable output between
// syncs); the rate limiter guards the refresh trigger since each call hits
// two external APIs and rewrites the whole table. Both middlewares are
// pass-throughs when Redis is not configured.
func RegisterRoutes(e *echo.Echo, countries *handler.CountryHandler, refresh *handler.RefreshHandler, cache, limit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	e.POST("/countries/refresh", refresh.Refresh, limit)
	e.GET("/countries/image", refresh.Image)
	e.GET("/countries", countries.List, cache)
	e.GET("/countries/:name", countries.GetByName)
	e.DELETE("/countries/:name", countries.DeleteByName)
	e.GET("/status", countries.GetStatus)
}

// JSONErrorHandler renders every unhandled error with the JSON envelope
// used across the API, so unknown routes and framework errors never leak
// HTML or internal details.
func JSONErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch {
		case code == http.StatusNotFound:
			msg = "Not found"
		case code == http.StatusMethodNotAllowed:
			msg = "Method not allowed"
		case code >= 500:
			msg = "Internal server error"
		default:
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		}
	}

	if jsonErr := c.JSON(code, echo.Map{"error": msg}); jsonErr != nil {
		log.Printf("write error response failed: %v", jsonErr)
	}
}
