// Package handler exposes the HTTP endpoints of the service. Handlers map
// validated requests onto the repositories and the refresh service; all
// error responses share the {"error": ..., "details": ...} envelope.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/country-cache/internal/repository"
	"github.com/iliyamo/country-cache/internal/validator"
)

// CountryHandler bundles the repositories behind the read/delete endpoints.
type CountryHandler struct {
	Countries *repository.CountryRepo
	Status    *repository.StatusRepo
}

// NewCountryHandler constructs a CountryHandler.
func NewCountryHandler(countries *repository.CountryRepo, status *repository.StatusRepo) *CountryHandler {
	return &CountryHandler{Countries: countries, Status: status}
}

// List handles GET /countries with optional region/currency filters, GDP
// ordering and pagination.
func (h *CountryHandler) List(c echo.Context) error {
	q, details := validator.ValidateCountriesQuery(c.QueryParams())
	if details != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": details})
	}

	rows, err := h.Countries.List(c.Request().Context(), repository.ListFilter{
		Region:   q.Region,
		Currency: q.Currency,
		Sort:     q.Sort,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		log.Printf("list countries failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, rows)
}

// GetByName handles GET /countries/:name with case-insensitive matching.
func (h *CountryHandler) GetByName(c echo.Context) error {
	name, details := validator.ValidateNameParam(c.Param("name"))
	if details != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": details})
	}

	country, err := h.Countries.GetByName(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrCountryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Country not found"})
		}
		log.Printf("get country %q failed: %v", name, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, country)
}

// DeleteByName handles DELETE /countries/:name. Deleting an unknown name is
// a 404, not an error.
func (h *CountryHandler) DeleteByName(c echo.Context) error {
	name, details := validator.ValidateNameParam(c.Param("name"))
	if details != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": details})
	}

	if err := h.Countries.DeleteByName(c.Request().Context(), name); err != nil {
		if errors.Is(err, repository.ErrCountryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Country not found"})
		}
		log.Printf("delete country %q failed: %v", name, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": name + " deleted successfully"})
}

// GetStatus handles GET /status: total row count and the timestamp of the
// last successful refresh (null before the first one).
func (h *CountryHandler) GetStatus(c echo.Context) error {
	ctx := c.Request().Context()

	total, err := h.Countries.Count(ctx)
	if err != nil {
		log.Printf("count countries failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	status, err := h.Status.Get(ctx)
	if err != nil {
		log.Printf("get refresh status failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_countries":   total,
		"last_refreshed_at": status.LastRefreshedAt,
	})
}
