package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/country-cache/internal/service"
)

// RefreshHandler exposes the sync trigger and the summary image.
type RefreshHandler struct {
	Refresher *service.RefreshService
	Images    *service.ImageService
}

// NewRefreshHandler constructs a RefreshHandler.
func NewRefreshHandler(refresher *service.RefreshService, images *service.ImageService) *RefreshHandler {
	return &RefreshHandler{Refresher: refresher, Images: images}
}

// Refresh handles POST /countries/refresh. A failed external source maps to
// 503 naming the source; anything else unexpected is a generic 500.
func (h *RefreshHandler) Refresh(c echo.Context) error {
	result, err := h.Refresher.Refresh(c.Request().Context())
	if err != nil {
		var srcErr *service.SourceUnavailableError
		if errors.As(err, &srcErr) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"error":   "External data source unavailable",
				"details": echo.Map{"source": srcErr.Source},
			})
		}
		log.Printf("refresh failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, result)
}

// Image handles GET /countries/image, serving the most recently generated
// summary PNG.
func (h *RefreshHandler) Image(c echo.Context) error {
	buf, err := h.Images.Buffer()
	if err != nil {
		log.Printf("read summary image failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	if buf == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Summary image not found"})
	}
	return c.Blob(http.StatusOK, "image/png", buf)
}
