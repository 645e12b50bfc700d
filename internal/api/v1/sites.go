package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetSite handles GET /api/v1/sites/:siteId. Sites resolve through the registry,
// so an inactive site answers 422 just as it would for a check-in.
func (c *Controller) GetSite(ctx echo.Context) error {
	site, err := c.Service.Site(ctx.Request().Context(), ctx.Param("siteId"))
	if err != nil {
		return c.HandleServiceError(ctx, err, "Failed to resolve site")
	}
	return ctx.JSON(http.StatusOK, site)
}
