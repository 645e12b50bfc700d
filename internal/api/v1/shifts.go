package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fleetops/geocheckin/internal/checkin"
)

// GetSession handles GET /api/v1/shifts/:shiftId/session
func (c *Controller) GetSession(ctx echo.Context) error {
	ws, err := c.Service.GetSession(ctx.Request().Context(), ctx.Param("shiftId"))
	if err != nil {
		return c.HandleServiceError(ctx, err, "Failed to build work session")
	}
	return ctx.JSON(http.StatusOK, ws)
}

// ListRecords handles GET /api/v1/shifts/:shiftId/records
func (c *Controller) ListRecords(ctx echo.Context) error {
	shiftID := ctx.Param("shiftId")

	records, err := c.Service.ListRecords(ctx.Request().Context(), shiftID)
	if err != nil {
		return c.HandleServiceError(ctx, err, "Failed to list records")
	}
	if records == nil {
		records = []checkin.Record{}
	}

	return ctx.JSON(http.StatusOK, RecordsResponse{
		ShiftID: shiftID,
		Count:   len(records),
		Records: records,
	})
}
