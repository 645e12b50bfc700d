package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fleetops/geocheckin/internal/attendance"
	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/logger"
)

// CheckIn handles POST /api/v1/shifts/:shiftId/check-in
func (c *Controller) CheckIn(ctx echo.Context) error {
	return c.record(ctx, checkin.TypeCheckIn)
}

// CheckOut handles POST /api/v1/shifts/:shiftId/check-out
func (c *Controller) CheckOut(ctx echo.Context) error {
	return c.record(ctx, checkin.TypeCheckOut)
}

// record binds and validates the body, runs the command and returns the stored
// record with 201. A reading outside the geofence is still a 201: the verdict
// in the body says so.
func (c *Controller) record(ctx echo.Context, typ checkin.RecordType) error {
	var req CheckInRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if err := ctx.Validate(&req); err != nil {
		return c.HandleServiceError(ctx, err, "Invalid request")
	}

	attempt := attendance.Attempt{
		ShiftID: ctx.Param("shiftId"),
		SiteID:  req.SiteID,
		Source:  req.readingSource(),
	}

	reqCtx := ctx.Request().Context()
	var (
		rec *checkin.Record
		err error
	)
	if typ == checkin.TypeCheckIn {
		rec, err = c.Service.CheckIn(reqCtx, attempt)
	} else {
		rec, err = c.Service.CheckOut(reqCtx, attempt)
	}
	if err != nil {
		return c.HandleServiceError(ctx, err, rejectMessage(typ))
	}

	c.log.WithContext(reqCtx).Debug("record accepted",
		logger.String("record_id", rec.ID),
		logger.String("type", string(rec.Type)),
		logger.String("shift_id", rec.ShiftID))

	return ctx.JSON(http.StatusCreated, rec)
}

func rejectMessage(typ checkin.RecordType) string {
	if typ == checkin.TypeCheckOut {
		return "Check-out rejected"
	}
	return "Check-in rejected"
}
