package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/session"
	"github.com/fleetops/geocheckin/internal/sites"
)

// Machine readable error codes returned in ErrorResponse.ErrorCode
const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidCoordinate  = "invalid_coordinate"
	CodeInvalidReading     = "invalid_reading"
	CodeSiteNotFound       = "site_not_found"
	CodeShiftNotFound      = "shift_not_found"
	CodeSiteInactive       = "site_inactive"
	CodeDuplicateCheckIn   = "duplicate_check_in"
	CodeOrphanCheckOut     = "orphan_check_out"
	CodeReadingUnavailable = "reading_unavailable"
	CodeStorageUnavailable = "storage_unavailable"
	CodeRateLimited        = "rate_limited"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	ErrorCode     string `json:"error_code"`
	CorrelationID string `json:"correlation_id"` // Request id, also sent as X-Request-ID
	// ExistingRecordID is the open check-in that blocked a duplicate check-in
	ExistingRecordID string `json:"existing_record_id,omitempty"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int, errorCode, correlationID string) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		ErrorCode:     errorCode,
		CorrelationID: correlationID,
	}
}

// classify maps a domain error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, checkin.ErrDuplicateCheckIn):
		return http.StatusConflict, CodeDuplicateCheckIn
	case errors.Is(err, checkin.ErrOrphanCheckOut):
		return http.StatusConflict, CodeOrphanCheckOut
	case errors.Is(err, sites.ErrSiteNotFound):
		return http.StatusNotFound, CodeSiteNotFound
	case errors.Is(err, session.ErrShiftNotFound):
		return http.StatusNotFound, CodeShiftNotFound
	case errors.Is(err, sites.ErrSiteInactive):
		return http.StatusUnprocessableEntity, CodeSiteInactive
	case errors.Is(err, geo.ErrInvalidCoordinate):
		return http.StatusBadRequest, CodeInvalidCoordinate
	case errors.Is(err, checkin.ErrInvalidReading):
		return http.StatusBadRequest, CodeInvalidReading
	case errors.Is(err, checkin.ErrInvalidRequest), errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, checkin.ErrReadingUnavailable):
		return http.StatusServiceUnavailable, CodeReadingUnavailable
	case errors.Is(err, checkin.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, CodeStorageUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// codeForStatus names errors raised by echo itself: routing, binding, limits.
func codeForStatus(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusServiceUnavailable:
		return CodeStorageUnavailable
	}
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	return CodeInvalidRequest
}

// HandleServiceError writes the response for an error returned by the attendance service.
func (c *Controller) HandleServiceError(ctx echo.Context, err error, message string) error {
	status, code := classify(err)
	resp := NewErrorResponse(err, message, status, code, correlationID(ctx))

	var seqErr *checkin.SequenceError
	if errors.As(err, &seqErr) {
		resp.ExistingRecordID = seqErr.ExistingRecordID
	}

	return c.writeError(ctx, err, resp)
}

// HandleError writes an error response with an explicit status.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	return c.writeError(ctx, err, NewErrorResponse(err, message, code, codeForStatus(code), correlationID(ctx)))
}

// HTTPErrorHandler renders errors returned up the middleware chain, such as
// unknown routes, oversized bodies and rate limiting, as ErrorResponse.
func (c *Controller) HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}

	if ctx.Request().Method == http.MethodHead {
		_ = ctx.NoContent(status)
		return
	}
	_ = c.HandleError(ctx, err, message, status)
}

func (c *Controller) writeError(ctx echo.Context, err error, resp *ErrorResponse) error {
	req := ctx.Request()
	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", resp.Message),
		logger.String("error_code", resp.ErrorCode),
		logger.Int("code", resp.Code),
		logger.String("path", req.URL.Path),
		logger.String("method", req.Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}

	log := c.log.WithContext(req.Context())
	if resp.Code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Info("API error", fields...)
	}

	path := ctx.Path()
	if path == "" {
		path = "unmatched"
	}
	c.metrics.RecordHTTPError(req.Method, path, resp.ErrorCode)

	return ctx.JSON(resp.Code, resp)
}

// correlationID returns the request id assigned by the request id middleware,
// or a fresh one for requests that bypassed it.
func correlationID(ctx echo.Context) string {
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	if id := ctx.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}
