package handler

import (
    "errors"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/technotes/internal/logging"
)

// APIError is an error with the HTTP status and client-facing message it
// should be reported with.  Handlers return it; ErrorHandler renders it as
// {"message": ...}.
type APIError struct {
    Status  int
    Message string
    Err     error // optional cause, logged but never sent
}

func (e *APIError) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
    }
    return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func BadRequest(msg string) *APIError   { return &APIError{Status: http.StatusBadRequest, Message: msg} }
func Unauthorized(msg string) *APIError { return &APIError{Status: http.StatusUnauthorized, Message: msg} }
func Forbidden(msg string) *APIError    { return &APIError{Status: http.StatusForbidden, Message: msg} }
func Conflict(msg string) *APIError     { return &APIError{Status: http.StatusConflict, Message: msg} }

// NotFound is used when a referenced record is absent.  Clients of this
// API expect 400 rather than 404 for that case.
func NotFound(msg string) *APIError { return &APIError{Status: http.StatusBadRequest, Message: msg} }

// ErrorHandler returns an echo.HTTPErrorHandler that writes every error
// as {"message": ...}.  APIError and echo.HTTPError keep their status;
// anything else is a 500, logged to zap and to the error channel.
func ErrorHandler(logger *zap.Logger, events logging.EventLogger) echo.HTTPErrorHandler {
    if logger == nil {
        logger = zap.NewNop()
    }
    if events == nil {
        events = logging.Nop{}
    }
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status, msg := http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)

        var apiErr *APIError
        var httpErr *echo.HTTPError
        switch {
        case errors.As(err, &apiErr):
            status, msg = apiErr.Status, apiErr.Message
            if apiErr.Err != nil {
                logger.Warn("request failed", zap.Int("status", status), zap.Error(apiErr.Err))
            }
        case errors.As(err, &httpErr):
            status = httpErr.Code
            if m, ok := httpErr.Message.(string); ok {
                msg = m
            } else {
                msg = http.StatusText(status)
            }
        default:
            req := c.Request()
            logger.Error("unhandled error", zap.String("method", req.Method), zap.String("path", req.URL.Path), zap.Error(err))
            events.Log(logging.ErrorChannel, fmt.Sprintf("%T: %v\t%s\t%s\t%s",
                err, err, req.Method, req.URL.RequestURI(), req.Header.Get(echo.HeaderOrigin)))
        }

        var werr error
        if c.Request().Method == http.MethodHead {
            werr = c.NoContent(status)
        } else {
            werr = c.JSON(status, echo.Map{"message": msg})
        }
        if werr != nil {
            logger.Error("write error response", zap.Error(werr))
        }
    }
}
