package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/technotes/internal/logging"
)

// RequestLogger writes "METHOD\tURL\tORIGIN" for every request to the
// request channel before the handler runs, and a structured line with the
// outcome to the zap logger afterwards.
func RequestLogger(events logging.EventLogger, logger *zap.Logger) echo.MiddlewareFunc {
    if logger == nil {
        logger = zap.NewNop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            origin := req.Header.Get(echo.HeaderOrigin)
            if origin == "" {
                origin = "undefined"
            }
            events.Log(logging.RequestChannel, req.Method+"\t"+req.URL.RequestURI()+"\t"+origin)

            start := time.Now()
            err := next(c)
            if err != nil {
                // Let the error handler write the response so the status below is final.
                c.Error(err)
            }
            logger.Info("request",
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.Int("status", c.Response().Status),
                zap.Duration("latency", time.Since(start)),
                zap.String("user", actor(c)),
            )
            return nil
        }
    }
}
