package handler

import (
    "context"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/technotes/internal/middleware"
    "github.com/iliyamo/technotes/internal/queue"
)

const publishTimeout = 2 * time.Second

// EventPublisher receives an audit event after every successful write.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.ResourceEvent) error
}

// audit publishes an event for the current request.  Failures are only
// logged; the write has already been committed.
type audit struct {
    pub    EventPublisher
    logger *zap.Logger
    now    func() time.Time
}

func newAudit(pub EventPublisher, logger *zap.Logger) audit {
    if logger == nil {
        logger = zap.NewNop()
    }
    return audit{pub: pub, logger: logger, now: time.Now}
}

func (a audit) record(c echo.Context, action, resource, id, label string) {
    if a.pub == nil {
        return
    }
    username := middleware.Username(c)
    if username == "" {
        username = "anon"
    }
    ev := queue.ResourceEvent{
        Action:   action,
        Resource: resource,
        ID:       id,
        Label:    label,
        Actor:    username,
        At:       a.now().UTC(),
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), publishTimeout)
    defer cancel()
    if err := a.pub.Publish(ctx, ev); err != nil {
        a.logger.Warn("publish audit event", zap.String("resource", resource), zap.String("action", action), zap.Error(err))
    }
}
