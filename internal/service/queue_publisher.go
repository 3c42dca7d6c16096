// Package service provides publishers for audit events.  Publishing is
// best effort: errors are logged and returned so callers can ignore them
// without interrupting the request.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/technotes/internal/queue"
)

// DefaultDialTimeout bounds connect and handshake when the publish context
// carries no deadline.
const DefaultDialTimeout = 5 * time.Second

// EventPublisher publishes queue.ResourceEvent values to RabbitMQ.  It
// dials per publish; audit traffic is low and this keeps no connection
// state to recover.
type EventPublisher struct {
    URL    string
    Logger *zap.Logger
}

// dialConfig limits the TCP connect and the AMQP handshake to whatever is
// left of ctx.  amqp.Dial alone ignores ctx and waits up to 30s.
func dialConfig(ctx context.Context) (amqp.Config, error) {
    timeout := DefaultDialTimeout
    if deadline, ok := ctx.Deadline(); ok {
        timeout = time.Until(deadline)
    }
    if err := ctx.Err(); err != nil {
        return amqp.Config{}, err
    }
    if timeout <= 0 {
        return amqp.Config{}, context.DeadlineExceeded
    }
    return amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    }, nil
}

func NewEventPublisher(url string, logger *zap.Logger) *EventPublisher {
    if logger == nil {
        logger = zap.NewNop()
    }
    return &EventPublisher{URL: url, Logger: logger}
}

// Publish sends ev to the resource.events queue as a persistent JSON
// message.
func (p *EventPublisher) Publish(ctx context.Context, ev queue.ResourceEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    cfg, err := dialConfig(ctx)
    if err != nil {
        return err
    }
    conn, err := amqp.DialConfig(p.URL, cfg)
    if err != nil {
        p.Logger.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()
    // Channel open and queue declare have no deadline of their own.
    stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
    defer stop()

    ch, err := conn.Channel()
    if err != nil {
        p.Logger.Warn("rabbitmq: channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        queue.EventQueue, // name
        true,             // durable
        false,            // autoDelete
        false,            // exclusive
        false,            // noWait
        nil,              // args
    ); err != nil {
        p.Logger.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue.EventQueue, false, false, pub); err != nil {
        p.Logger.Warn("rabbitmq: publish failed", zap.Error(err))
        return err
    }
    return nil
}

// NopPublisher discards events.  It is used when EVENTS_ENABLED is false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ResourceEvent) error { return nil }
