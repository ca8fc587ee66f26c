// Package service holds integrations the bed store handlers call after a
// committed change.  Publishing is best effort: errors are logged and
// returned so callers can ignore them without failing the request.
package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/ward-bed-registry/internal/queue"
)

// Publisher sends bed events to the bed.events queue.
type Publisher struct {
    url    string
    logger *zap.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *zap.Logger) *Publisher {
    return &Publisher{url: url, logger: logger}
}

// defaultDialTimeout bounds the TCP connect and AMQP handshake when ctx
// carries no deadline.
const defaultDialTimeout = 3 * time.Second

// Publish delivers one event.  Messages are marked as persistent.  A fresh
// connection is used per call; bed mutations are rare enough that pooling
// is not needed.  The connect and handshake are bounded by ctx's deadline.
func (p *Publisher) Publish(ctx context.Context, ev queue.BedEvent) error {
    timeout := defaultDialTimeout
    if dl, ok := ctx.Deadline(); ok {
        timeout = time.Until(dl)
        if timeout <= 0 {
            return context.DeadlineExceeded
        }
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Dial:      amqp.DefaultDial(timeout),
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
    })
    if err != nil {
        p.logger.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.logger.Warn("rabbitmq: channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Idempotent declare; durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queue.BedEventsQueue, true, false, false, false, nil); err != nil {
        p.logger.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         ev.Type,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue.BedEventsQueue, false, false, pub); err != nil {
        p.logger.Warn("rabbitmq: publish failed", zap.String("event", ev.Type), zap.Error(err))
        return err
    }
    return nil
}
