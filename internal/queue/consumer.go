package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// StartBedEventConsumer connects to RabbitMQ, declares the bed.events queue
// (durable) and appends every event to <dir>/bed-events.log in a single
// line, human-friendly format.  It reconnects with exponential backoff and
// returns only when ctx is cancelled.
func StartBedEventConsumer(ctx context.Context, url, dir string, logger *zap.Logger) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            logger.Warn("bed-events consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, dir, logger)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logger.Warn("bed-events consumer: loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string, logger *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.Warn("bed-events consumer: set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(BedEventsQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(BedEventsQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := appendEvent(dir, d.Body); err != nil {
                logger.Error("bed-events consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func appendEvent(dir string, body []byte) error {
    var ev BedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "bed-events.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(FormatEvent(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatEvent renders an event as one audit log line.
func FormatEvent(ev BedEvent) string {
    parts := []string{
        fmt.Sprintf("[%s] %s", ev.OccurredAt, ev.Type),
        "ward=" + ev.WardID,
    }
    if ev.BedID != "" {
        parts = append(parts, "bed="+ev.BedID)
    }
    if ev.BedType != "" {
        parts = append(parts, fmt.Sprintf("type=%q", ev.BedType))
    }
    if ev.PreviousStatus != "" || ev.Status != "" {
        parts = append(parts, fmt.Sprintf("status=%s->%s", orDash(ev.PreviousStatus), orDash(ev.Status)))
    }
    if ev.Occupied != nil {
        parts = append(parts, fmt.Sprintf("occupied=%d", *ev.Occupied))
    }
    if ev.ActiveSurge != nil {
        parts = append(parts, fmt.Sprintf("active_surge=%d", *ev.ActiveSurge))
    }
    parts = append(parts, "staff="+orDash(ev.StaffID), "event_id="+ev.EventID)
    return strings.Join(parts, " | ") + "\n"
}

func orDash(s string) string {
    if s == "" {
        return "-"
    }
    return s
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
