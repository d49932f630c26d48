package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Publisher sends BookingEvents to RabbitMQ.  Each event type is routed
// through the default exchange to the durable queue of the same name and
// marked persistent.  The connection is opened lazily and reopened after
// a failure.
type Publisher struct {
    url string
    log *logrus.Logger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *logrus.Logger) *Publisher {
    return &Publisher{url: url, log: log}
}

// Publish implements service.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
    if ev.Type == "" {
        return errors.New("queue: event type is required")
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("queue: marshal event: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    ch, err := p.channel()
    if err != nil {
        return err
    }
    err = ch.PublishWithContext(ctx,
        "",      // default exchange
        ev.Type, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    ev.OccurredAt,
            Type:         ev.Type,
            Body:         body,
        },
    )
    if err != nil {
        p.reset()
        return fmt.Errorf("queue: publish %s: %w", ev.Type, err)
    }
    return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}

// channel returns the open channel, dialing and declaring the queues
// first if needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("queue: dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("queue: open channel: %w", err)
    }
    if err := declareQueues(ch); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    if p.log != nil {
        p.log.Debug("rabbitmq publisher connected")
    }
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// declareQueues makes sure every booking queue exists.  Durable so
// messages survive broker restarts.
func declareQueues(ch *amqp.Channel) error {
    for _, name := range EventTypes {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue: declare %s: %w", name, err)
        }
    }
    return nil
}
