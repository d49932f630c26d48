package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// AuditConsumer listens to every booking queue and appends one line per
// event to an audit log file (logs/booking.log by default).
type AuditConsumer struct {
    url  string
    path string
    log  *logrus.Logger

    mu sync.Mutex
}

// NewAuditConsumer returns a consumer writing to path.
func NewAuditConsumer(url, path string, log *logrus.Logger) *AuditConsumer {
    if path == "" {
        path = filepath.Join("logs", "booking.log")
    }
    return &AuditConsumer{url: url, path: path, log: log}
}

// Run connects to the broker and consumes until ctx is done, reconnecting
// with exponential backoff (capped at 30s) whenever the connection drops.
// Messages that cannot be handled are rejected without requeue so a bad
// payload cannot cause a tight redelivery loop.
func (c *AuditConsumer) Run(ctx context.Context) {
    backoff := time.Second
    for ctx.Err() == nil {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).WithField("retry_in", backoff.String()).Warn("booking-consumer: dial failed")
            if !sleep(ctx, backoff) {
                break
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            break
        }
        c.log.WithError(err).Warn("booking-consumer: consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            break
        }
    }
    c.log.Info("booking-consumer: stopped")
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.WithError(err).Warn("booking-consumer: set QoS failed")
    }
    if err := declareQueues(ch); err != nil {
        return err
    }

    sources := make([]<-chan amqp.Delivery, 0, len(EventTypes))
    for _, name := range EventTypes {
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        sources = append(sources, msgs)
    }
    // The forwarders live only as long as this connection.
    ctx, cancel := context.WithCancel(ctx)
    defer cancel()
    deliveries := fanIn(ctx, sources...)

    closed := conn.NotifyClose(make(chan *amqp.Error, 1))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case amqpErr := <-closed:
            if amqpErr != nil {
                return amqpErr
            }
            return errors.New("connection closed")
        case d, ok := <-deliveries:
            if !ok {
                return errors.New("delivery channels closed")
            }
            if err := c.Handle(d.Body); err != nil {
                c.log.WithError(err).WithField("queue", d.RoutingKey).Warn("booking-consumer: handle message failed")
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// fanIn merges sources into one channel.  The returned channel is closed
// once every source is drained or ctx is done, whichever comes first.
func fanIn(ctx context.Context, sources ...<-chan amqp.Delivery) <-chan amqp.Delivery {
    out := make(chan amqp.Delivery)
    var wg sync.WaitGroup
    for _, src := range sources {
        wg.Add(1)
        go func(src <-chan amqp.Delivery) {
            defer wg.Done()
            for {
                var d amqp.Delivery
                select {
                case m, ok := <-src:
                    if !ok {
                        return
                    }
                    d = m
                case <-ctx.Done():
                    return
                }
                select {
                case out <- d:
                case <-ctx.Done():
                    return
                }
            }
        }(src)
    }
    go func() {
        wg.Wait()
        close(out)
    }()
    return out
}

// Handle decodes one message body and appends its audit line.
func (c *AuditConsumer) Handle(body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.BookingID == 0 {
        return errors.New("event without type or booking id")
    }

    c.mu.Lock()
    defer c.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    return WriteAuditLine(f, ev)
}

// WriteAuditLine writes ev as a single human readable line.
func WriteAuditLine(w io.Writer, ev BookingEvent) error {
    seats := make([]string, 0, len(ev.SeatIDs))
    for _, id := range ev.SeatIDs {
        seats = append(seats, strconv.FormatUint(id, 10))
    }
    line := fmt.Sprintf("[%s] %s | booking_id=%d | user_id=%d | screening_id=%d | status=%s/%s | total=%d | seats=[%s]",
        ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.BookingID, ev.UserID, ev.ScreeningID,
        ev.Status, ev.PaymentStatus, ev.TotalAmount, strings.Join(seats, ","))
    if ev.TransactionID != "" {
        line += " | transaction_id=" + ev.TransactionID
    }
    if _, err := io.WriteString(w, line+"\n"); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
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
