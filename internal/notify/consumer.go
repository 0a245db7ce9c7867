package notify

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/segmentio/kafka-go"
    "go.uber.org/zap"
)

// Handler processes one decoded event.  An error rejects the message
// without requeue.
type Handler func(ctx context.Context, ev ReservationEvent) error

// Decode parses a message body into an event and checks the fields every
// consumer relies on.
func Decode(body []byte) (ReservationEvent, error) {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return ReservationEvent{}, fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.ReservationID == 0 {
        return ReservationEvent{}, errors.New("event without type or reservation id")
    }
    return ev, nil
}

// LogHandler writes every event to log.
func LogHandler(log *zap.Logger) Handler {
    return func(_ context.Context, ev ReservationEvent) error {
        log.Info("notification received", eventFields(ev)...)
        return nil
    }
}

// RabbitConsumer drains the reservation queues.  It reconnects with
// exponential backoff until ctx is cancelled.
type RabbitConsumer struct {
    url    string
    queues []string
    log    *zap.Logger
}

func NewRabbitConsumer(url string, log *zap.Logger, queues ...string) *RabbitConsumer {
    return &RabbitConsumer{url: url, queues: queues, log: log}
}

func (c *RabbitConsumer) Run(ctx context.Context, h Handler) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("broker dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn, h)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *RabbitConsumer) consume(ctx context.Context, conn *amqp.Connection, h Handler) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("set QoS failed", zap.Error(err))
    }

    // one merged stream over all queues
    merged := make(chan amqp.Delivery)
    done := make(chan struct{})
    defer close(done)
    open := len(c.queues)
    closed := make(chan struct{}, len(c.queues))
    for _, q := range c.queues {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
        msgs, err := ch.Consume(q, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", q, err)
        }
        go func(msgs <-chan amqp.Delivery) {
            defer func() { closed <- struct{}{} }()
            for d := range msgs {
                select {
                case merged <- d:
                case <-done:
                    return
                }
            }
        }(msgs)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-closed:
            open--
            if open == 0 {
                return errors.New("deliveries channel closed")
            }
        case d := <-merged:
            c.handle(ctx, d, h)
        }
    }
}

func (c *RabbitConsumer) handle(ctx context.Context, d amqp.Delivery, h Handler) {
    ev, err := Decode(d.Body)
    if err == nil {
        err = h(ctx, ev)
    }
    if err != nil {
        c.log.Error("handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
        _ = d.Nack(false, false)
        return
    }
    _ = d.Ack(false)
}

// KafkaConsumer reads the reservation topic in a consumer group.
type KafkaConsumer struct {
    reader *kafka.Reader
    log    *zap.Logger
}

func NewKafkaConsumer(brokers []string, topic, groupID string, log *zap.Logger) *KafkaConsumer {
    return &KafkaConsumer{
        reader: kafka.NewReader(kafka.ReaderConfig{
            Brokers:  brokers,
            Topic:    topic,
            GroupID:  groupID,
            MinBytes: 1,
            MaxBytes: 10e6,
        }),
        log: log,
    }
}

// Run commits each message after h returns, including undecodable ones, so
// a poison message cannot stall the partition.
func (c *KafkaConsumer) Run(ctx context.Context, h Handler) error {
    defer func() { _ = c.reader.Close() }()
    for {
        msg, err := c.reader.FetchMessage(ctx)
        if err != nil {
            if ctx.Err() != nil {
                return ctx.Err()
            }
            c.log.Warn("kafka fetch failed", zap.Error(err))
            if !sleep(ctx, time.Second) {
                return ctx.Err()
            }
            continue
        }
        ev, err := Decode(msg.Value)
        if err == nil {
            err = h(ctx, ev)
        }
        if err != nil {
            c.log.Error("handle message failed", zap.Int("partition", msg.Partition),
                zap.Int64("offset", msg.Offset), zap.Error(err))
        }
        if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
            c.log.Warn("kafka commit failed", zap.Error(err))
        }
    }
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
