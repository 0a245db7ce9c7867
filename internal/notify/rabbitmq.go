package notify

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher sends each event to the durable queue for its type on
// the default exchange.  A connection is dialled per publish: events are
// rare relative to requests and this keeps the publisher stateless.  The
// TCP dial is bounded by dialTimeout instead of amqp.Dial's 30 seconds.
type RabbitPublisher struct {
    url    string
    queues map[string]string
    dial   func(url string) (*amqp.Connection, error)
}

func NewRabbitPublisher(url, decidedQueue, checkInQueue string, dialTimeout time.Duration) *RabbitPublisher {
    if dialTimeout <= 0 {
        dialTimeout = 5 * time.Second
    }
    return &RabbitPublisher{
        url: url,
        queues: map[string]string{
            EventReservationDecided:   decidedQueue,
            EventReservationCheckedIn: checkInQueue,
        },
        dial: func(url string) (*amqp.Connection, error) {
            return amqp.DialConfig(url, amqp.Config{
                Heartbeat: 10 * time.Second,
                Locale:    "en_US",
                Dial:      amqp.DefaultDial(dialTimeout),
            })
        },
    }
}

// QueueFor returns the queue carrying events of type eventType.
func (p *RabbitPublisher) QueueFor(eventType string) (string, error) {
    q, ok := p.queues[eventType]
    if !ok || q == "" {
        return "", fmt.Errorf("notify: no queue for event type %q", eventType)
    }
    return q, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
    queue, err := p.QueueFor(ev.Type)
    if err != nil {
        return err
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("notify: marshal event: %w", err)
    }

    conn, err := p.dial(p.url)
    if err != nil {
        return fmt.Errorf("notify: dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("notify: open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // durable, not auto-deleted, not exclusive
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("notify: declare %s: %w", queue, err)
    }

    return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         ev.Type,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
}
