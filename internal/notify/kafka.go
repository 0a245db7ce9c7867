package notify

import (
    "context"
    "encoding/json"
    "fmt"
    "strconv"

    "github.com/segmentio/kafka-go"
)

// KafkaPublisher writes all reservation events to one topic.  Messages are
// keyed by reservation id so events of one reservation stay ordered within
// a partition; the event type travels in a header.
type KafkaPublisher struct {
    writer messageWriter
}

type messageWriter interface {
    WriteMessages(ctx context.Context, msgs ...kafka.Message) error
    Close() error
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
    return &KafkaPublisher{writer: &kafka.Writer{
        Addr:                   kafka.TCP(brokers...),
        Topic:                  topic,
        Balancer:               &kafka.Hash{},
        RequiredAcks:           kafka.RequireOne,
        AllowAutoTopicCreation: true,
    }}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("notify: marshal event: %w", err)
    }
    return p.writer.WriteMessages(ctx, kafka.Message{
        Key:     []byte(strconv.FormatUint(ev.ReservationID, 10)),
        Value:   body,
        Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
    })
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
