package notify

import (
    "context"
    "fmt"

    "github.com/iliyamo/store-reservation/internal/config"
)

// Publisher is implemented by every driver in this package.
type Publisher interface {
    Publish(ctx context.Context, ev ReservationEvent) error
}

// New builds the publisher selected by cfg.Driver.
func New(cfg config.NotifyConfig) (Publisher, error) {
    switch cfg.Driver {
    case "rabbitmq", "amqp", "":
        return NewRabbitPublisher(cfg.AMQPURL, cfg.DecidedQueue, cfg.CheckInQueue, cfg.SendTimeout), nil
    case "kafka":
        if len(cfg.KafkaBrokers) == 0 {
            return nil, fmt.Errorf("notify: kafka driver needs KAFKA_BROKERS")
        }
        return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
    case "log":
        return LogPublisher{}, nil
    }
    return nil, fmt.Errorf("notify: unknown driver %q", cfg.Driver)
}
