// Command notifier consumes reservation events and delivers notices.
// Delivery is logged; the SMS and push gateways plug in as a Handler.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/store-reservation/internal/config"
	"github.com/iliyamo/store-reservation/internal/logger"
	"github.com/iliyamo/store-reservation/internal/notify"
)

func main() {
	_ = godotenv.Load()
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       getenv("LOG_LEVEL", "info"),
		Environment: getenv("APP_ENV", "dev"),
		ServiceName: "store-reservation-notifier",
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadNotifyConfig()
	h := notify.LogHandler(log)

	var err error
	switch cfg.Driver {
	case "kafka":
		log.Info("consuming", zap.String("topic", cfg.KafkaTopic), zap.Strings("brokers", cfg.KafkaBrokers))
		err = notify.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, getenv("KAFKA_GROUP_ID", "store-reservation-notifier"), log).Run(ctx, h)
	case "log":
		log.Info("log driver publishes nowhere; nothing to consume")
		return
	default:
		log.Info("consuming", zap.String("decided", cfg.DecidedQueue), zap.String("checked_in", cfg.CheckInQueue))
		err = notify.NewRabbitConsumer(cfg.AMQPURL, log, cfg.DecidedQueue, cfg.CheckInQueue).Run(ctx, h)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("consumer stopped", zap.Error(err))
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
