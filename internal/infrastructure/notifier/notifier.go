// Package notifier delivers lifecycle events to the configured broadcast backend.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/config"
	"github.com/wekeepgrowing/qr-payment/internal/domain/provider"
	"github.com/wekeepgrowing/qr-payment/pkg/messaging"
)

// Envelope is the message published on every channel.
type Envelope struct {
	Event   string                 `json:"event"`
	Channel string                 `json:"channel"`
	Data    map[string]interface{} `json:"data"`
}

// PublisherNotifier fans an event out to each channel through a messaging
// publisher (redis pub/sub or kafka).
type PublisherNotifier struct {
	publisher messaging.Publisher
	logger    *zap.Logger
}

func NewPublisherNotifier(publisher messaging.Publisher, logger *zap.Logger) *PublisherNotifier {
	return &PublisherNotifier{publisher: publisher, logger: logger}
}

func (n *PublisherNotifier) Deliver(ctx context.Context, eventName string, channels []string, payload map[string]interface{}) error {
	var errs []error
	for _, ch := range channels {
		err := n.publisher.Publish(ctx, ch, Envelope{Event: eventName, Channel: ch, Data: payload})
		if err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", ch, err))
			continue
		}
		n.logger.Debug("Event published", zap.String("event", eventName), zap.String("channel", ch))
	}
	return errors.Join(errs...)
}

func (n *PublisherNotifier) Close() error {
	return n.publisher.Close()
}

// LogNotifier only records events. It is the default when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Deliver(_ context.Context, eventName string, channels []string, payload map[string]interface{}) error {
	n.logger.Info("Event broadcast",
		zap.String("event", eventName),
		zap.Strings("channels", channels),
		zap.Any("payload", payload))
	return nil
}

func (n *LogNotifier) Close() error { return nil }

// Closer is a Notifier that owns a connection.
type Closer interface {
	provider.Notifier
	Close() error
}

// New builds the notifier selected by cfg.Driver.
func New(cfg config.NotifierConfig, logger *zap.Logger) (Closer, error) {
	switch cfg.Driver {
	case config.NotifierLog, "":
		return NewLogNotifier(logger), nil
	case config.NotifierRedis:
		client, err := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return NewPublisherNotifier(client, logger), nil
	case config.NotifierKafka:
		producer, err := messaging.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		return NewPublisherNotifier(producer, logger), nil
	default:
		return nil, fmt.Errorf("unsupported notifier driver %q", cfg.Driver)
	}
}

// deliveryTimeout bounds a detached delivery.
const deliveryTimeout = 10 * time.Second

// DeliveryContext returns a context for a delivery that must outlive the request.
func DeliveryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), deliveryTimeout)
}
