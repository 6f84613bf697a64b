package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"flightbook/internal/shared/config"
	"flightbook/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher emits booking events. Publishing happens after the database commit,
// so a failed publish never undoes a booking.
type Publisher interface {
	Publish(ctx context.Context, event *BookingEvent) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka booking producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	ClientID         string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "flightbook.bookings",
		ClientID:         "flightbook-backend",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000,
	}
}

// KafkaConfigFrom fills the producer defaults with the kafka config section.
func KafkaConfigFrom(cfg config.KafkaConfig) *KafkaProducerConfig {
	producerConfig := DefaultKafkaProducerConfig()
	if len(cfg.Brokers) > 0 {
		producerConfig.Brokers = cfg.Brokers
	}
	if cfg.BookingTopic != "" {
		producerConfig.Topic = cfg.BookingTopic
	}
	if cfg.ClientID != "" {
		producerConfig.ClientID = cfg.ClientID
	}
	if cfg.RetryMax > 0 {
		producerConfig.RetryMax = cfg.RetryMax
	}
	return producerConfig
}

// NewSaramaConfig translates the producer config into sarama settings.
func NewSaramaConfig(config *KafkaProducerConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = config.ClientID

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	// Idempotent producers need a single in-flight request per connection
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Events of one flight stay ordered on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// KafkaBookingPublisher publishes booking events to Kafka
type KafkaBookingPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logger.Logger
}

// NewKafkaBookingPublisher connects a sync producer to the configured brokers
func NewKafkaBookingPublisher(config *KafkaProducerConfig) (*KafkaBookingPublisher, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, NewSaramaConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaBookingPublisherWithProducer(producer, config.Topic), nil
}

// NewKafkaBookingPublisherWithProducer wraps an existing producer.
func NewKafkaBookingPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaBookingPublisher {
	return &KafkaBookingPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.GetDefault(),
	}
}

// Publish sends a single event and waits for the broker acknowledgement
func (p *KafkaBookingPublisher) Publish(ctx context.Context, event *BookingEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   createHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send booking event to Kafka: %w", err)
	}

	p.logger.DebugContext(ctx, "Booking event published",
		slog.String("topic", p.topic),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
		slog.String("type", string(event.Type)),
		slog.String("flight_id", event.FlightID.String()),
	)
	return nil
}

func createHeaders(event *BookingEvent) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("flight_id"), Value: []byte(event.FlightID.String())},
		{Key: []byte("producer"), Value: []byte("flightbook")},
		{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
	}
	if event.RequestID != "" {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("request_id"),
			Value: []byte(event.RequestID),
		})
	}
	return headers
}

// Close closes the Kafka producer
func (p *KafkaBookingPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// NoopPublisher drops events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *BookingEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

// NewPublisher returns a Kafka publisher when enabled, else a NoopPublisher.
// A broker that cannot be reached at startup degrades to the no-op publisher.
func NewPublisher(cfg config.KafkaConfig, log *logger.Logger) Publisher {
	if !cfg.Enabled {
		return NoopPublisher{}
	}
	publisher, err := NewKafkaBookingPublisher(KafkaConfigFrom(cfg))
	if err != nil {
		log.Warn("Kafka unavailable, booking events disabled", slog.String("error", err.Error()))
		return NoopPublisher{}
	}
	return publisher
}
