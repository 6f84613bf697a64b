package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"flightbook/internal/shared/config"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaBookingPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer func() { _ = producer.Close() }()

	flightID := uuid.New()
	ticketID := uuid.New()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var event BookingEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return err
		}
		if event.Type != EventTypeTicketBooked || event.FlightID != flightID {
			return errors.New("unexpected event payload")
		}
		if len(event.TicketIDs) != 1 || event.TicketIDs[0] != ticketID {
			return errors.New("ticket ids missing")
		}
		return nil
	})

	publisher := NewKafkaBookingPublisherWithProducer(producer, "flightbook.bookings")
	event := NewEventBuilder(EventTypeTicketBooked, flightID).
		WithRequest("req-1").
		WithTickets(ticketID).
		WithAmount(120, "usd").
		Build()

	require.NoError(t, publisher.Publish(context.Background(), event))
}

func TestKafkaBookingPublisher_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer func() { _ = producer.Close() }()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewKafkaBookingPublisherWithProducer(producer, "flightbook.bookings")
	err := publisher.Publish(context.Background(), NewEventBuilder(EventTypeTicketCancelled, uuid.New()).Build())

	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestBookingEvent_PartitionKeyIsFlight(t *testing.T) {
	flightID := uuid.New()
	event := NewEventBuilder(EventTypeReservationExpired, flightID).WithSeats(uuid.New(), uuid.New()).Build()

	assert.Equal(t, flightID.String(), event.GetPartitionKey())
	assert.Len(t, event.SeatIDs, 2)
	assert.NotEqual(t, uuid.Nil, event.ID)
}

func TestKafkaConfigFrom(t *testing.T) {
	producerConfig := KafkaConfigFrom(config.KafkaConfig{
		Brokers:      []string{"kafka-1:9092", "kafka-2:9092"},
		BookingTopic: "bookings",
		RetryMax:     7,
	})

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, producerConfig.Brokers)
	assert.Equal(t, "bookings", producerConfig.Topic)
	assert.Equal(t, 7, producerConfig.RetryMax)
	assert.Equal(t, "flightbook-backend", producerConfig.ClientID)

	saramaConfig := NewSaramaConfig(producerConfig)
	assert.Equal(t, 1, saramaConfig.Net.MaxOpenRequests)
	assert.True(t, saramaConfig.Producer.Return.Successes)
}

func TestNewPublisher_DisabledIsNoop(t *testing.T) {
	publisher := NewPublisher(config.KafkaConfig{Enabled: false}, nil)

	_, ok := publisher.(NoopPublisher)
	assert.True(t, ok)
	assert.NoError(t, publisher.Publish(context.Background(), &BookingEvent{}))
	assert.NoError(t, publisher.Close())
}
