package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := client.Subscribe(ctx, "customer.cust-1")
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "customer.cust-1", map[string]string{"event": "payment.completed"}))

	select {
	case msg := <-msgs:
		assert.Equal(t, "customer.cust-1", msg.Channel)
		var body map[string]string
		require.NoError(t, json.Unmarshal(msg.Payload, &body))
		assert.Equal(t, "payment.completed", body["event"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Run("sends keyed json record", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var body map[string]interface{}
			if err := json.Unmarshal(val, &body); err != nil {
				return err
			}
			if body["event"] != "transaction.status.updated" {
				return errors.New("unexpected event")
			}
			return nil
		})

		pub := NewKafkaPublisherWithProducer(producer, "qr-payment-events")
		err := pub.Publish(context.Background(), "merchant.m-1", map[string]string{"event": "transaction.status.updated"})
		assert.NoError(t, err)
		assert.NoError(t, pub.Close())
	})

	t.Run("propagates producer failure", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		pub := NewKafkaPublisherWithProducer(producer, "qr-payment-events")
		err := pub.Publish(context.Background(), "merchant.m-1", map[string]string{"event": "x"})
		assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
		assert.NoError(t, pub.Close())
	})

	t.Run("requires brokers and topic", func(t *testing.T) {
		_, err := NewKafkaPublisher(KafkaConfig{Topic: "t"})
		assert.Error(t, err)
		_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
		assert.Error(t, err)
	})
}

func TestNewSaramaConfig(t *testing.T) {
	cfg := NewSaramaConfig("qr-payment")
	assert.Equal(t, "qr-payment", cfg.ClientID)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, 5, cfg.Producer.Retry.Max)
}
