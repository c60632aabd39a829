package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/bistro/pkg/models"
)

func TestPublish_KeyedByOrder(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "o1" {
			return errors.New("unexpected key " + string(key))
		}
		if msg.Topic != "bistro.orders" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		return nil
	})

	pub := NewPublisher(producer, "bistro.orders", zaptest.NewLogger(t))
	err := pub.Publish(context.Background(), OrderEvent{
		Type:       OrderStatusChanged,
		OrderID:    "o1",
		Status:     models.StatusReady,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, pub.Close())
}

func TestPublish_PayloadShape(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var evt map[string]any
		if err := json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt["type"] != "order.status_changed" || evt["previous_status"] != "pending" {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})

	pub := NewPublisher(producer, "bistro.orders", zaptest.NewLogger(t))
	require.NoError(t, pub.Publish(context.Background(), OrderEvent{
		Type:           OrderStatusChanged,
		OrderID:        "o1",
		Status:         models.StatusConfirmed,
		PreviousStatus: models.StatusPending,
	}))
	require.NoError(t, pub.Close())
}

func TestPublish_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewPublisher(producer, "bistro.orders", zaptest.NewLogger(t))
	err := pub.Publish(context.Background(), OrderEvent{Type: OrderDeleted, OrderID: "o1"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestPublish_CancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewPublisher(producer, "bistro.orders", zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, pub.Publish(ctx, OrderEvent{Type: OrderCreated, OrderID: "o1"}), context.Canceled)
	require.NoError(t, pub.Close())
}
