package mq

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func newMockProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	t.Helper()
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	return &Producer{producer: mock}, mock
}

func TestPublishSendsKeyAndValue(t *testing.T) {
	producer, mock := newMockProducer(t)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"payment_no":"POS1"}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})

	if err := producer.Publish("pos_payment_result", "POS1", []byte(`{"payment_no":"POS1"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPublishReturnsBrokerError(t *testing.T) {
	producer, mock := newMockProducer(t)
	mock.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	err := producer.Publish("pos_payment_result", "POS2", []byte(`{}`))
	if !errors.Is(err, sarama.ErrNotLeaderForPartition) {
		t.Fatalf("expected broker error, got %v", err)
	}
	_ = producer.Close()
}

func TestCloseNilProducer(t *testing.T) {
	var p *Producer
	if err := p.Close(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
