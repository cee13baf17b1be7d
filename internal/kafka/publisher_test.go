package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"channel-service/internal/telemetry"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, topic: "chat.activity", log: zap.NewNop()}

	err := p.Publish(context.Background(), "activity.message", telemetry.Envelope{EventType: "message_sent", RequestID: "req-1", TenantID: 1})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "activity.message", string(msg.Key))
	var decoded telemetry.Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "message_sent", decoded.EventType)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "activity.message", headers["routing_key"])
	assert.Equal(t, "message_sent", headers["event_type"])
	assert.Equal(t, "req-1", headers["x-request-id"])
}

func TestPublishReturnsWriterError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("no leader")}, topic: "t", log: zap.NewNop()}
	assert.Error(t, p.Publish(context.Background(), "k", map[string]int{}))
}

func TestNewPublisherRequiresBrokers(t *testing.T) {
	_, err := NewPublisher(nil, "t", zap.NewNop())
	assert.Error(t, err)
}
